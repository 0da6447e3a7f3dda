package pgconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ConfigFilename is the configuration file initdb generates inside the data
// directory.
const ConfigFilename = "postgresql.conf"

// defaultFileMode is used when the original file mode cannot be determined.
const defaultFileMode os.FileMode = 0o600

var (
	// ErrConfigNotFound is returned when the generated configuration file is
	// missing. Callers treat it as a warning: the engine still runs on its
	// compiled-in default port.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrPortLineNotFound is returned when no port assignment line exists.
	// The file is left unmodified.
	ErrPortLineNotFound = errors.New("no port line found in configuration file")
)

// portLinePattern matches a port key assignment, commented or not, with
// arbitrary surrounding whitespace and any digit sequence as the value.
var portLinePattern = regexp.MustCompile(`^\s*#?\s*port\s*=\s*\d+`)

// SetPort rewrites the first port assignment line of the configuration file
// inside dataDir to an explicit uncommented assignment of the requested port.
// Only the first matching line is changed; every other line is left intact.
func SetPort(dataDir string, port int) error {
	path := filepath.Join(dataDir, ConfigFilename)

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrConfigNotFound)
		}

		return fmt.Errorf("read %s: %w", path, err)
	}

	lines := strings.Split(string(contents), "\n")

	patched := false
	for i, line := range lines {
		if portLinePattern.MatchString(line) {
			lines[i] = fmt.Sprintf("port = %d", port)
			patched = true

			break
		}
	}

	if !patched {
		return fmt.Errorf("%s: %w", path, ErrPortLineNotFound)
	}

	mode := defaultFileMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err = os.WriteFile(path, []byte(strings.Join(lines, "\n")), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
