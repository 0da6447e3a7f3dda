package pathenv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// pathVariable is the environment variable holding the executable search path.
const pathVariable = "PATH"

// errUnsupportedOS is returned when the host has no persistent machine-wide
// PATH registry this tool knows how to edit.
var errUnsupportedOS = errors.New("persistent PATH update is not supported on this os")

// Editor mutates the executable search path. The persistent machine PATH is
// host-global state, so it sits behind an interface and tests substitute a
// recording fake instead of touching the real host.
type Editor interface {
	// Append adds dir to the persistent machine PATH and to the current
	// process environment so subsequent steps can find binaries without a
	// restart. It reports false when dir was already present and nothing
	// was changed.
	Append(ctx context.Context, dir string) (bool, error)
}

// SetxEditor edits the persistent machine PATH through the host's setx
// utility. Only Windows carries such a registry; other platforms fail loudly.
type SetxEditor struct {
	goos   string
	getenv func(string) string
	setenv func(string, string) error
	run    func(ctx context.Context, name string, args ...string) error
}

// NewEditor returns an Editor bound to the real host environment.
func NewEditor() *SetxEditor {
	return &SetxEditor{
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		setenv: os.Setenv,
		run:    runSetx,
	}
}

// Append implements Editor. The presence check is a substring scan over the
// current PATH entries, making repeated runs idempotent.
func (e *SetxEditor) Append(ctx context.Context, dir string) (bool, error) {
	current := e.getenv(pathVariable)
	if containsEntry(current, dir) {
		return false, nil
	}

	if e.goos != "windows" {
		return false, errUnsupportedOS
	}

	updated := current + string(os.PathListSeparator) + dir

	if err := e.run(ctx, "setx", pathVariable, updated); err != nil {
		return false, fmt.Errorf("persist PATH via setx: %w", err)
	}

	if err := e.setenv(pathVariable, updated); err != nil {
		return false, fmt.Errorf("update process PATH: %w", err)
	}

	return true, nil
}

// containsEntry reports whether dir already appears in the path list.
func containsEntry(pathList, dir string) bool {
	if dir == "" {
		return true
	}

	for _, entry := range strings.Split(pathList, string(os.PathListSeparator)) {
		if strings.EqualFold(strings.TrimSpace(entry), dir) {
			return true
		}
	}

	return false
}

// runSetx spawns setx and folds stderr into the returned error.
func runSetx(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if diagnostic := strings.TrimSpace(stderr.String()); diagnostic != "" {
			return fmt.Errorf("%w: %s", err, diagnostic)
		}

		return err
	}

	return nil
}
