package pgconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, contents string) string {
	t.Helper()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, ConfigFilename), []byte(contents), 0o600))

	return dataDir
}

func readConf(t *testing.T, dataDir string) string {
	t.Helper()

	contents, err := os.ReadFile(filepath.Join(dataDir, ConfigFilename))
	require.NoError(t, err)

	return string(contents)
}

// TestSetPort_UncommentsAndReplaces replaces a commented default assignment
// with an explicit uncommented one, touching no other line.
func TestSetPort_UncommentsAndReplaces(t *testing.T) {
	t.Parallel()

	dataDir := writeConf(t, strings.Join([]string{
		"# -----------------------------",
		"# PostgreSQL configuration file",
		"# -----------------------------",
		"#port = 5432\t\t\t# (change requires restart)",
		"max_connections = 100",
		"",
	}, "\n"))

	require.NoError(t, SetPort(dataDir, 5555))

	lines := strings.Split(readConf(t, dataDir), "\n")
	require.Equal(t, "port = 5555", lines[3])
	require.Equal(t, "# PostgreSQL configuration file", lines[1])
	require.Equal(t, "max_connections = 100", lines[4])
}

// TestSetPort_FirstMatchOnly ensures scanning stops at the first port line.
func TestSetPort_FirstMatchOnly(t *testing.T) {
	t.Parallel()

	dataDir := writeConf(t, "  #  port = 5432\nport = 6000\n")

	require.NoError(t, SetPort(dataDir, 5555))

	lines := strings.Split(readConf(t, dataDir), "\n")
	require.Equal(t, "port = 5555", lines[0])
	require.Equal(t, "port = 6000", lines[1])
}

// TestSetPort_NoPortLine leaves the file byte-identical and reports the
// non-fatal sentinel.
func TestSetPort_NoPortLine(t *testing.T) {
	t.Parallel()

	const contents = "max_connections = 100\n#portal = 9\n"

	dataDir := writeConf(t, contents)

	require.ErrorIs(t, SetPort(dataDir, 5555), ErrPortLineNotFound)
	require.Equal(t, contents, readConf(t, dataDir))
}

// TestSetPort_MissingFile reports the non-fatal sentinel for an absent file.
func TestSetPort_MissingFile(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, SetPort(t.TempDir(), 5555), ErrConfigNotFound)
}
