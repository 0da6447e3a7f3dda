package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordedCall captures a single external invocation made by the installer.
type recordedCall struct {
	name string
	args []string
}

func newRecordingInstaller(fail error) (*Installer, *[]recordedCall) {
	calls := new([]recordedCall)
	installer := &Installer{
		run: func(_ context.Context, name string, args ...string) error {
			*calls = append(*calls, recordedCall{name: name, args: args})
			return fail
		},
	}

	return installer, calls
}

// TestExtractServer_Arguments pins the extraction contract: strip one wrapper
// level and exclude every non-runtime payload.
func TestExtractServer_Arguments(t *testing.T) {
	t.Parallel()

	installer, calls := newRecordingInstaller(nil)
	require.NoError(t, installer.ExtractServer(context.Background(), "pg.zip", "/dest/server"))
	require.Len(t, *calls, 1)

	call := (*calls)[0]
	require.Equal(t, extractTool, call.name)
	require.Contains(t, call.args, "pg.zip")
	require.Contains(t, call.args, "/dest/server")
	require.Contains(t, call.args, "--strip-components=1")

	for _, exclusion := range serverExclusions {
		require.Contains(t, call.args, "--exclude="+exclusion)
	}
}

// TestExtractAdminTool_Arguments pins the nested payload path and the two
// stripped wrapper levels.
func TestExtractAdminTool_Arguments(t *testing.T) {
	t.Parallel()

	installer, calls := newRecordingInstaller(nil)
	require.NoError(t, installer.ExtractAdminTool(context.Background(), "pg.zip", "/dest/pgadmin"))
	require.Len(t, *calls, 1)

	call := (*calls)[0]
	require.Equal(t, extractTool, call.name)
	require.Contains(t, call.args, "--strip-components=2")
	require.Contains(t, call.args, adminToolDir)
}

// TestExtract_FailureNamesArchive ensures a non-zero extraction exit surfaces
// as a fatal error naming the archive.
func TestExtract_FailureNamesArchive(t *testing.T) {
	t.Parallel()

	toolFailure := errors.New("exit status 2")

	installer, _ := newRecordingInstaller(toolFailure)
	err := installer.ExtractServer(context.Background(), "broken.zip", "/dest/server")
	require.ErrorIs(t, err, toolFailure)
	require.ErrorContains(t, err, "broken.zip")
}
