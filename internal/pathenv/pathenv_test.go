package pathenv

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEnv builds a SetxEditor wired to an in-memory environment and a
// recording command runner.
func fakeEnv(goos, initialPath string) (*SetxEditor, *[][]string, map[string]string) {
	env := map[string]string{pathVariable: initialPath}
	calls := new([][]string)

	editor := &SetxEditor{
		goos:   goos,
		getenv: func(key string) string { return env[key] },
		setenv: func(key, value string) error {
			env[key] = value
			return nil
		},
		run: func(_ context.Context, name string, args ...string) error {
			*calls = append(*calls, append([]string{name}, args...))
			return nil
		},
	}

	return editor, calls, env
}

// TestAppend_PersistsAndUpdatesProcess ensures a new entry reaches both setx
// and the current process environment.
func TestAppend_PersistsAndUpdatesProcess(t *testing.T) {
	t.Parallel()

	editor, calls, env := fakeEnv("windows", `C:\Windows`)

	changed, err := editor.Append(context.Background(), `C:\postgres\server\bin`)
	require.NoError(t, err)
	require.True(t, changed)

	require.Len(t, *calls, 1)
	require.Equal(t, "setx", (*calls)[0][0])
	require.Contains(t, env[pathVariable], `C:\postgres\server\bin`)
	require.True(t, strings.HasPrefix(env[pathVariable], `C:\Windows`))
}

// TestAppend_Idempotent ensures an already-present entry is skipped without
// touching the host.
func TestAppend_Idempotent(t *testing.T) {
	t.Parallel()

	existing := `C:\Windows` + string(os.PathListSeparator) + `C:\postgres\server\bin`
	editor, calls, _ := fakeEnv("windows", existing)

	changed, err := editor.Append(context.Background(), `C:\postgres\server\bin`)
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, *calls)
}

// TestAppend_UnsupportedOS ensures non-Windows hosts fail loudly instead of
// silently skipping the persistent update.
func TestAppend_UnsupportedOS(t *testing.T) {
	t.Parallel()

	editor, _, _ := fakeEnv("linux", "/usr/bin")

	_, err := editor.Append(context.Background(), "/opt/postgres/server/bin")
	require.ErrorIs(t, err, errUnsupportedOS)
}
