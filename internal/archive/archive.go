package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	// wrapperDir is the single top-level directory inside the vendor archive.
	wrapperDir = "pgsql"

	// adminToolDir is the nested pgAdmin payload inside the wrapper.
	adminToolDir = wrapperDir + "/pgAdmin 4"

	// extractTool is the host extraction utility. bsdtar ships with
	// Windows 10+ as tar.exe and handles zip archives transparently.
	extractTool = "tar"
)

// serverExclusions are payloads that are dead weight for a minimal runtime
// install: documentation, headers, debug symbols and bundled vendor tools.
var serverExclusions = []string{
	wrapperDir + "/doc",
	wrapperDir + "/include",
	wrapperDir + "/symbols",
	wrapperDir + "/pgAdmin 4",
	wrapperDir + "/StackBuilder",
}

// runFunc executes an external command and returns its failure, if any.
// It exists so tests can record invocations instead of spawning processes.
type runFunc func(ctx context.Context, name string, args ...string) error

// Installer extracts the engine's release archive into the destination layout
// by invoking the host extraction utility. Extraction is all-or-nothing: any
// non-zero exit is fatal and there is no partial-install recovery.
type Installer struct {
	run runFunc
}

// NewInstaller returns an Installer backed by the real host utility.
func NewInstaller() *Installer {
	return &Installer{run: runCommand}
}

// ExtractServer unpacks the runtime payload into serverDir, stripping the
// archive's top-level wrapper directory and excluding non-runtime payloads.
func (i *Installer) ExtractServer(ctx context.Context, archivePath, serverDir string) error {
	args := []string{"-x", "-f", archivePath, "-C", serverDir, "--strip-components=1"}
	for _, exclusion := range serverExclusions {
		args = append(args, "--exclude="+exclusion)
	}

	if err := i.run(ctx, extractTool, args...); err != nil {
		return fmt.Errorf("extract server payload from %s: %w", archivePath, err)
	}

	return nil
}

// ExtractAdminTool unpacks the bundled admin tool payload into adminDir,
// stripping both the wrapper and the payload's own directory level.
func (i *Installer) ExtractAdminTool(ctx context.Context, archivePath, adminDir string) error {
	args := []string{"-x", "-f", archivePath, "-C", adminDir, "--strip-components=2", adminToolDir}

	if err := i.run(ctx, extractTool, args...); err != nil {
		return fmt.Errorf("extract admin tool from %s: %w", archivePath, err)
	}

	return nil
}

// runCommand spawns the command and folds a non-zero exit status together
// with the tool's stderr into the returned error, so diagnostics surface
// verbatim to the user.
func runCommand(ctx context.Context, name string, args ...string) error {
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
