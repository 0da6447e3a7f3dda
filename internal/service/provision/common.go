package provision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// ListingPageURL is the vendor page listing downloadable binary releases,
	// newest first.
	ListingPageURL = "https://www.enterprisedb.com/download-postgresql-binaries"

	// ServerSubdir holds the engine's binaries and runtime under the root.
	ServerSubdir = "server"

	// AdminSubdir holds the optional admin tool under the root.
	AdminSubdir = "pgadmin"

	// DataSubdir is the data cluster created by initdb under the root.
	DataSubdir = "data"

	// clusterEncoding and clusterLocale are fixed initdb parameters.
	clusterEncoding = "UTF8"
	clusterLocale   = "en_US.UTF-8"

	baseInitdbExecutable = "initdb"
	basePgCtlExecutable  = "pg_ctl"
)

// getExecutableExtension returns the platform's executable suffix.
func getExecutableExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}

// initdbExecutable returns the initdb binary name for the current platform.
func initdbExecutable() string {
	return baseInitdbExecutable + getExecutableExtension()
}

// pgCtlExecutable returns the pg_ctl binary name for the current platform.
func pgCtlExecutable() string {
	return basePgCtlExecutable + getExecutableExtension()
}

// layout addresses the three subdirectories of the destination root. The root
// is the product of the installation and outlives this process.
type layout struct {
	root string
}

func (l layout) serverDir() string {
	return filepath.Join(l.root, ServerSubdir)
}

func (l layout) binDir() string {
	return filepath.Join(l.serverDir(), "bin")
}

func (l layout) adminDir() string {
	return filepath.Join(l.root, AdminSubdir)
}

func (l layout) dataDir() string {
	return filepath.Join(l.root, DataSubdir)
}

func (l layout) initdbPath() string {
	return filepath.Join(l.binDir(), initdbExecutable())
}

func (l layout) pgCtlPath() string {
	return filepath.Join(l.binDir(), pgCtlExecutable())
}

// runCommand spawns an external tool and folds a non-zero exit together with
// the tool's stderr into the returned error, so its diagnostic text reaches
// the user verbatim.
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
