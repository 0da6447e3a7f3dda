package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/darianmiller/install-postgres-on-windows/internal/archive"
	"github.com/darianmiller/install-postgres-on-windows/internal/config"
	"github.com/darianmiller/install-postgres-on-windows/internal/fetcher"
	"github.com/darianmiller/install-postgres-on-windows/internal/locator"
	"github.com/darianmiller/install-postgres-on-windows/internal/logger"
	"github.com/darianmiller/install-postgres-on-windows/internal/pathenv"
	"github.com/darianmiller/install-postgres-on-windows/internal/pgconf"
	"github.com/darianmiller/install-postgres-on-windows/internal/winsvc"
)

var (
	// ErrDestinationExists is the distinguished condition for a pre-existing
	// destination root. Re-running against an existing root is refused rather
	// than merged, to avoid corrupting a live instance; the CLI maps it to a
	// dedicated exit code so callers can script around it.
	ErrDestinationExists = errors.New("destination root already exists")

	// errServiceNotRunning is returned when the service registered and
	// started but does not report a running state. A registered-but-unstarted
	// service is an installation failure, not a partial success.
	errServiceNotRunning = errors.New("service is not running after start")
)

// runner holds the request and the external collaborators for a single
// installation. Collaborators are fields so tests can substitute recording
// fakes for host-global state (service registry, machine PATH, processes).
// It is intentionally unexported - call Run(ctx, cfg) from callers.
type runner struct {
	cfg *config.Config
	lay layout

	fetchPage     func(ctx context.Context, url string) (string, error)
	locate        func(page string) (string, error)
	download      func(ctx context.Context, url string) (string, error)
	extractServer func(ctx context.Context, archivePath, serverDir string) error
	extractAdmin  func(ctx context.Context, archivePath, adminDir string) error
	runTool       func(ctx context.Context, name string, args ...string) error
	patchPort     func(dataDir string, port int) error
	pathEditor    pathenv.Editor
	services      winsvc.Manager
	listProcesses func() ([]ps.Process, error)
}

// Run executes the installation workflow and is the public entry point for
// the CLI. The workflow is strictly sequential; the first fatal error aborts
// the whole orchestration with no rollback of already-created directories.
func Run(ctx context.Context, cfg *config.Config) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pg-provision")

	if err := config.Validate(cfg); err != nil {
		return err
	}

	r := newRunner(cfg)

	if err := r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Installation failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Installation completed",
		"destination", cfg.Destination, "service", cfg.ServiceName, "port", cfg.Port)

	return nil
}

// newRunner wires the runner to the real collaborators.
func newRunner(cfg *config.Config) *runner {
	installer := archive.NewInstaller()

	return &runner{
		cfg:           cfg,
		lay:           layout{root: cfg.Destination},
		fetchPage:     fetcher.FetchPage,
		locate:        locator.FindLatest,
		download:      fetcher.Download,
		extractServer: installer.ExtractServer,
		extractAdmin:  installer.ExtractAdminTool,
		runTool:       runCommand,
		patchPort:     pgconf.SetPort,
		pathEditor:    pathenv.NewEditor(),
		services:      winsvc.NewManager(),
		listProcesses: ps.Processes,
	}
}

// run walks the linear installation state machine:
// 1) Refuse a pre-existing destination root.
// 2) Prepare the layout.
// 3) Acquire the archive (download or local).
// 4) Extract payloads.
// 5) Optionally extend PATH.
// 6) Initialize the data cluster.
// 7) Override the listen port.
// 8) Register and start the service.
// 9) Verify the service is running.
func (r *runner) run(ctx context.Context) error {
	if err := r.validateDestination(); err != nil {
		return err
	}

	if err := r.prepareLayout(ctx); err != nil {
		return err
	}

	archivePath, cleanup, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	// The downloaded archive must be gone whatever extraction does.
	defer cleanup()

	if err = r.extract(ctx, archivePath); err != nil {
		return err
	}

	if r.cfg.UpdatePath {
		if err = r.updatePath(ctx); err != nil {
			return err
		}
	}

	if err = r.initializeCluster(ctx); err != nil {
		return err
	}

	r.overridePort(ctx)

	if err = r.registerAndStart(ctx); err != nil {
		return err
	}

	return r.verify(ctx)
}

// validateDestination refuses to touch an existing root before any mutation.
func (r *runner) validateDestination() error {
	if _, err := os.Stat(r.lay.root); err == nil {
		return fmt.Errorf("%s: %w", r.lay.root, ErrDestinationExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("inspect destination root: %w", err)
	}

	return nil
}

// prepareLayout creates the server subdirectory (and the admin one when
// requested). The data subdirectory is deliberately not pre-created: initdb
// must create it itself so the permissions end up right for the service
// account.
func (r *runner) prepareLayout(ctx context.Context) error {
	logger.InfoKV(ctx, "Preparing destination layout", "root", r.lay.root)

	if err := os.MkdirAll(r.lay.serverDir(), 0o755); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	if r.cfg.InstallAdminTool {
		if err := os.MkdirAll(r.lay.adminDir(), 0o755); err != nil {
			return fmt.Errorf("create admin tool directory: %w", err)
		}
	}

	return nil
}

// acquire resolves the archive to install. For downloads it returns a cleanup
// that removes the temporary file; a caller-supplied local archive is the
// caller's to keep.
func (r *runner) acquire(ctx context.Context) (string, func(), error) {
	if r.cfg.ArchivePath != "" {
		logger.InfoKV(ctx, "Using local archive", "path", r.cfg.ArchivePath)
		return r.cfg.ArchivePath, func() {}, nil
	}

	logger.InfoKV(ctx, "Discovering latest release", "page", ListingPageURL)

	page, err := r.fetchPage(ctx, ListingPageURL)
	if err != nil {
		return "", nil, err
	}

	url, err := r.locate(page)
	if err != nil {
		return "", nil, err
	}

	logger.InfoKV(ctx, "Downloading release archive", "url", url)

	path, err := r.download(ctx, url)
	if err != nil {
		return "", nil, err
	}

	return path, func() {
		_ = os.Remove(path)
	}, nil
}

// extract unpacks the runtime payload and, when requested, the admin tool.
func (r *runner) extract(ctx context.Context, archivePath string) error {
	logger.InfoKV(ctx, "Extracting server payload", "archive", archivePath)

	if err := r.extractServer(ctx, archivePath, r.lay.serverDir()); err != nil {
		return err
	}

	if r.cfg.InstallAdminTool {
		logger.Info(ctx, "Extracting admin tool payload")

		if err := r.extractAdmin(ctx, archivePath, r.lay.adminDir()); err != nil {
			return err
		}
	}

	return nil
}

// updatePath extends the machine PATH with the server bin directory.
func (r *runner) updatePath(ctx context.Context) error {
	changed, err := r.pathEditor.Append(ctx, r.lay.binDir())
	if err != nil {
		return fmt.Errorf("update PATH: %w", err)
	}

	if changed {
		logger.InfoKV(ctx, "Added server binaries to PATH", "dir", r.lay.binDir())
	} else {
		logger.InfoKV(ctx, "PATH already contains server binaries", "dir", r.lay.binDir())
	}

	return nil
}

// initializeCluster runs the engine's own initdb against the data directory.
// The superuser password goes through a transient password file that is
// removed on every exit path: command lines are visible to other processes,
// password files are not.
func (r *runner) initializeCluster(ctx context.Context) error {
	logger.InfoKV(ctx, "Initializing data cluster", "data", r.lay.dataDir())

	passwordFile, err := writePasswordFile(r.cfg.SuperuserPassword)
	if err != nil {
		return err
	}

	defer func() {
		_ = os.Remove(passwordFile)
	}()

	args := []string{
		"-D", r.lay.dataDir(),
		"-E", clusterEncoding,
		"--locale=" + clusterLocale,
		"-U", r.cfg.Superuser,
		"--pwfile=" + passwordFile,
	}

	if err = r.runTool(ctx, r.lay.initdbPath(), args...); err != nil {
		return fmt.Errorf("initialize data cluster: %w", err)
	}

	return nil
}

// writePasswordFile persists the password to a fresh restricted temp file.
func writePasswordFile(password string) (string, error) {
	file, err := os.CreateTemp("", "pg-provision-pw-*.txt")
	if err != nil {
		return "", fmt.Errorf("create password file: %w", err)
	}

	if _, err = file.WriteString(password + "\n"); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())

		return "", fmt.Errorf("write password file: %w", err)
	}

	if err = file.Close(); err != nil {
		_ = os.Remove(file.Name())

		return "", fmt.Errorf("close password file: %w", err)
	}

	return file.Name(), nil
}

// overridePort patches the generated configuration when a non-default port
// was requested. Patch failures are deliberately non-fatal: the engine still
// runs on its compiled-in default and the user is told.
func (r *runner) overridePort(ctx context.Context) {
	if r.cfg.Port == config.DefaultPort {
		return
	}

	logger.InfoKV(ctx, "Overriding listen port", "port", r.cfg.Port)

	if err := r.patchPort(r.lay.dataDir(), r.cfg.Port); err != nil {
		logger.Warnf(ctx, "Port override skipped, the server will use the default port: %v", err)
	}
}

// registerAndStart registers the background service and starts it.
func (r *runner) registerAndStart(ctx context.Context) error {
	logger.InfoKV(ctx, "Registering service", "name", r.cfg.ServiceName)

	err := r.services.Register(winsvc.RegisterRequest{
		Name:        r.cfg.ServiceName,
		DataDir:     r.lay.dataDir(),
		ControlPath: r.lay.pgCtlPath(),
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Starting service", "name", r.cfg.ServiceName)

	return r.services.Start(r.cfg.ServiceName)
}

// verify queries the service state; anything but running fails the install.
func (r *runner) verify(ctx context.Context) error {
	status, err := r.services.Status(r.cfg.ServiceName)
	if err != nil {
		return err
	}

	if status != winsvc.StatusRunning {
		return fmt.Errorf("service %s reported %s: %w", r.cfg.ServiceName, status, errServiceNotRunning)
	}

	logger.InfoKV(ctx, "Service is running", "name", r.cfg.ServiceName, "status", status.String())
	r.logServerProcess(ctx)

	return nil
}

// logServerProcess leaves a debug trail of whether a server process is
// already visible. Informational only: the pass/fail decision stays on the
// service status.
func (r *runner) logServerProcess(ctx context.Context) {
	processes, err := r.listProcesses()
	if err != nil {
		logger.Debugf(ctx, "Could not list processes: %v", err)
		return
	}

	for _, process := range processes {
		if strings.TrimSuffix(process.Executable(), ".exe") == "postgres" {
			logger.DebugKV(ctx, "Server process visible", "pid", process.Pid())
			return
		}
	}

	logger.Debug(ctx, "No server process visible yet")
}
