package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darianmiller/install-postgres-on-windows/internal/config"
	"github.com/darianmiller/install-postgres-on-windows/internal/logger"
	"github.com/darianmiller/install-postgres-on-windows/internal/service/provision"
	"github.com/darianmiller/install-postgres-on-windows/internal/version"
)

// ExitCodeDestinationExists is the distinguished exit code for a pre-existing
// destination root, so callers can script around re-runs.
const ExitCodeDestinationExists = 3

var (
	// configPath is an optional YAML defaults file; flags override its values.
	configPath string

	// request holds flag values before merging with the defaults file.
	request config.Config

	// logLevel sets the verbosity of the step-by-step narration.
	logLevel string

	// rootCmd represents the base command that runs the installation.
	rootCmd = &cobra.Command{
		Use:   "pg-provision",
		Short: "Install PostgreSQL and register it as a managed background service",
		Long: "Acquires a PostgreSQL binary release archive (latest download or local file), " +
			"extracts it into a fresh destination layout, initializes the data cluster, " +
			"configures the listen port, and registers and starts the server as a background service.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}

			return provision.Run(ctx, cfg)
		},
	}
)

// Execute runs the pg-provision CLI and exits non-zero on error, with a
// dedicated code when the destination root already exists.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, provision.ErrDestinationExists) {
			os.Exit(ExitCodeDestinationExists)
		}

		os.Exit(1)
	}
}

// buildConfig merges the optional defaults file with the flags; explicitly
// set flags win over the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	if configPath == "" {
		cfg := request
		return &cfg, nil
	}

	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.ArchivePath = request.ArchivePath
	}

	if flags.Changed("download-latest") {
		cfg.DownloadLatest = request.DownloadLatest
	}

	if flags.Changed("destination") {
		cfg.Destination = request.Destination
	}

	if flags.Changed("service-name") {
		cfg.ServiceName = request.ServiceName
	}

	if flags.Changed("port") {
		cfg.Port = request.Port
	}

	if flags.Changed("superuser") {
		cfg.Superuser = request.Superuser
	}

	if flags.Changed("password") {
		cfg.SuperuserPassword = request.SuperuserPassword
	}

	if flags.Changed("update-path") {
		cfg.UpdatePath = request.UpdatePath
	}

	if flags.Changed("install-admin-tool") {
		cfg.InstallAdminTool = request.InstallAdminTool
	}

	// Unset file fields still fall back to the flag defaults.
	if cfg.Destination == "" {
		cfg.Destination = request.Destination
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = request.ServiceName
	}

	if cfg.Port == 0 {
		cfg.Port = request.Port
	}

	return cfg, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.StringVarP(&request.ArchivePath, "source", "s", "", "path to a local release archive (mutually exclusive with --download-latest)")
	flags.BoolVarP(&request.DownloadLatest, "download-latest", "d", false, "discover and download the latest release from the vendor listing page")
	flags.StringVar(&request.Destination, "destination", config.DefaultDestination(), "installation root; must not exist yet")
	flags.StringVar(&request.ServiceName, "service-name", config.DefaultServiceName, "name to register the background service under")
	flags.IntVarP(&request.Port, "port", "p", config.DefaultPort, "listen port written into the generated configuration")
	flags.StringVar(&request.Superuser, "superuser", config.DefaultSuperuser, "database superuser created during initialization")
	flags.StringVar(&request.SuperuserPassword, "password", config.DefaultSuperuserPassword, "superuser password, handed to initdb via a transient password file")
	flags.BoolVar(&request.UpdatePath, "update-path", false, "append the server bin directory to the machine PATH")
	flags.BoolVar(&request.InstallAdminTool, "install-admin-tool", false, "additionally extract the bundled pgAdmin payload")
	flags.StringVarP(&configPath, "config", "c", "", "path to an optional YAML defaults file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, fatal")
}
