package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config describes a single installation request. It is constructed once from
// CLI flags (optionally seeded from a YAML defaults file) and is immutable
// during orchestration.
type Config struct {
	// ArchivePath is a local release archive to install. Mutually exclusive
	// with DownloadLatest.
	ArchivePath string `yaml:"archive_path"`
	// DownloadLatest requests discovery and download of the newest release
	// from the vendor listing page. Mutually exclusive with ArchivePath.
	DownloadLatest bool `yaml:"download_latest"`
	// Destination is the installation root. It must not exist yet.
	Destination string `yaml:"destination"`
	// ServiceName is the name the background service is registered under.
	ServiceName string `yaml:"service_name"`
	// Port is the listen port written into postgresql.conf after initdb.
	Port int `yaml:"port"`
	// Superuser is the database superuser created by initdb.
	Superuser string `yaml:"superuser"`
	// SuperuserPassword is handed to initdb through a transient password file,
	// never on the command line.
	SuperuserPassword string `yaml:"superuser_password"`
	// UpdatePath appends the server bin directory to the machine PATH.
	UpdatePath bool `yaml:"update_path"`
	// InstallAdminTool additionally extracts the bundled pgAdmin payload.
	InstallAdminTool bool `yaml:"install_admin_tool"`
}

const (
	// DefaultConfigFilename is the default filename for installation defaults.
	DefaultConfigFilename = "pg-provision.yaml"

	// DefaultServiceName is the service the server is registered under.
	DefaultServiceName = "postgresql"

	// DefaultPort is the engine's compiled-in listen port.
	DefaultPort = 5432

	// DefaultSuperuser is the database superuser created by initdb.
	DefaultSuperuser = "postgres"

	// DefaultSuperuserPassword is used when the caller does not supply one.
	DefaultSuperuserPassword = "postgres"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	maxPort = 65535
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoSource is returned when neither a local archive nor a download is requested.
	errNoSource = errors.New("either an archive path or --download-latest must be provided")
	// errAmbiguousSource is returned when both acquisition modes are requested at once.
	errAmbiguousSource = errors.New("archive path and --download-latest are mutually exclusive")
	// errDestinationRequired is returned when the destination root is empty.
	errDestinationRequired = errors.New("destination root must be provided")
	// errServiceNameRequired is returned when the service name is empty.
	errServiceNameRequired = errors.New("service name must be provided")
)

// DefaultDestination returns the standard installation root for the host platform.
func DefaultDestination() string {
	if runtime.GOOS == "windows" {
		return `C:\postgres`
	}

	return "/opt/postgres"
}

// Read parses installation settings from the provided path without
// validation. The CLI uses it for defaults files whose gaps are filled by
// flags before the request is validated as a whole.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Load reads installation settings from the provided path and validates
// essential fields.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path with restricted permissions,
// since it may carry the superuser password.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the request for required fields and fills remaining defaults.
// Exactly one acquisition mode must be selected.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ArchivePath == "" && !cfg.DownloadLatest {
		return errNoSource
	}

	if cfg.ArchivePath != "" && cfg.DownloadLatest {
		return errAmbiguousSource
	}

	if cfg.Destination == "" {
		return errDestinationRequired
	}

	if cfg.ServiceName == "" {
		return errServiceNameRequired
	}

	if cfg.Port <= 0 || cfg.Port > maxPort {
		return fmt.Errorf("invalid port %d: must be in range 1-%d", cfg.Port, maxPort)
	}

	if cfg.Superuser == "" {
		cfg.Superuser = DefaultSuperuser
	}

	if cfg.SuperuserPassword == "" {
		cfg.SuperuserPassword = DefaultSuperuserPassword
	}

	return nil
}
