package winsvc

import (
	"fmt"

	"github.com/kardianos/service"
)

// Status is the running state of a managed service.
type Status int

const (
	// StatusUnknown means the state could not be determined.
	StatusUnknown Status = iota
	// StatusRunning means the service is registered and running.
	StatusRunning
	// StatusStopped means the service is registered but not running.
	StatusStopped
)

// String renders the status the way the service manager reports it.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// RegisterRequest describes the service to register: the engine's control
// binary run in service mode, bound to the data directory.
type RegisterRequest struct {
	// Name is the service name the registration is keyed by.
	Name string
	// DataDir is the initialized data cluster the server runs against.
	DataDir string
	// ControlPath is the path to the engine's pg_ctl binary.
	ControlPath string
}

// Manager registers and controls the managed background service. The service
// registry is host-global state, so orchestration tests substitute a fake.
type Manager interface {
	Register(req RegisterRequest) error
	Start(name string) error
	Status(name string) (Status, error)
}

// KardianosManager implements Manager on the host service manager (SCM on
// Windows, systemd/launchd elsewhere).
type KardianosManager struct {
	newService func(cfg *service.Config) (service.Service, error)
}

// NewManager returns a Manager backed by the real host service registry.
func NewManager() *KardianosManager {
	return &KardianosManager{
		newService: func(cfg *service.Config) (service.Service, error) {
			return service.New(noopProgram{}, cfg)
		},
	}
}

// Register installs the service configured for automatic-delayed startup.
func (m *KardianosManager) Register(req RegisterRequest) error {
	svc, err := m.newService(&service.Config{
		Name:        req.Name,
		DisplayName: req.Name,
		Description: "PostgreSQL database server",
		Executable:  req.ControlPath,
		Arguments:   []string{"runservice", "-N", req.Name, "-D", req.DataDir, "-w"},
		Option: service.KeyValue{
			"DelayedAutoStart": true,
		},
	})
	if err != nil {
		return fmt.Errorf("describe service %s: %w", req.Name, err)
	}

	if err = svc.Install(); err != nil {
		return fmt.Errorf("register service %s: %w", req.Name, err)
	}

	return nil
}

// Start starts the named service.
func (m *KardianosManager) Start(name string) error {
	svc, err := m.byName(name)
	if err != nil {
		return err
	}

	if err = svc.Start(); err != nil {
		return fmt.Errorf("start service %s: %w", name, err)
	}

	return nil
}

// Status queries the named service's running state.
func (m *KardianosManager) Status(name string) (Status, error) {
	svc, err := m.byName(name)
	if err != nil {
		return StatusUnknown, err
	}

	state, err := svc.Status()
	if err != nil {
		return StatusUnknown, fmt.Errorf("query service %s: %w", name, err)
	}

	switch state {
	case service.StatusRunning:
		return StatusRunning, nil
	case service.StatusStopped:
		return StatusStopped, nil
	default:
		return StatusUnknown, nil
	}
}

// byName builds a handle keyed by service name only.
func (m *KardianosManager) byName(name string) (service.Service, error) {
	svc, err := m.newService(&service.Config{Name: name})
	if err != nil {
		return nil, fmt.Errorf("describe service %s: %w", name, err)
	}

	return svc, nil
}

// noopProgram satisfies the service runtime interface. This tool only
// registers and controls the engine's service, it never runs as one.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }

func (noopProgram) Stop(service.Service) error { return nil }
