package machine

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine/lab"
)

// Factory constructs a machine of some kind when the Manager has no cached
// instance for it.
type Factory func(m *Manager) (Machine, error)

// Manager is the per-run registry of machines. It owns the control-plane
// connection to the lab host and a keyed cache of machine instances, so that
// nested testcases reuse machines instead of reconnecting.
type Manager struct {
	mu       sync.Mutex
	machines map[string]Machine
	labHost  *lab.Host
	logger   framework.EventLogger
}

// ConnectParamsFromConfig resolves the lab connection settings. "lab.hostname"
// is required; "lab.port", "lab.user", "lab.password" and "lab.keyfile" are
// each independently optional and stay undefined when absent, so they are
// never passed to the connector as empty values.
func ConnectParamsFromConfig(cfg *config.Config) (lab.ConnectParams, error) {
	hostname, err := cfg.GetString("lab.hostname")
	if err != nil {
		return lab.ConnectParams{}, err
	}
	return lab.ConnectParams{
		Hostname: hostname,
		Port:     cfg.TryGetInt("lab.port"),
		Username: cfg.TryGetString("lab.user"),
		Password: cfg.TryGetString("lab.password"),
		KeyFile:  cfg.TryGetString("lab.keyfile"),
	}, nil
}

// ManagerOption adjusts Manager construction.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	dial lab.DialFunc
}

// WithDial overrides how the SSH transport is established. Used by tests.
func WithDial(dial lab.DialFunc) ManagerOption {
	return func(o *managerOptions) { o.dial = dial }
}

// NewManager connects to the lab host named by the configuration and returns
// a Manager holding that connection. The event logger is attached to the lab
// host and to every machine the manager later creates.
func NewManager(cfg *config.Config, logger framework.EventLogger, opts ...ManagerOption) (*Manager, error) {
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}

	params, err := ConnectParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	labHost, err := lab.Connect(params, o.dial)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		machines: make(map[string]Machine),
		labHost:  labHost,
		logger:   logger,
	}
	labHost.SetLogger(logger)
	return m, nil
}

// NewLocalManager returns a manager without a lab connection, for runs that
// only need local machines (selftests).
func NewLocalManager(logger framework.EventLogger) *Manager {
	return &Manager{
		machines: make(map[string]Machine),
		logger:   logger,
	}
}

// Lab returns the manager's lab host, or nil for a local-only manager.
func (m *Manager) Lab() *lab.Host { return m.labHost }

// Logger returns the event sink machines are attached to.
func (m *Manager) Logger() framework.EventLogger { return m.logger }

// Get returns the cached machine for a kind, or invokes the factory, attaches
// the run's event logger, caches the instance and returns it.
func (m *Manager) Get(kind string, factory Factory) (Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mach, ok := m.machines[kind]; ok {
		return mach, nil
	}
	mach, err := factory(m)
	if err != nil {
		return nil, fmt.Errorf("creating machine %q: %w", kind, err)
	}
	mach.SetLogger(m.logger)
	m.machines[kind] = mach
	log.Debug("machine created", "kind", kind, "name", mach.UniqueName())
	return mach, nil
}

// Close destroys every cached machine and then the lab connection. The first
// error is returned; later destructions still run.
func (m *Manager) Close() error {
	m.mu.Lock()
	machines := m.machines
	m.machines = make(map[string]Machine)
	m.mu.Unlock()

	var firstErr error
	for kind, mach := range machines {
		// The lab host may also be cached as a machine; it is destroyed once,
		// after everything that depends on it.
		if lh, ok := mach.(*lab.Host); ok && lh == m.labHost {
			continue
		}
		if err := mach.Destroy(); err != nil {
			log.Debug("machine destroy failed", "kind", kind, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if m.labHost != nil {
		if err := m.labHost.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
