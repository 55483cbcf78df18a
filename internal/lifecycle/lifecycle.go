// Package lifecycle orchestrates startup and shutdown of long-running
// components in serve mode.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bkoehler/netverdict/internal/logging"
)

// Component is the lifecycle interface for managed components.
type Component interface {
	// Start initializes and starts the component. It must return once the
	// component is running; long-running work happens in goroutines owned
	// by the component.
	Start(ctx context.Context) error

	// Stop gracefully stops the component, respecting the context deadline.
	Stop(ctx context.Context) error

	// Name returns the component name used in logs and errors.
	Name() string
}

// Manager starts components in registration order and stops them in
// reverse order with a shutdown timeout.
type Manager struct {
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a manager with a 30-second shutdown timeout.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds a component. Components start in registration order, so
// dependencies must be registered before their dependents.
func (m *Manager) Register(c Component) error {
	if c == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if c.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, existing := range m.components {
		if existing == c {
			return fmt.Errorf("component %s is already registered", c.Name())
		}
	}
	m.components = append(m.components, c)
	return nil
}

// StartAll starts every registered component in order. On failure it
// stops the components that already started, in reverse order, and
// returns the start error.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, c := range m.components {
		m.logger.Info("starting component %s", c.Name())
		if err := c.Start(ctx); err != nil {
			m.logger.ErrorWithErr(fmt.Sprintf("component %s failed to start", c.Name()), err)
			m.stopStarted()
			return fmt.Errorf("failed to start %s: %w", c.Name(), err)
		}
		m.started = append(m.started, c)
	}
	return nil
}

// StopAll stops every started component in reverse order. Errors are
// logged but do not prevent the remaining components from stopping.
func (m *Manager) StopAll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	for i := len(m.started) - 1; i >= 0; i-- {
		c := m.started[i]
		m.logger.Info("stopping component %s", c.Name())
		if err := c.Stop(ctx); err != nil {
			m.logger.ErrorWithErr(fmt.Sprintf("component %s failed to stop", c.Name()), err)
		}
	}
	m.started = nil
}

func (m *Manager) stopStarted() {
	m.StopAll()
}
