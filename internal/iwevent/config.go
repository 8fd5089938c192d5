package iwevent

import "time"

const (
	DefaultCommand         = "iwevent"
	DefaultShutdownTimeout = 5 * time.Second
)

// Config controls how a Monitor runs. The zero value monitors iwevent with
// concurrent, joinable dispatch and a five second shutdown timeout.
type Config struct {
	// Command is the monitoring executable, resolved through PATH.
	Command string
	// Args are passed to Command. iwevent itself takes none.
	Args []string
	// Mode selects inline or concurrent dispatch.
	Mode DispatchMode
	// Detach stops Stop from waiting on concurrent callbacks.
	Detach bool
	// ShutdownTimeout bounds how long Stop waits for the reading loop.
	ShutdownTimeout time.Duration
}

func (c Config) command() string {
	if c.Command == "" {
		return DefaultCommand
	}
	return c.Command
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return c.ShutdownTimeout
}

// Option customizes a Monitor before its reading loop starts.
type Option func(*Monitor) error

// WithCallback registers cb for kind before the first line is read.
func WithCallback(kind EventKind, cb Callback) Option {
	return func(m *Monitor) error {
		return m.registry.Register(kind, cb)
	}
}

// Observer is told about every event on the reading goroutine, in line
// order, before any callback is dispatched. It must not block.
type Observer func(kind EventKind)

// WithObserver adds obs to the observers of the monitor.
func WithObserver(obs Observer) Option {
	return func(m *Monitor) error {
		if obs != nil {
			m.observers = append(m.observers, obs)
		}
		return nil
	}
}
