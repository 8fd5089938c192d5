// Package iwevent turns the output of the iwevent wireless monitoring tool
// into association callbacks.
package iwevent

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Monitor runs one iwevent process and dispatches its association events.
type Monitor struct {
	cfg        Config
	registry   *Registry
	dispatcher *Dispatcher
	reader     *reader
	observers  []Observer

	stopMu sync.Mutex
}

// New checks that the monitoring executable exists, starts it and begins
// reading its output in the background. Callers must call Stop once done,
// otherwise the process and the reading goroutine leak.
func New(cfg Config, opts ...Option) (*Monitor, error) {
	path, err := lookupExecutable(cfg.command())
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:        cfg,
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(cfg.Mode, cfg.Detach),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	m.reader = newReader(path, cfg.Args, m.handleLine)
	if err := m.reader.start(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"command": path,
		"mode":    cfg.Mode,
		"detach":  cfg.Detach,
	}).Info("Started wireless event monitor")

	return m, nil
}

func (m *Monitor) handleLine(line string) {
	kind, ok := Classify(line)
	if !ok {
		return
	}
	for _, obs := range m.observers {
		invoke(kind, func() { obs(kind) })
	}
	m.dispatcher.Dispatch(kind, m.registry.CallbacksFor(kind))
}

// Register adds cb to the callbacks fired for kind.
func (m *Monitor) Register(kind EventKind, cb Callback) error {
	return m.registry.Register(kind, cb)
}

func (m *Monitor) OnAssociationNew(cb Callback) {
	_ = m.registry.Register(AssociationNew, cb)
}

func (m *Monitor) OnAssociationLost(cb Callback) {
	_ = m.registry.Register(AssociationLost, cb)
}

// Stop kills the monitoring process and waits for the reading loop to end,
// failing with ErrUncleanShutdown after the configured timeout. With
// concurrent, non-detached dispatch it then waits for every callback still
// running; that second wait is unbounded. Stop may be called more than once.
func (m *Monitor) Stop() error {
	m.stopMu.Lock()
	defer m.stopMu.Unlock()

	if err := m.reader.stop(m.cfg.shutdownTimeout()); err != nil {
		log.WithError(err).Error("Wireless event monitor did not stop cleanly")
		return err
	}

	m.dispatcher.Wait()

	log.Info("Stopped wireless event monitor")
	return nil
}

func (m *Monitor) State() State {
	return m.reader.currentState()
}

// Done is closed once the reading loop ended, either through Stop or
// because the monitoring process exited by itself. Children the process
// left behind holding its output are killed shortly after it exits.
func (m *Monitor) Done() <-chan struct{} {
	return m.reader.done
}
