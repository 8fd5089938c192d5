package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs named workers as one unit. When any worker returns, the
// shared context is cancelled so the others wind down as well; the first
// error is kept and reported by Wait.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("supervisor already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, w := range s.workers {
		s.wg.Add(1)
		go s.runWorker(w)
	}
	return nil
}

func (s *Supervisor) runWorker(w worker) {
	defer s.wg.Done()

	entry := log.WithField("worker", w.name)
	entry.Debug("Worker starting")

	err := w.run(s.ctx)
	switch {
	case err != nil:
		entry.WithError(err).Error("Worker failed")
		s.errOnce.Do(func() { s.err = fmt.Errorf("%s: %w", w.name, err) })
	case s.ctx.Err() == nil:
		entry.Info("Worker exited")
	default:
		entry.Debug("Worker stopped")
	}
	s.cancel()
}

// Wait blocks until ctx is done or a worker exited, closes the workers in
// reverse order and waits for all of them to return.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	inner := s.ctx
	s.mu.Unlock()

	if inner == nil {
		<-ctx.Done()
	} else {
		select {
		case <-ctx.Done():
		case <-inner.Done():
		}
		s.cancel()
	}

	for i := len(s.workers) - 1; i >= 0; i-- {
		w := s.workers[i]
		if w.closeF == nil {
			continue
		}
		if err := w.closeF(); err != nil {
			log.WithError(err).WithField("worker", w.name).Warn("Worker close failed")
		}
	}
	s.wg.Wait()
	return s.err
}
