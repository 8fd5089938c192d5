package assoc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
	"github.com/dmdmdm-nz/iwmon/internal/metrics"
	"github.com/dmdmdm-nz/iwmon/internal/runtime"
)

// ErrMonitorExited is returned by Start when iwevent exited on its own.
var ErrMonitorExited = errors.New("iwevent exited")

// maxBacklog bounds how many events a slow subscriber may fall behind.
const maxBacklog = 256

type Service struct {
	cfg  iwevent.Config
	opts []iwevent.Option

	mu         sync.RWMutex
	monitor    *iwevent.Monitor
	associated bool
	last       *AssociationEvent
	counts     map[iwevent.EventKind]int

	subsMu sync.Mutex
	subs   map[int]*runtime.SubQueue[AssociationEvent]
	nextID int
	closed bool
}

// NewService creates a service that will run an iwevent monitor with cfg.
// opts are applied to the monitor in addition to the service's own
// callbacks.
func NewService(cfg iwevent.Config, opts ...iwevent.Option) *Service {
	counts := make(map[iwevent.EventKind]int)
	for _, kind := range iwevent.Kinds() {
		counts[kind] = 0
	}
	return &Service{
		cfg:    cfg,
		opts:   opts,
		counts: counts,
		subs:   make(map[int]*runtime.SubQueue[AssociationEvent]),
	}
}

// Subscribe returns a stream of association events. The most recent event,
// if any, is delivered first.
func (s *Service) Subscribe() (<-chan AssociationEvent, func()) {
	sub := runtime.NewSubQueue[AssociationEvent](8, maxBacklog)

	// publish holds subsMu while it updates the last event and broadcasts,
	// so every event is either in the snapshot or queued.
	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		sub.Close()
		return sub.Chan(), func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub

	s.mu.RLock()
	if s.last != nil {
		sub.SendSnapshot(*s.last)
	}
	s.mu.RUnlock()
	s.subsMu.Unlock()

	sub.SetPaused(false)

	unsub := func() {
		s.subsMu.Lock()
		if q, ok := s.subs[id]; ok {
			delete(s.subs, id)
			q.Close()
		}
		s.subsMu.Unlock()
	}
	return sub.Chan(), unsub
}

// Start runs the iwevent monitor until ctx is cancelled or the process
// exits.
func (s *Service) Start(ctx context.Context) error {
	log.Info("Starting association monitoring service")

	// publish observes events on the reading goroutine so status and
	// subscribers follow iwevent's line order in every dispatch mode.
	opts := append([]iwevent.Option{iwevent.WithObserver(s.publish)}, s.opts...)

	m, err := iwevent.New(s.cfg, opts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.monitor = m
	s.mu.Unlock()

	exited := false
	select {
	case <-ctx.Done():
	case <-m.Done():
		exited = true
		log.Warn("iwevent exited, association monitoring ends")
	}

	log.Info("Stopping association monitoring service")
	if err := m.Stop(); err != nil {
		metrics.MonitorStopsTotal.WithLabelValues("unclean").Inc()
		return err
	}
	metrics.MonitorStopsTotal.WithLabelValues("clean").Inc()

	if exited {
		return ErrMonitorExited
	}
	return nil
}

func (s *Service) Close() error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, q := range s.subs {
		q.Close()
		delete(s.subs, id)
	}
	return nil
}

// Running reports whether the monitor is currently reading iwevent output.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitor != nil && s.monitor.State() == iwevent.StateRunning
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:      iwevent.StateNotStarted.String(),
		Associated: s.associated,
		Counts:     make(map[iwevent.EventKind]int, len(s.counts)),
	}
	if s.monitor != nil {
		st.State = s.monitor.State().String()
	}
	if s.last != nil {
		ev := *s.last
		st.LastEvent = &ev
	}
	for k, v := range s.counts {
		st.Counts[k] = v
	}
	return st
}

func (s *Service) publish(kind iwevent.EventKind) {
	ev := AssociationEvent{
		ID:   uuid.NewString(),
		Kind: kind,
		Time: time.Now().UTC(),
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.mu.Lock()
	s.associated = kind == iwevent.AssociationNew
	s.last = &ev
	s.counts[kind]++
	s.mu.Unlock()

	metrics.EventsTotal.WithLabelValues(string(kind)).Inc()
	if kind == iwevent.AssociationNew {
		metrics.Associated.Set(1)
		log.WithField("id", ev.ID).Info("New wireless association")
	} else {
		metrics.Associated.Set(0)
		log.WithField("id", ev.ID).Info("Wireless association lost")
	}

	for _, sub := range s.subs {
		sub.Enqueue(ev)
	}
}
