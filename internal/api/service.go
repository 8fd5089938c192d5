package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/metrics"
	"github.com/dmdmdm-nz/iwmon/pkg/version"
)

const shutdownTimeout = 5 * time.Second

// Service serves association status and the live event stream over HTTP.
type Service struct {
	address string
	port    int
	src     EventSource

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

func NewService(host string, port int) *Service {
	return &Service{
		address: host,
		port:    port,
	}
}

// AttachAssoc wires the event source (must be called before Start).
func (s *Service) AttachAssoc(src EventSource) {
	s.src = src
}

func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if s.src == nil || !s.src.Running() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/version", s.handleVersion)
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws/events", s.handleEvents)

	return r
}

func (s *Service) Start(ctx context.Context) error {
	if s.src == nil {
		return errors.New("AttachAssoc was not called before Start")
	}

	addr := net.JoinHostPort(s.address, fmt.Sprintf("%d", s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	log.Infof("Starting iwmon API service at %s", ln.Addr())
	defer log.Info("Stopping iwmon API service")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return s.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("API shutdown did not complete, closing connections")
		return s.srv.Close()
	}
	return nil
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	v := version.Semver()
	writeJSON(w, VersionInfo{
		Version:   version.Version,
		Commit:    version.CommitHash,
		BuildTime: version.BuildTime,
		Major:     v.Major(),
		Minor:     v.Minor(),
		Patch:     v.Patch(),
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.src == nil {
		http.Error(w, "association service not attached", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.src.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
