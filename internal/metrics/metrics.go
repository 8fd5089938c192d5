package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iwmon",
			Subsystem: "monitor",
			Name:      "events_total",
			Help:      "Association events received from iwevent",
		},
		[]string{"kind"},
	)

	Associated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iwmon",
			Subsystem: "monitor",
			Name:      "associated",
			Help:      "1 while the last event reported a new association",
		},
	)

	MonitorStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iwmon",
			Subsystem: "monitor",
			Name:      "stops_total",
			Help:      "Monitor shutdowns by result",
		},
		[]string{"result"},
	)

	HookRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iwmon",
			Subsystem: "hooks",
			Name:      "runs_total",
			Help:      "Hook command executions by event kind and result",
		},
		[]string{"kind", "result"},
	)

	Subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "iwmon",
			Subsystem: "api",
			Name:      "event_subscribers",
			Help:      "Connected event stream subscribers",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iwmon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iwmon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		Associated,
		MonitorStopsTotal,
		HookRunsTotal,
		Subscribers,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Hijack is required for websocket upgrades behind the middleware.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Middleware records request counts and latencies keyed by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		status := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, status).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
	})
}
