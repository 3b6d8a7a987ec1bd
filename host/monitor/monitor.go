// Package monitor serves drive telemetry read from a status stream as
// Prometheus metrics, a JSON status endpoint and a websocket live feed.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"els/protocol"
)

const (
	shutdownTimeout    = 5 * time.Second
	serverReadTimeout  = 10 * time.Second
	serverWriteTimeout = 15 * time.Second
)

// Monitor consumes status frames and publishes them
type Monitor struct {
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	hub      *Hub

	mu      sync.RWMutex
	last    StatusView
	haveAny bool
}

// New creates a monitor with its own metrics registry
func New(log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	return &Monitor{
		log:      log,
		registry: reg,
		metrics:  NewMetrics(reg),
		hub:      NewHub(log),
	}
}

// Metrics returns the monitor's collectors
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Last returns the most recent report and whether one has arrived
func (m *Monitor) Last() (StatusView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.haveAny
}

// Handle publishes one frame. Frames that are not status reports are logged
// and dropped.
func (m *Monitor) Handle(msg protocol.Message) {
	status, err := protocol.DecodeStatus(msg.Payload)
	if err != nil {
		m.log.Warn("dropping frame", zap.Uint8("seq", msg.Sequence), zap.Error(err))
		return
	}
	m.metrics.Observe(status)

	view := NewStatusView(status)
	m.mu.Lock()
	prev := m.last
	m.last = view
	m.haveAny = true
	m.mu.Unlock()

	if view.Fault && !prev.Fault {
		m.log.Error("drive faulted", zap.Int32("backlog", view.Backlog), zap.Uint32("tick", view.Tick))
	}
	if view.LimitState != prev.LimitState {
		m.log.Info("limit state", zap.String("from", prev.LimitState), zap.String("to", view.LimitState))
	}
	m.hub.Broadcast(view)
}

// Router builds the HTTP routes
func (m *Monitor) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(m.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", m.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Handle("/ws", m.hub)
	return r
}

func (m *Monitor) handleStatus(w http.ResponseWriter, _ *http.Request) {
	view, ok := m.Last()
	if !ok {
		http.Error(w, "no status received", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		m.log.Warn("encode status", zap.Error(err))
	}
}

func (m *Monitor) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

// Consume publishes frames from reader until its channel closes
func (m *Monitor) Consume(reader *protocol.Reader) {
	for msg := range reader.Frames() {
		m.Handle(msg)
		m.metrics.ObserveReader(reader.Stats())
	}
	m.metrics.ObserveReader(reader.Stats())
}

// Run reads frames from port and serves HTTP on addr until ctx is done or
// the stream ends. port is closed on return.
func (m *Monitor) Run(ctx context.Context, port io.ReadCloser, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	reader := protocol.NewReader(port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      m.Router(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
	}

	g.Go(func() error {
		err := reader.Run(ctx)
		m.log.Info("telemetry stream ended", zap.Error(err))
		cancel()
		return err
	})
	g.Go(func() error {
		m.Consume(reader)
		return nil
	})
	g.Go(func() error {
		m.log.Info("serving telemetry", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// unblock a pending read
		_ = port.Close()
		m.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
