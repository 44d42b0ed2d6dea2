package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/warpcore/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// manual cycles: one per triggerInterval, no bursting
	triggerInterval = 10 * time.Second
	triggerBurst    = 1
)

// TriggerFunc starts an out-of-band cycle. It returns false when a cycle is
// already in flight.
type TriggerFunc func() bool

// Server exposes the relay's state over HTTP.
//
// Routes:
//   - GET /healthz: liveness
//   - GET /api/status: latest cycle as JSON, 204 before the first one
//   - GET /api/sse: Server-Sent Events stream of cycle results
//   - POST /api/cycle: start a cycle now
//   - GET /metrics: Prometheus exposition
type Server struct {
	store      store.Store
	port       int
	trigger    TriggerFunc
	gatherer   prometheus.Gatherer
	limiter    *rate.Limiter
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// trigger may be nil, in which case POST /api/cycle answers 503. gatherer
// may be nil, in which case /metrics serves the default registry.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, trigger TriggerFunc, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		port:     port,
		trigger:  trigger,
		gatherer: gatherer,
		limiter:  rate.NewLimiter(rate.Every(triggerInterval), triggerBurst),
		logger:   logger,
	}
}

// Handler returns the routed handler without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sse", s.handleSSE)
		r.Post("/cycle", s.handleCycle)
	})

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the port is bound. The server runs
// until ctx is cancelled, then shuts down gracefully with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("status server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatus returns the latest cycle as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	record, ok := s.store.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(record); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleCycle starts a manual cycle, subject to the rate limit and the
// scheduler's in-flight guard.
func (s *Server) handleCycle(w http.ResponseWriter, _ *http.Request) {
	if s.trigger == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "manual cycles disabled"})
		return
	}

	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", triggerInterval.Seconds()))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many manual cycles"})
		return
	}

	if !s.trigger() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cycle already in flight"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleSSE streams cycle results via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot pin the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may be unsupported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// replay the latest cycle so new clients are not blank until the next tick
	if record, ok := s.store.Latest(); ok {
		if data, err := json.Marshal(record); err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	} else if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case record, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(record)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown (BaseContext)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
