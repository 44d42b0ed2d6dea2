// Package mock serves a fake Tautulli activity API and a fake warp core
// controller on one handler, for running warpcore without real hardware.
package mock

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxStreams is the upper bound of the simulated stream count. It is above
// the highest warp level so the clamp is exercised.
const maxStreams = 12

// Server holds the simulated stream count and the last level received.
type Server struct {
	mu           sync.Mutex
	streams      int
	nextChangeAt time.Time
	level        int
	logger       *slog.Logger
}

// New returns a Server starting at streams active streams.
func New(streams int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		streams:      streams,
		nextChangeAt: nextChange(),
		level:        -1,
		logger:       logger,
	}
}

// nextChange schedules the next stream count change in 20-60 seconds.
func nextChange() time.Time {
	return time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
}

// Handler returns the routes:
//
//	GET /api/v2?cmd=get_activity&apikey=...
//	GET /warp
//	GET /warp/{level}
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v2", s.handleActivity)
	r.Get("/warp", s.handleWarp)
	r.Get("/warp/{level}", s.handleWarpLevel)
	return r
}

// SetStreams fixes the stream count until the next scheduled change.
func (s *Server) SetStreams(n int) {
	s.mu.Lock()
	s.streams = n
	s.nextChangeAt = nextChange()
	s.mu.Unlock()
}

// Level returns the last level received, or -1 if none.
func (s *Server) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("cmd") != "get_activity" || q.Get("apikey") == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	// random walk when the scheduled time is reached
	if time.Now().After(s.nextChangeAt) {
		old := s.streams
		s.streams += rand.Intn(5) - 2
		if s.streams < 0 {
			s.streams = 0
		}
		if s.streams > maxStreams {
			s.streams = maxStreams
		}
		s.nextChangeAt = nextChange()
		s.logger.Info("stream count change", "from", old, "to", s.streams)
	}
	streams := s.streams
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"response": map[string]any{
			"result": "success",
			"data": map[string]any{
				"stream_count": strconv.Itoa(streams),
			},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) handleWarp(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWarpLevel(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 0 || level > 9 {
		http.Error(w, "level must be 0-9", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.level = level
	s.mu.Unlock()

	s.logger.Info("warp level set", "level", level)
	w.WriteHeader(http.StatusOK)
}
