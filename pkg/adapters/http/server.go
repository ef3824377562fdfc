// Package http exposes a read-only observation surface over the running
// deck: status, catalog, history, a live event stream and metrics.
//
// Handlers never mutate application state; every dependency they touch is
// safe to read from a server goroutine.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scriptdeck/scriptdeck/internal/logging"
	"github.com/scriptdeck/scriptdeck/pkg/catalog"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
	"github.com/scriptdeck/scriptdeck/pkg/ports"
	"github.com/scriptdeck/scriptdeck/pkg/runner"
)

// Server serves the observation API.
type Server struct {
	runner   *runner.Runner
	catalog  *catalog.Catalog
	store    ports.HistoryStore
	registry *prometheus.Registry
	logger   *slog.Logger
	version  string

	Streams *StreamManager
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsRegistry enables the /metrics endpoint.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates a Server over the shared collaborators.
func NewServer(r *runner.Runner, cat *catalog.Catalog, store ports.HistoryStore, opts ...Option) *Server {
	s := &Server{
		runner:  r,
		catalog: cat,
		store:   store,
		logger:  logging.NewNop(),
		version: "dev",
		Streams: NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.health)
	r.Get("/status", s.status)
	r.Get("/scripts", s.scripts)
	r.Get("/history/{script}", s.history)
	r.Get("/events", s.events)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     "scriptdeck",
		"version": strings.TrimSpace(s.version),
	})
}

// statusResponse mirrors the runner's flag set. ExitCode and Succeeded are
// absent while a run is active or paused.
type statusResponse struct {
	Running   bool  `json:"running"`
	Paused    bool  `json:"paused"`
	ExitCode  *int  `json:"exit_code,omitempty"`
	Succeeded *bool `json:"succeeded,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Running: s.runner.IsRunning(),
		Paused:  s.runner.IsPaused(),
	}
	if code, ok := s.runner.LastExitCode(); ok {
		resp.ExitCode = &code
	}
	if succeeded, ok := s.runner.Succeeded(); ok {
		resp.Succeeded = &succeeded
	}
	writeJSON(w, http.StatusOK, resp)
}

type scriptEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Simulation  bool   `json:"simulation"`
}

func (s *Server) scripts(w http.ResponseWriter, r *http.Request) {
	developer := r.URL.Query().Get("developer") == "true"

	entries := []scriptEntry{}
	for _, name := range s.catalog.Names(developer) {
		script, err := s.catalog.Get(name)
		if err != nil {
			continue
		}
		entries = append(entries, scriptEntry{
			Name:        script.Name,
			Description: script.Description,
			Simulation:  script.Path == "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"scripts": entries})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	script := chi.URLParam(r, "script")

	history, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load history", "err", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	records, ok := history[script]
	if !ok {
		http.Error(w, fmt.Sprintf("no history for %q", script), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"script":  script,
		"records": records,
	})
}

// events streams lifecycle events as SSE. The foreground loop feeds the
// stream through BroadcastEvent.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// BroadcastEvent forwards one bus event to all connected SSE clients.
// Subscribe it on the bus from the composition root.
func (s *Server) BroadcastEvent(e domain.Event) {
	payload, err := json.Marshal(map[string]any{
		"name":  e.EventName(),
		"event": e,
	})
	if err != nil {
		s.logger.Warn("failed to encode event for streaming", "event", e.EventName(), "err", err)
		return
	}
	s.Streams.Broadcast(string(payload))
}

// StreamManager tracks active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
	}
}

// Subscribe registers a stream. The returned cancel closes the channel and
// removes the registration.
func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every subscriber, dropping it for clients whose
// buffer is full.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Count returns the number of connected streams.
func (sm *StreamManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}
