package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haidang-dev/warden/internal/core/domain"
	"github.com/haidang-dev/warden/internal/monitor/processor"
)

// HealingReporter exposes coordinator status to the HTTP surface.
type HealingReporter interface {
	Status(ctx context.Context) (*domain.HealingStatus, error)
}

// Server provides HTTP endpoints for health and status monitoring.
type Server struct {
	probe   *Probe
	errors  *processor.Processor
	healing HealingReporter
	server  *http.Server
}

// NewServer creates the status server.
func NewServer(probe *Probe, errors *processor.Processor, healing HealingReporter, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		probe:   probe,
		errors:  errors,
		healing: healing,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/errors", s.handleErrors)
	mux.HandleFunc("/healing", s.handleHealing)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.probe.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if snap.Overall == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, map[string]string{"status": string(snap.Overall)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.probe.Snapshot())
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.errors.Summary())
}

func (s *Server) handleHealing(w http.ResponseWriter, r *http.Request) {
	status, err := s.healing.Status(r.Context())
	if err != nil {
		http.Error(w, "failed to load healing status", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
