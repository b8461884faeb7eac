// Package gateway exposes the job API over HTTP: submission, inspection,
// status control, and synchronous runs.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/docops/internal/artifacts"
	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/jobs"
	"github.com/haasonsaas/docops/internal/runtime"
)

// Server routes HTTP requests to the job service and runner.
type Server struct {
	jobs      *jobs.Service
	artifacts artifacts.Store
	audit     *audit.Recorder
	runner    *runtime.Runner
	logger    *slog.Logger

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(
	jobService *jobs.Service,
	artifactStore artifacts.Store,
	recorder *audit.Recorder,
	runner *runtime.Runner,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		jobs:      jobService,
		artifacts: artifactStore,
		audit:     recorder,
		runner:    runner,
		logger:    logger.With("component", "gateway"),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /jobs/{id}/events", s.handleListEvents)
	mux.HandleFunc("GET /jobs/{id}/artifacts", s.handleListArtifacts)
	mux.HandleFunc("POST /jobs/{id}/status", s.handleSetStatus)
	mux.HandleFunc("POST /jobs/{id}/run", s.handleRunJob)

	return mux
}

// Start serves HTTP on addr until the context is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("starting http server", "addr", addr)

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
