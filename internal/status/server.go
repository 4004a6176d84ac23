// Package status exposes a small ops HTTP surface while a batch runs:
// liveness, batch progress and Prometheus metrics.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"capcli/internal/config"
	"capcli/internal/enrich"
)

// ProgressResponse is the /api/progress payload
type ProgressResponse struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	ETA        string  `json:"eta,omitempty"`
}

// Server serves the ops endpoints for a running batch
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the status server. runner provides progress snapshots.
func NewServer(cfg config.StatusConfig, runner *enrich.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})
	r.Get("/api/progress", func(w http.ResponseWriter, req *http.Request) {
		completed, total, percentage, eta := runner.Progress()
		render.JSON(w, req, ProgressResponse{
			Completed:  completed,
			Total:      total,
			Percentage: percentage,
			ETA:        eta,
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server failed", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
