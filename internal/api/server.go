// Package api serves the freelink HTTP API.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/filter"
	"github.com/dgallion1/freelink/internal/metrics"
	"github.com/dgallion1/freelink/internal/pathstore"
	"github.com/dgallion1/freelink/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Published is the store rendered documents are written to.
// *pathstore.Client satisfies it.
type Published interface {
	Get(ctx context.Context, key string) (*pathstore.Entry, error)
	Delete(ctx context.Context, key string, recursive bool) error
	List(ctx context.Context, key string, limit int) ([]pathstore.Entry, error)
}

// Server is the HTTP API server for freelink.
type Server struct {
	router       chi.Router
	filter       *filter.Filter
	orchestrator *pipeline.Orchestrator
	published    Published
	metrics      *metrics.Recorder
	validate     *validator.Validate
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. A nil published store
// disables the /api/published routes.
func NewServer(f *filter.Filter, orch *pipeline.Orchestrator, published Published, rec *metrics.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		filter:       f,
		orchestrator: orch,
		published:    published,
		metrics:      rec,
		validate:     newValidator(),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.FreelinkAPIKey, s.log))

		r.Post("/api/filter", s.handleFilter)
		r.Get("/api/tips", s.handleTips)
		r.Get("/api/plugins", s.handlePlugins)
		r.Get("/api/settings", s.handleSettings)

		r.Post("/api/documents", s.handleDocument)
		r.Post("/api/jobs", s.handleSubmitJobs)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/published", s.handleListPublished)
		r.Get("/api/published/{hash}", s.handleGetPublished)
		r.Delete("/api/published/{hash}", s.handleDeletePublished)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
