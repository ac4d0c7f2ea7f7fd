// Package api serves the story editor HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storyloom/internal/analyze"
	"storyloom/internal/store"
)

type Options struct {
	AllowedOrigins []string
	MaxPathDepth   int
	Logger         *zap.Logger
	// Metrics defaults to a fresh collector with its own registry.
	Metrics *Metrics
}

type Server struct {
	store    *store.Store
	log      *zap.Logger
	metrics  *Metrics
	origins  []string
	maxDepth int
	hub      *changeHub
}

func New(st *store.Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = NewMetrics("storyloom")
	}
	depth := opts.MaxPathDepth
	if depth <= 0 {
		depth = analyze.DefaultMaxDepth
	}
	return &Server{store: st, log: log, metrics: m, origins: opts.AllowedOrigins, maxDepth: depth, hub: newChangeHub()}
}

func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(s.metrics.middleware)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Get("/preview", s.preview)

	r.Route("/api", func(r chi.Router) {
		r.Get("/campaigns", s.listCampaigns)
		r.Post("/campaigns", s.createCampaign)
		r.Get("/stories", s.listStories)

		r.Get("/story", s.getStory)
		r.Put("/story", s.saveStory)
		r.Get("/story/statistics", s.statistics)
		r.Get("/story/analysis", s.analysis)
		r.Get("/story/export", s.exportStory)
		r.Post("/story/save", s.saveStory)
		r.Post("/story/validate", s.validateStory)
		r.Post("/story/new", s.newStory)
		r.Get("/story/events", s.previewEvents)
		r.Get("/story/ws", s.storyEvents)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "API endpoint not found")
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
