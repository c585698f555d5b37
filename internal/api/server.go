// Package api exposes the calculation engine over HTTP: single
// calculations, per-country schedules across the standard earnings
// multiples, and batch runs.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/pensionlab/pencalc/internal/batch"
	"github.com/pensionlab/pencalc/internal/calculation"
	"github.com/pensionlab/pencalc/internal/domain"
	"github.com/pensionlab/pencalc/internal/lifetable"
)

// Config holds server configuration.
type Config struct {
	Port        int
	Log         zerolog.Logger
	Countries   map[string]*domain.CountryParameterSet
	Assumptions domain.GlobalAssumptions
	Tables      lifetable.Provider
	Workers     int
}

// Server is the HTTP front of the engine. Engines are built once at
// startup; requests only read them.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	engines map[string]*calculation.Engine
	runner  *batch.Runner
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	engines := make(map[string]*calculation.Engine, len(cfg.Countries))
	for iso3, params := range cfg.Countries {
		engines[iso3] = calculation.NewEngine(params, cfg.Assumptions, params.AverageEarnings.AnnualValue, cfg.Tables)
	}

	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "api").Logger(),
		engines: engines,
		runner:  batch.NewRunner(cfg.Countries, cfg.Assumptions, cfg.Tables, cfg.Workers),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/countries", s.handleListCountries)
		r.Post("/calculate", s.handleCalculate)
		r.Get("/countries/{iso3}/schedule", s.handleSchedule)
		r.Post("/batch", s.handleBatch)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Int("countries", len(s.engines)).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
