package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"interlink/internal/config"
	"interlink/internal/logger"
	"interlink/internal/metrics"
	"interlink/internal/persistence"
	"interlink/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	linking    services.LinkingService
	db         persistence.Database
	opts       Options
	config     config.Server
	log        zerolog.Logger
}

// Options holds the optional parts of the server
type Options struct {
	Metrics     *metrics.Metrics // nil disables the metrics endpoint
	MetricsPath string           // defaults to /metrics
}

// New creates a new HTTP server instance
func New(linking services.LinkingService, db persistence.Database, cfg config.Server, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	s := &Server{
		router:  chi.NewRouter(),
		linking: linking,
		db:      db,
		opts:    opts,
		config:  cfg,
		log:     logger.Component("server"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Judgment calls can take a while; leave room past the request timeout.
		WriteTimeout: cfg.Timeout() + 5*time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.Timeout()))
	s.router.Use(securityHeaders)

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		// Read-only endpoints
		r.Get("/posts/{id}", s.handleGetPost)
		r.Get("/posts/{id}/links", s.handleListLinks)
		r.Post("/posts/{id}/links/preview", s.handlePreviewLinks)
		r.Post("/suggestions", s.handleSuggestLinks)
		r.Get("/backfill", s.handleBackfill)
		r.Post("/validate-urls", s.handleValidateURLs)

		// Endpoints that rewrite content or the ledger
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdminAPI)
			r.Post("/posts/{id}/links", s.handleApplyLinks)
			r.Delete("/posts/{id}/links", s.handleRemoveInternalLinks)
			r.Post("/posts/{id}/ledger/sync", s.handleSyncLedger)
			r.Delete("/links/{id}", s.handleRemoveLink)
			r.Post("/cleanup", s.handleCleanup)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("request_timeout", s.config.Timeout()).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
