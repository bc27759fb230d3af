// Package server provides the HTTP server and routing for fiis.
package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/di"
	batchhandlers "github.com/aristath/fiis/internal/modules/batch/handlers"
	ledgerhandlers "github.com/aristath/fiis/internal/modules/ledger/handlers"
	reportshandlers "github.com/aristath/fiis/internal/modules/reports/handlers"
	"github.com/aristath/fiis/internal/scheduler"
	"github.com/aristath/fiis/pkg/embedded"
)

// apiTimeout bounds ordinary API requests. Event streams and batch fetches
// are mounted outside it.
var apiTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances // Optional; enables manual job triggers
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	var jobs map[string]scheduler.Job
	if cfg.Jobs != nil {
		jobs = cfg.Jobs.All()
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			cfg.Container.Databases(),
			cfg.Container.Scheduler,
			jobs,
		),
	}

	s.setupMiddleware()
	s.setupRoutes()

	// WriteTimeout stays zero: event streams and POST /api/fetch hold the connection open
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	bus := s.container.EventBus

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events/stream", NewEventsStreamHandler(bus, s.log).ServeHTTP)
		r.Get("/events/ws", NewEventsWebSocketHandler(bus, s.log).ServeHTTP)

		// A run is one sequential fetch per fund, each bounded by the fetch timeout
		batchhandlers.NewHandler(s.container.BatchRunner, s.log).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(apiTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			reportshandlers.NewHandler(s.container.ReportsService, s.log).RegisterRoutes(r)
			ledgerhandlers.NewHandler(
				s.container.LedgerDB.Conn(),
				s.container.LedgerRepo,
				s.container.EventManager,
				s.log,
			).RegisterRoutes(r)

			s.systemHandlers.RegisterRoutes(r)
		})
	})

	s.router.Get("/", s.handleDashboard)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleDashboard serves the dashboard page from the embedded filesystem
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uiFS, err := fs.Sub(embedded.Files, "ui")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to open embedded ui directory")
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}

	indexFile, err := uiFS.Open("index.html")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to open embedded index.html")
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}
	defer indexFile.Close()

	data, err := io.ReadAll(indexFile)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read embedded index.html")
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to write index.html response")
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
