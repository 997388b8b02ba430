// Package server provides the HTTP server and routing for copydash.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/copydash/internal/config"
	"github.com/aristath/copydash/internal/database"
	"github.com/aristath/copydash/internal/di"
	authhandlers "github.com/aristath/copydash/internal/modules/auth/handlers"
	copyinghandlers "github.com/aristath/copydash/internal/modules/copying/handlers"
	dashboardhandlers "github.com/aristath/copydash/internal/modules/dashboard/handlers"
	portalshandlers "github.com/aristath/copydash/internal/modules/portals/handlers"
	positionshandlers "github.com/aristath/copydash/internal/modules/positions/handlers"
	"github.com/aristath/copydash/internal/session"
)

// Request timeout for everything except long-lived streams
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
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
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.PositionsService,
			[]*database.DB{cfg.Container.PortalsDB, cfg.Container.SessionsDB},
		),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// WriteTimeout stays unset: the positions stream holds its connection open
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS: credentials travel in a cookie, so only the app's own origin is allowed
	origins := []string{s.cfg.BaseURL}
	if devMode {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Session loading and cache headers
	s.router.Use(s.container.Sessions.Middleware)
	s.router.Use(session.NoCache)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/health", s.handleHealth)

	authHandler := authhandlers.NewHandler(c.CopyTradeClient, c.Sessions, s.cfg.BaseURL, s.log)
	dashboardHandler := dashboardhandlers.NewHandler(c.DashboardService, c.Sessions, s.log)
	copyingHandler := copyinghandlers.NewHandler(c.CopyingService, c.Sessions, s.log)
	portalsHandler := portalshandlers.NewHandler(c.PortalService, c.CopyingService, c.CopyTradeClient, c.Sessions, s.log)
	positionsHandler := positionshandlers.NewHandler(c.PositionsService, c.Sessions, s.log)

	// Login flow pages at the root
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		authHandler.RegisterRoutes(r)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			r.Get("/system/status", s.systemHandlers.HandleStatus)

			// Public portal pages; a session is optional
			portalsHandler.RegisterRoutes(r)
			portalsHandler.RegisterAdminRoutes(r, s.cfg.AdminToken)

			r.Group(func(r chi.Router) {
				r.Use(c.Sessions.RequireAuth)
				dashboardHandler.RegisterRoutes(r)
				copyingHandler.RegisterRoutes(r)
				positionsHandler.RegisterRoutes(r)
			})
		})

		// Streams live as long as the client stays connected
		r.Group(func(r chi.Router) {
			r.Use(c.Sessions.RequireAuth)
			positionsHandler.RegisterStreamRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
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
