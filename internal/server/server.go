// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: every dependency is created and
// wired here, in New and setupRoutes.
//
//	config → sqlite.DB → UserService → UserHandler → chi routes
//
// Keeping it out of main.go makes the whole stack testable through
// Server.Handler() without binding a port.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/usersvc/internal/auth"
	"github.com/sakif/usersvc/internal/config"
	"github.com/sakif/usersvc/internal/handler"
	"github.com/sakif/usersvc/internal/metrics"
	"github.com/sakif/usersvc/internal/middleware"
	sqliteRepo "github.com/sakif/usersvc/internal/repository/sqlite"
	"github.com/sakif/usersvc/internal/service"
)

// APIPrefix is the path prefix of the versioned API.
const APIPrefix = "/api/v1"

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on return;
// callers that never Start must call Close.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
}

// New opens the database and wires the router.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo to keep it apart from the
// modernc sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path,
		sqliteRepo.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		sqliteRepo.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.Security.APIKey == "" {
		logger.Warn("API_KEY is not set; every /users request will be rejected with 403")
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                     → database ping (no API key)
// GET    /metrics                     → Prometheus exposition (no API key)
// POST   /api/v1/users/               → create user
// GET    /api/v1/users/{user_id}      → read user
// PUT    /api/v1/users/{user_id}      → partial update
// DELETE /api/v1/users/{user_id}      → delete user
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: every later log line can carry the ID
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: turns a panic into a 500 the logger still sees
// 5. PrometheusMetrics: innermost, so the chi route pattern is resolved
//
// The API key check is scoped to /users and runs before any body is read.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.PrometheusMetrics(s.metrics))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// DEPENDENCY CHAIN:
	//   s.db.Users() (*sqlite.UserDB) → implements repository.Store
	//   UserService receives the Store interface
	//   UserHandler receives the service
	userService := service.NewUserService(s.db.Users(), s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	s.router.Route(APIPrefix, func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireAPIKey(s.config.Security.APIKey, s.logger))

			r.Post("/", userHandler.HandleCreate)
			r.Get("/{user_id}", userHandler.HandleGet)
			r.Put("/{user_id}", userHandler.HandleUpdate)
			r.Delete("/{user_id}", userHandler.HandleDelete)
		})
	})
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (server.shutdown_timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Migrate opens the database at cfg.Database.Path, creates the schema if it
// is missing, and closes it again.
func Migrate(cfg config.Config, logger *slog.Logger) error {
	db, err := sqliteRepo.New(cfg.Database.Path, sqliteRepo.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("schema is up to date", slog.String("database", cfg.Database.Path))
	return db.Close()
}
