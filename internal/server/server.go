// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and a logger, then calls New, which creates:
//
//	user store (sqlite or postgres) ─┐
//	GitHubProvider (x/oauth2) ───────┴→ AuthService → AuthHandler
//	dashboard.Static ──────────────────→ DashboardHandler
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/devdash/internal/auth"
	"github.com/sakif/devdash/internal/config"
	"github.com/sakif/devdash/internal/dashboard"
	"github.com/sakif/devdash/internal/handler"
	"github.com/sakif/devdash/internal/middleware"
	"github.com/sakif/devdash/internal/repository"
	pgRepo "github.com/sakif/devdash/internal/repository/postgres"
	sqliteRepo "github.com/sakif/devdash/internal/repository/sqlite"
	"github.com/sakif/devdash/internal/secret"
	"github.com/sakif/devdash/internal/service"
)

// userStore is a UserRepository the server owns and must close on shutdown.
type userStore interface {
	repository.UserRepository
	Close() error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the user store. When the server shuts down, we close it to
// flush pending writes (sqlite WAL) or drain the pool (postgres).
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  userStore
}

// New creates a new Server from cfg.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Build the token sealer and open the user store (runs migrations)
//  2. Build the GitHub OAuth client and the auth service
//  3. Wire handlers to routes
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	sealer, err := secret.FromConfig(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("building token sealer: %w", err)
	}

	store, err := openStore(cfg, sealer)
	if err != nil {
		return nil, fmt.Errorf("opening user store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close() // Clean up the store if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks postgres when DATABASE_URL holds a postgres DSN and sqlite
// at DB_PATH otherwise.
func openStore(cfg config.Config, sealer secret.Sealer) (userStore, error) {
	if cfg.UsePostgres() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return pgRepo.New(ctx, cfg.DatabaseURL, sealer)
	}

	if cfg.DBPath != ":memory:" {
		// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return sqliteRepo.New(cfg.DBPath, sqliteRepo.WithSealer(sealer))
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET /api/health            → liveness (JSON)
// GET /api/dashboard         → dashboard payload (JSON)
// GET /auth/github           → redirect to GitHub
// GET /auth/github/callback  → finish login, redirect to /dashboard.html
// GET /*                     → frontend static files
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with timing info and the request ID
// 4. Recoverer — catches panics and returns 500 instead of crashing
// 5. CORS — only when CORS_ORIGINS is set (frontend served elsewhere)
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	// === Auth ===
	// DEPENDENCY CHAIN:
	//   GitHubProvider + store → AuthService → AuthHandler
	github := auth.NewGitHubProvider(auth.GitHubConfig{
		ClientID:     s.config.GitHub.ClientID,
		ClientSecret: s.config.GitHub.ClientSecret,
		RedirectURL:  s.config.GitHub.RedirectURL,
		AuthURL:      s.config.GitHub.AuthURL,
		TokenURL:     s.config.GitHub.TokenURL,
		UserURL:      s.config.GitHub.UserURL,
		Timeout:      s.config.GitHub.Timeout,
	})

	var states *auth.StateSigner
	if s.config.OAuthStateSecret != "" {
		var err error
		states, err = auth.NewStateSigner(s.config.OAuthStateSecret)
		if err != nil {
			return fmt.Errorf("creating state signer: %w", err)
		}
	} else {
		s.logger.Warn("OAUTH_STATE_SECRET not set, OAuth state is not verified")
	}

	authService := service.NewAuthService(github, s.store, s.logger,
		service.WithStoreRetries(s.config.StoreRetries),
	)
	authHandler := handler.NewAuthHandler(authService, states, s.logger)

	s.router.Get("/auth/github", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	// === API Routes ===
	healthHandler := handler.NewHealthHandler(nil)
	dashboardHandler := handler.NewDashboardHandler(dashboard.Static{}, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/dashboard", dashboardHandler.HandleDashboard)
	})

	// === Static Files ===
	// Registered last: chi matches the more specific routes above first.
	s.router.Handle("/*", handler.NewStaticHandler(s.config.FrontendDir))

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the user store. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start runs the server until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves HTTP until ctx is cancelled.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the user store
func (s *Server) Run(ctx context.Context) error {
	// Ensure the store is closed when the server stops.
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		base := s.config.BaseURL()
		s.logger.Info("DevDashboard API running", slog.String("url", base))
		s.logger.Info("dashboard endpoint", slog.String("url", base+"/api/dashboard"))
		s.logger.Info("GitHub auth endpoint", slog.String("url", base+"/auth/github"))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		// Give in-flight requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
