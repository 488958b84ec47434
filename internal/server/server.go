// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
//   - which middleware runs on which routes
//   - how services and handlers are assembled from the store and clients
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates the store and the upstream clients (Clerk, GitHub) and
// hands them over in Deps. New() builds services → handlers → routes.
// Tests pass fakes in Deps and drive the router through Handler().
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openforge/openforge-api/internal/auth"
	"github.com/openforge/openforge-api/internal/config"
	"github.com/openforge/openforge-api/internal/handler"
	"github.com/openforge/openforge-api/internal/metrics"
	"github.com/openforge/openforge-api/internal/middleware"
	"github.com/openforge/openforge-api/internal/repository"
	"github.com/openforge/openforge-api/internal/service"
)

// Deps are the collaborators main.go constructs.
type Deps struct {
	Clerk    service.ClerkAPI
	GitHub   service.GitHubAPI
	Selector service.TokenSelector

	// Verifier checks Clerk session tokens. Nil disables session auth and
	// every request must name its user with user_id.
	Verifier auth.Verifier

	// Registry is served on /metrics. Recorder must write into it.
	Registry *prometheus.Registry
	Recorder metrics.Recorder
}

// Server owns the router and the store. The store is closed on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New assembles the services and handlers and registers every route.
func New(cfg *config.Config, logger *slog.Logger, store repository.Store, deps Deps) *Server {
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and mounts the API.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: tags each request for the logs
//  2. RealIP: the rate limiter keys on the client, not the proxy
//  3. Recoverer: a panic becomes a 500 instead of killing the process
//  4. Logger and Metrics: see the final status code
//  5. CORS: answers preflights before auth runs
//  6. Identify: verifies the Clerk session token when one is sent
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(deps.Recorder))
	s.router.Use(middleware.CORS(s.config.AllowedOrigins()))

	if deps.Registry != nil {
		s.router.Handle("/metrics", metrics.Handler(deps.Registry))
	}

	allowFallback := s.config.Clerk.AllowUserIDParam
	if deps.Verifier == nil {
		// Without session verification user_id is the only identity there is.
		allowFallback = true
	}

	dashboards := service.NewDashboardService(s.store, deps.Clerk, s.logger)
	projects := service.NewProjectService(s.store, deps.Clerk, deps.GitHub, s.logger)
	repos := service.NewRepoService(s.store, deps.Clerk, deps.GitHub, deps.Selector,
		deps.Recorder, s.config.MarketplaceTopic, s.logger)
	marketplace := service.NewMarketplaceService(s.store, deps.GitHub, s.config.GitHub.Token,
		s.config.MarketplaceTopic, s.config.MarketplaceCacheTTL, deps.Recorder, s.logger)

	limiter := middleware.NewRateLimiter(s.config.CreateRepoPerMinute, s.config.CreateRepoBurst(),
		10*time.Minute, s.logger)

	api := &handler.API{
		Health:          handler.NewHealthHandler(s.store, s.logger),
		Dashboard:       handler.NewDashboardHandler(dashboards, allowFallback, s.logger),
		Projects:        handler.NewProjectHandler(projects, repos, allowFallback, s.logger),
		Marketplace:     handler.NewMarketplaceHandler(marketplace, s.logger),
		CreateRepoLimit: limiter.Middleware,
	}

	s.router.Group(func(r chi.Router) {
		r.Use(auth.Identify(deps.Verifier, s.logger))
		api.Routes(r)
	})
}

// Start serves until ctx is cancelled or the process gets SIGINT or SIGTERM,
// then drains in-flight requests for up to 30 seconds and closes the store.
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Repository creation makes several sequential GitHub calls.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Environment),
			slog.String("store", s.config.Store.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("cause", context.Cause(ctx).Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
