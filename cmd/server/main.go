// Package main is the entry point for the OpenForge API server.
//
// main reads the configuration, opens the store, builds the upstream clients
// and hands everything to internal/server. All behaviour lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/openforge/openforge-api/internal/auth"
	"github.com/openforge/openforge-api/internal/clerk"
	"github.com/openforge/openforge-api/internal/config"
	"github.com/openforge/openforge-api/internal/github"
	"github.com/openforge/openforge-api/internal/metrics"
	"github.com/openforge/openforge-api/internal/repository"
	"github.com/openforge/openforge-api/internal/repository/mongostore"
	"github.com/openforge/openforge-api/internal/repository/sqlite"
	"github.com/openforge/openforge-api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("opening store",
			slog.String("driver", cfg.Store.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	if cfg.Clerk.SecretKey == "" {
		logger.Warn("CLERK_SECRET_KEY not set: profiles and GitHub tokens will not be fetched from Clerk")
	}
	clerkClient := clerk.New(cfg.Clerk.APIURL, cfg.Clerk.SecretKey, nil, logger)

	gh := github.New(github.Options{
		BaseURL: cfg.GitHub.APIURL,
		Timeout: cfg.GitHub.Timeout,
		Limiter: rate.NewLimiter(rate.Limit(cfg.GitHub.RateLimit), cfg.GitHubBurst()),
		Metrics: rec,
		Logger:  logger,
	})
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN not set: marketplace calls are anonymous and repository creation needs a user token")
	}

	deps := server.Deps{
		Clerk:    clerkClient,
		GitHub:   gh,
		Selector: github.NewTokenSelector(gh, cfg.GitHub.Token, logger),
		Registry: reg,
		Recorder: rec,
	}

	if cfg.Clerk.JWKSURL != "" {
		// The context bounds the background JWKS refresh, so it lives as long
		// as the process.
		verifier, err := auth.NewClerkVerifier(context.Background(), cfg.Clerk.JWKSURL, cfg.Clerk.Issuer)
		if err != nil {
			logger.Error("loading Clerk JWKS", slog.String("error", err.Error()))
			os.Exit(1)
		}
		deps.Verifier = verifier
	} else {
		logger.Warn("CLERK_JWKS_URL not set: session tokens are not verified, requests identify users by user_id")
	}

	srv := server.New(cfg, logger, store, deps)
	if err := srv.Start(context.Background()); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger logs text in development and JSON in production.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.Store.Driver == config.DriverSQLite {
		path := cfg.SQLiteFile()
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
		}
		logger.Info("using sqlite store", slog.String("path", path))
		return sqlite.New(path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("using mongo store", slog.String("database", cfg.DatabaseName()))
	return mongostore.New(ctx, cfg.Store.MongoURL, cfg.DatabaseName(), logger)
}
