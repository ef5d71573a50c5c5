// Package main runs the quote API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http"
	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/handlers"
	"github.com/nico-vromans/random-quote-generator/internal/bootstrap"
	"github.com/nico-vromans/random-quote-generator/internal/platform/telemetry"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)
	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	telProvider, err := telemetry.Setup(ctx, &cfg.Telemetry, &cfg.App)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	deps, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.Error("closing dependencies", slog.Any("error", closeErr))
		}
	}()

	server := http.New(&cfg.Server, logger)

	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:        logger,
		ServiceName:   cfg.Telemetry.ServiceName,
		AuthConfig:    &cfg.Auth,
		HealthHandler: handlers.NewHealthHandler(deps.Health, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		QuoteHandler: handlers.NewQuoteHandler(deps.Service, handlers.QuoteHandlerConfig{
			MostLikedDefault: cfg.Quotes.MostLikedDefault,
			MostLikedMax:     cfg.Quotes.MostLikedMax,
		}),
		AdminHandler: handlers.NewAdminHandler(deps.Service, 0),
		VoteLimiter:  deps.VoteLimiter,
		VoteWindow:   cfg.Redis.VoteWindow,
		Timeout:      cfg.Server.RequestTimeout,
	})

	if !cfg.Auth.Enabled {
		logger.Warn("auth disabled, admin endpoints are not mounted; use quotectl for maintenance")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
