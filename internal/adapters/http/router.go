package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/handlers"
	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/middleware"
	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
	"github.com/nico-vromans/random-quote-generator/internal/platform/telemetry"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

// DefaultRequestTimeout bounds a request when RouterConfig.Timeout is zero.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains everything SetupRouter mounts.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names the server spans.
	ServiceName string

	// AuthConfig controls the admin routes. They are only mounted when
	// authentication is enabled; quotectl covers local maintenance.
	AuthConfig *config.AuthConfig

	HealthHandler *handlers.HealthHandler
	QuoteHandler  *handlers.QuoteHandler
	AdminHandler  *handlers.AdminHandler

	// VoteLimiter throttles the like and dislike endpoints per client IP.
	// Nil disables throttling.
	VoteLimiter ports.RateLimiter
	VoteWindow  time.Duration

	// Timeout is the deadline of quote and admin requests.
	Timeout time.Duration
}

// SetupRouter installs middleware and routes on engine.
// Global middleware runs in this order:
//  1. Recovery, so panics anywhere below become a 500 envelope
//  2. Request and correlation IDs
//  3. OpenTelemetry tracing and metrics, then the trace ID
//  4. Request logging, which skips the /-/ probes
//
// Routes:
//   - /-/live, /-/ready, /-/build, /-/metrics without auth or timeout
//   - /quotes/... public, with vote throttling on like and dislike
//   - /admin/quotes/... behind RequireAuth and the admin role
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(
		middleware.TraceID(),
		middleware.Logging(cfg.Logger),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.Mount(engine)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	api := engine.Group("", middleware.Deadline(timeout))

	if cfg.QuoteHandler != nil {
		var voteMiddleware []gin.HandlerFunc
		if cfg.VoteLimiter != nil {
			voteMiddleware = append(voteMiddleware, middleware.RateLimit(cfg.VoteLimiter, cfg.VoteWindow, cfg.Logger))
		}

		cfg.QuoteHandler.RegisterQuoteRoutes(api, voteMiddleware...)
	}

	if cfg.AdminHandler != nil && cfg.AuthConfig != nil && cfg.AuthConfig.Enabled {
		cfg.AdminHandler.RegisterAdminRoutes(api,
			middleware.RequireAuth(cfg.AuthConfig),
			middleware.RequireRole(cfg.AuthConfig, cfg.AuthConfig.AdminRole),
		)
	}
}

// SetupMinimalRouter mounts only recovery, request IDs and the probes.
func SetupMinimalRouter(engine *gin.Engine, logger *slog.Logger, healthHandler *handlers.HealthHandler) {
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
	)

	if healthHandler != nil {
		healthHandler.Mount(engine)
	}
}
