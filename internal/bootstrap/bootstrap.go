// Package bootstrap builds the object graph shared by the HTTP service and
// quotectl: configuration, logging, the store, Redis, the quote and image
// clients, the source registry and the quote service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/cache/rediscache"
	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients/acl"
	"github.com/nico-vromans/random-quote-generator/internal/adapters/storage/sqlstore"
	"github.com/nico-vromans/random-quote-generator/internal/app"
	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

const (
	imageCacheNamespace = "images"
	voteLimitNamespace  = "votes"
)

// LoadConfig loads the profile named by APP_ENVIRONMENT (default local) and
// validates it.
func LoadConfig() (*config.Config, error) {
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the process logger from cfg and installs it as default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	return logger
}

// Deps is the wired application. Close releases the store and Redis.
type Deps struct {
	Store   *sqlstore.Store
	Redis   *rediscache.Client
	Service *app.QuoteService

	// VoteLimiter is nil when Redis is disabled or vote_limit is 0.
	VoteLimiter ports.RateLimiter

	// Health holds the store as a required check and Redis and the quote
	// APIs as optional ones.
	Health *ports.Registry
}

// Build opens the store and Redis, creates a client per enabled source and
// assembles the quote service.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deps *Deps, err error) {
	deps = &Deps{Health: ports.NewHealthRegistry()}

	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	deps.Store, err = sqlstore.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return deps, fmt.Errorf("opening database: %w", err)
	}

	if err = deps.Health.Register(deps.Store); err != nil {
		return deps, err
	}

	var cache ports.Cache

	if cfg.Redis.Enabled {
		deps.Redis, err = rediscache.New(ctx, cfg.Redis.URL, cfg.App.Name)
		if err != nil {
			return deps, err
		}

		if err = deps.Health.RegisterOptional(deps.Redis); err != nil {
			return deps, err
		}

		cache = rediscache.NewCache(deps.Redis, imageCacheNamespace)

		if cfg.Redis.VoteLimit > 0 {
			deps.VoteLimiter, err = rediscache.NewFixedWindowLimiter(deps.Redis, voteLimitNamespace,
				cfg.Redis.VoteLimit, cfg.Redis.VoteWindow)
			if err != nil {
				return deps, err
			}
		}
	}

	quoteClients, err := buildQuoteClients(cfg, logger)
	if err != nil {
		return deps, err
	}

	for _, qc := range quoteClients {
		if err = deps.Health.RegisterOptional(qc); err != nil {
			return deps, err
		}
	}

	registry, err := app.NewSourceRegistry(toPorts(quoteClients)...)
	if err != nil {
		return deps, fmt.Errorf("building source registry: %w", err)
	}

	images, err := buildImageSearcher(cfg, cache, logger)
	if err != nil {
		return deps, err
	}

	metrics, err := app.NewMetrics()
	if err != nil {
		return deps, fmt.Errorf("creating metrics: %w", err)
	}

	deps.Service = app.NewQuoteService(app.QuoteServiceConfig{
		Repository:       deps.Store,
		Sources:          registry,
		Images:           images,
		Metrics:          metrics,
		Logger:           logger,
		MaxFetchAttempts: cfg.Quotes.MaxFetchAttempts,
	})

	logger.Info("quote sources ready",
		slog.Any("sources", registry.ListSources()),
		slog.Bool("images", images != nil),
		slog.Bool("redis", deps.Redis != nil),
	)

	return deps, nil
}

// Close releases what Build opened.
func (d *Deps) Close() error {
	var errs []error

	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}

	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}

	return errors.Join(errs...)
}

func buildQuoteClients(cfg *config.Config, logger *slog.Logger) ([]*acl.QuoteAPI, error) {
	type source struct {
		key  string
		cfg  config.SourceConfig
		auth func(*http.Request)
		wrap func(*clients.Client, *slog.Logger) *acl.QuoteAPI
	}

	sources := []source{
		{key: acl.APINinjasKey, cfg: cfg.Sources.APINinjas, wrap: acl.NewAPINinjasClient},
		{key: acl.ProgrammingKey, cfg: cfg.Sources.Programming, wrap: acl.NewProgrammingClient},
		{key: acl.ZenKey, cfg: cfg.Sources.Zen, wrap: acl.NewZenClient},
	}

	out := make([]*acl.QuoteAPI, 0, len(sources))

	for _, s := range sources {
		if !s.cfg.Enabled {
			continue
		}

		if s.key == acl.APINinjasKey {
			if s.cfg.APIKey == "" {
				logger.Warn("skipping quote source without api key", slog.String("source", s.key))
				continue
			}

			s.auth = acl.APIKeyHeader(s.cfg.APIKey)
		}

		hc, err := newHTTPClient(cfg, s.key, s.cfg.BaseURL, s.auth, logger)
		if err != nil {
			return nil, err
		}

		out = append(out, s.wrap(hc, logger))
	}

	return out, nil
}

func buildImageSearcher(cfg *config.Config, cache ports.Cache, logger *slog.Logger) (ports.ImageSearcher, error) {
	if !cfg.Images.Enabled {
		return nil, nil //nolint:nilnil // no searcher configured
	}

	hc, err := newHTTPClient(cfg, acl.UnsplashServiceName, cfg.Images.BaseURL, acl.ClientIDQuery(cfg.Images.ClientID), logger)
	if err != nil {
		return nil, err
	}

	var searcher ports.ImageSearcher = acl.NewUnsplashClient(hc, logger)
	if cache != nil {
		searcher = acl.NewCachedImageSearcher(searcher, cache, cfg.Redis.ImageCacheTTL, logger)
	}

	return searcher, nil
}

func newHTTPClient(cfg *config.Config, name, baseURL string, auth func(*http.Request), logger *slog.Logger) (*clients.Client, error) {
	hc, err := clients.New(&clients.Config{
		BaseURL:     baseURL,
		ServiceName: name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		AuthFunc:    auth,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", name, err)
	}

	return hc, nil
}

func toPorts(apis []*acl.QuoteAPI) []ports.QuoteClient {
	out := make([]ports.QuoteClient, len(apis))
	for i, a := range apis {
		out[i] = a
	}

	return out
}
