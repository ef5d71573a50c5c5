package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

// Registry keys of the external quote sources. They are persisted on every
// QuoteOrigin, so they must never change.
const (
	APINinjasKey   = "api_ninja_quote_api_client"
	ProgrammingKey = "programming_quote_api_client"
	ZenKey         = "zen_quote_api_client"
)

// Fixed image queries for sources whose quotes carry no useful category.
const (
	programmingCategory   = "programming"
	programmingImageQuery = "code,programming,programmer"
	zenCategory           = "zen"
	zenImageQuery         = "zen,yoga,mindfulness"
)

const fetchOperation = "fetch random quote"

// QuoteAPI implements ports.QuoteClient and ports.HealthChecker for one
// external quote API.
type QuoteAPI struct {
	up         upstream
	key        string
	path       string
	imageQuery string
	fetch      fetchFunc
	logger     *slog.Logger
}

type fetchFunc func(ctx context.Context, u upstream, path string) (*domain.QuoteData, error)

// apiNinjasQuote is one element of GET /v1/quotes.
type apiNinjasQuote struct {
	Quote    string `json:"quote"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

// programmingQuote is the body of GET /random.
type programmingQuote struct {
	Author string `json:"author"`
	Quote  string `json:"quote"`
}

// zenQuote is one element of GET /random. q is the text, a the author.
type zenQuote struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// NewAPINinjasClient returns the API Ninjas source. The client must send the
// X-Api-Key header; see [APIKeyHeader].
func NewAPINinjasClient(client *clients.Client, logger *slog.Logger) *QuoteAPI {
	return newQuoteAPI(client, APINinjasKey, "v1/quotes", "", logger,
		func(ctx context.Context, u upstream, path string) (*domain.QuoteData, error) {
			items, err := getJSON[[]apiNinjasQuote](ctx, u, path, nil, fetchOperation)
			if err != nil {
				return nil, err
			}

			q, err := first(u, items)
			if err != nil {
				return nil, err
			}

			category := strings.TrimSpace(q.Category)

			return &domain.QuoteData{
				Author:           strings.TrimSpace(q.Author),
				Category:         category,
				ImageSearchQuery: category,
				Text:             strings.TrimSpace(q.Quote),
			}, nil
		})
}

// NewProgrammingClient returns the programming quotes source.
func NewProgrammingClient(client *clients.Client, logger *slog.Logger) *QuoteAPI {
	return newQuoteAPI(client, ProgrammingKey, "random", programmingImageQuery, logger,
		func(ctx context.Context, u upstream, path string) (*domain.QuoteData, error) {
			q, err := getJSON[programmingQuote](ctx, u, path, nil, fetchOperation)
			if err != nil {
				return nil, err
			}

			return &domain.QuoteData{
				Author:   strings.TrimSpace(q.Author),
				Category: programmingCategory,
				Text:     strings.TrimSpace(q.Quote),
			}, nil
		})
}

// NewZenClient returns the ZenQuotes source.
func NewZenClient(client *clients.Client, logger *slog.Logger) *QuoteAPI {
	return newQuoteAPI(client, ZenKey, "random", zenImageQuery, logger,
		func(ctx context.Context, u upstream, path string) (*domain.QuoteData, error) {
			items, err := getJSON[[]zenQuote](ctx, u, path, nil, fetchOperation)
			if err != nil {
				return nil, err
			}

			q, err := first(u, items)
			if err != nil {
				return nil, err
			}

			return &domain.QuoteData{
				Author:   strings.TrimSpace(q.A),
				Category: zenCategory,
				Text:     strings.TrimSpace(q.Q),
			}, nil
		})
}

func newQuoteAPI(
	client *clients.Client,
	key, path, imageQuery string,
	logger *slog.Logger,
	fetch fetchFunc,
) *QuoteAPI {
	if client == nil {
		panic("QuoteAPI: client is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteAPI{
		up:         upstream{client: client, name: key},
		key:        key,
		path:       path,
		imageQuery: imageQuery,
		fetch:      fetch,
		logger:     logger.With(slog.String("quote_client", key)),
	}
}

// Key implements ports.QuoteClient.
func (c *QuoteAPI) Key() string {
	return c.key
}

// ImageSearchQuery implements ports.QuoteClient.
func (c *QuoteAPI) ImageSearchQuery() string {
	return c.imageQuery
}

// FetchRandomQuote implements ports.QuoteClient. The origin URL of the
// returned data is the API base URL.
func (c *QuoteAPI) FetchRandomQuote(ctx context.Context) (*domain.QuoteData, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.path))

	data, err := c.fetch(ctx, c.up, c.path)
	if err != nil {
		if domain.IsUnavailable(err) {
			return nil, err
		}
		return nil, domain.NewUnavailableError(c.key, err.Error())
	}

	if data.Text == "" {
		return nil, domain.NewUnavailableError(c.key, "response has no quote text")
	}

	data.OriginURL = c.up.client.BaseURL() + "/"
	data.APIClientKey = c.key

	if data.ImageSearchQuery == "" {
		data.ImageSearchQuery = c.imageQuery
	}

	c.logger.DebugContext(ctx, "fetched quote",
		slog.String("author", data.Author),
		slog.String("category", data.Category))

	return data, nil
}

// Name implements ports.HealthChecker.
func (c *QuoteAPI) Name() string {
	return c.key
}

// Check implements ports.HealthChecker. It reports the circuit breaker state
// and never calls the API.
func (c *QuoteAPI) Check(_ context.Context) error {
	if state := c.up.client.CircuitState(); state == clients.StateOpen {
		return fmt.Errorf("circuit breaker %s", state)
	}

	return nil
}

// APIKeyHeader returns a clients.Config AuthFunc that sends key as X-Api-Key.
func APIKeyHeader(key string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("X-Api-Key", key)
	}
}
