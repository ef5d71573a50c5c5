// Package ports defines the interfaces the application layer depends on.
// Adapters (SQL store, Redis, quote and image APIs) implement them, so the
// orchestration logic never imports infrastructure packages.
//
// Port conventions:
//   - Context is always the first parameter
//   - Methods return domain types, never driver rows or API DTOs
//   - Failures use domain errors (ErrNotFound, ErrUnavailable, DuplicateQuoteError)
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// QuoteRepository persists quotes and the entities they reference.
type QuoteRepository interface {
	// RandomQuote returns a uniformly random quote. When category is not empty
	// only quotes whose category name contains it (case-insensitive) qualify.
	// Returns nil, nil when nothing matches.
	RandomQuote(ctx context.Context, category string) (*domain.Quote, error)

	// GetOrCreateAuthor resolves an author by exact name, inserting it if absent.
	GetOrCreateAuthor(ctx context.Context, name string) (*domain.Author, error)

	// GetOrCreateCategory resolves a category by exact name, inserting it if absent.
	GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error)

	// GetOrCreateOrigin resolves an origin by (url, client key), inserting it if absent.
	GetOrCreateOrigin(ctx context.Context, url, clientKey string) (*domain.QuoteOrigin, error)

	// GetOrCreateQuote returns the quote matching every field of the natural
	// key, or inserts a new one with zero votes. created reports an insert.
	// A unique violation on the text returns *domain.DuplicateQuoteError.
	GetOrCreateQuote(ctx context.Context, q domain.NewQuote) (quote *domain.Quote, created bool, err error)

	// GetQuote returns the quote with the given guid or domain.ErrNotFound.
	GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error)

	// ListQuotes returns up to limit quotes with an id greater than afterID,
	// ordered by id.
	ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error)

	// MostLiked returns up to limit quotes ordered by likes, highest first.
	MostLiked(ctx context.Context, limit int) ([]*domain.Quote, error)

	// ApplyVote updates both counters of one quote in a single row update and
	// returns the updated quote. Returns domain.ErrNotFound for unknown guids.
	ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error)

	// SetVotes overwrites both counters. Used when seeding data.
	SetVotes(ctx context.Context, id, likes, dislikes int64) error

	// QuotesMissingImage returns up to limit quotes without an image, oldest first.
	QuotesMissingImage(ctx context.Context, limit int) ([]*domain.Quote, error)

	// SetImage attaches an image to a quote.
	SetImage(ctx context.Context, id int64, image domain.Image) error
}

// QuoteClient is an external quote API.
type QuoteClient interface {
	// Key is the registry key, also persisted on QuoteOrigin.
	Key() string

	// FetchRandomQuote asks the API for one random quote.
	// Network, status and decoding failures return *domain.UnavailableError.
	FetchRandomQuote(ctx context.Context) (*domain.QuoteData, error)

	// ImageSearchQuery returns the fixed image query of this client, or ""
	// when the quote's category should be used.
	ImageSearchQuery() string
}

// ImageSearcher looks up an illustrative image for a search query.
type ImageSearcher interface {
	// SearchImage returns one image for the query.
	// Returns domain.ErrUnavailable when the lookup fails.
	SearchImage(ctx context.Context, query string) (*domain.Image, error)
}

// Cache defines the contract for caching operations.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with optional TTL.
	// A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error

	// Delete removes a value from the cache.
	// Does not return an error if the key does not exist.
	Delete(ctx context.Context, key string) error
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	// Allow records one hit for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}
