package acl

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

const imageCacheKeyPrefix = "image:"

// cachedImage is the JSON stored per query.
type cachedImage struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

// CachedImageSearcher decorates an ImageSearcher with a cache keyed by the
// normalized query. Cache failures are logged and fall through to the
// underlying searcher.
type CachedImageSearcher struct {
	next   ports.ImageSearcher
	cache  ports.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedImageSearcher wraps next. A ttl below one second disables expiry.
func NewCachedImageSearcher(next ports.ImageSearcher, cache ports.Cache, ttl time.Duration, logger *slog.Logger) *CachedImageSearcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedImageSearcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

// SearchImage implements ports.ImageSearcher.
func (s *CachedImageSearcher) SearchImage(ctx context.Context, query string) (*domain.Image, error) {
	key := imageCacheKeyPrefix + strings.ToLower(strings.TrimSpace(query))

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var c cachedImage
		if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil && c.URL != "" {
			return &domain.Image{URL: c.URL, AltText: c.AltText}, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.WarnContext(ctx, "image cache read failed", slog.Any("error", err))
	}

	img, err := s.next.SearchImage(ctx, query)
	if err != nil {
		return nil, err
	}

	raw, err = json.Marshal(cachedImage{URL: img.URL, AltText: img.AltText})
	if err == nil {
		err = s.cache.Set(ctx, key, raw, int(s.ttl/time.Second))
	}
	if err != nil {
		s.logger.WarnContext(ctx, "image cache write failed", slog.Any("error", err))
	}

	return img, nil
}
