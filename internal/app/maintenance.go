package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// MaxSeedVotes is the upper bound of the random counters set by Prepopulate.
const MaxSeedVotes = 999_999

// DefaultMaintenanceWorkers is used when a job is started without a worker count.
const DefaultMaintenanceWorkers = 4

// ErrImagesDisabled is returned by BackfillImages when no image searcher is configured.
var ErrImagesDisabled = errors.New("image search is not configured")

// PrepopulateOptions controls a Prepopulate run.
type PrepopulateOptions struct {
	Count       int
	RandomLikes bool
	Workers     int
}

// Prepopulate fetches opts.Count quotes from random external sources, one
// attempt each. With RandomLikes every stored quote gets random counters in
// [0, MaxSeedVotes].
func (s *QuoteService) Prepopulate(ctx context.Context, opts PrepopulateOptions) (Tally, error) {
	if opts.Count < 1 {
		return Tally{}, domain.NewValidationErrorWithValue("count", "must be at least 1", opts.Count)
	}

	// Fail fast on a registry without external sources instead of failing
	// every job with the same configuration error.
	if _, err := s.chooseSource(ctx, domain.DatabaseSource); err != nil {
		return Tally{}, err
	}

	logger := s.log(ctx)
	start := time.Now()

	jobs := make([]func(context.Context) (*domain.Quote, error), opts.Count)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) (*domain.Quote, error) {
			return s.prepopulateOne(ctx, opts.RandomLikes)
		}
	}

	results := ParallelPartialLimit(ctx, workerCount(opts.Workers), jobs...)
	for _, r := range results {
		if r.Err != nil {
			logger.WarnContext(ctx, "prepopulate job failed", slog.Any("error", r.Err))
		}
	}

	tally := TallyResults(results)
	logger.InfoContext(ctx, "prepopulate finished",
		slog.Int("succeeded", tally.Succeeded),
		slog.Int("failed", tally.Failed),
		slog.Duration("elapsed", time.Since(start)),
	)

	return tally, ctx.Err()
}

func (s *QuoteService) prepopulateOne(ctx context.Context, randomLikes bool) (*domain.Quote, error) {
	source, err := s.sources.ChooseSource(domain.DatabaseSource)
	if err != nil {
		return nil, err
	}

	quote, err := s.FetchAndStoreFromAPI(ctx, source.ClientKey())
	if err != nil {
		return nil, err
	}

	if randomLikes {
		likes := rand.Int64N(MaxSeedVotes + 1)
		dislikes := rand.Int64N(MaxSeedVotes + 1)

		if err := s.repo.SetVotes(ctx, quote.ID, likes, dislikes); err != nil {
			return nil, err
		}

		quote.Likes, quote.Dislikes = likes, dislikes
	}

	return quote, nil
}

// BackfillImages looks up images for up to count quotes that have none,
// oldest first. The query is the origin client's fixed image query, falling
// back to the category name. A lookup without a result counts as a failure.
func (s *QuoteService) BackfillImages(ctx context.Context, count, workers int) (Tally, error) {
	if s.images == nil {
		return Tally{}, ErrImagesDisabled
	}

	if count < 1 {
		return Tally{}, domain.NewValidationErrorWithValue("count", "must be at least 1", count)
	}

	logger := s.log(ctx)
	start := time.Now()

	quotes, err := s.repo.QuotesMissingImage(ctx, count)
	if err != nil {
		return Tally{}, err
	}

	if len(quotes) == 0 {
		logger.InfoContext(ctx, "no quotes are missing an image")
		return Tally{}, nil
	}

	logger.InfoContext(ctx, "backfilling images", slog.Int("quotes", len(quotes)))

	jobs := make([]func(context.Context) (struct{}, error), len(quotes))
	for i, q := range quotes {
		jobs[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.backfillOne(ctx, q)
		}
	}

	results := ParallelPartialLimit(ctx, workerCount(workers), jobs...)
	for i, r := range results {
		if r.Err != nil {
			logger.WarnContext(ctx, "image backfill failed",
				slog.String("quote_guid", quotes[i].GUID.String()),
				slog.Any("error", r.Err),
			)
		}
	}

	tally := TallyResults(results)
	logger.InfoContext(ctx, "image backfill finished",
		slog.Int("succeeded", tally.Succeeded),
		slog.Int("failed", tally.Failed),
		slog.Duration("elapsed", time.Since(start)),
	)

	return tally, ctx.Err()
}

func (s *QuoteService) backfillOne(ctx context.Context, q *domain.Quote) error {
	query := s.imageQueryFor(q)
	if query == "" {
		return domain.NewValidationError("image_search_query", "quote has no category or image query")
	}

	image, err := s.images.SearchImage(ctx, query)
	if err != nil {
		return err
	}

	if image == nil || image.URL == "" {
		return domain.NewUnavailableError("image search", "no image for "+query)
	}

	return s.repo.SetImage(ctx, q.ID, *image)
}

// imageQueryFor returns the image query of the client a quote came from, or
// the quote's category name.
func (s *QuoteService) imageQueryFor(q *domain.Quote) string {
	if q.Origin != nil {
		if client, ok := s.sources.Client(q.Origin.APIClientKey); ok {
			if query := client.ImageSearchQuery(); query != "" {
				return query
			}
		}
	}

	if q.Category != nil {
		return q.Category.Name
	}

	return ""
}

func workerCount(n int) int {
	if n < 1 {
		return DefaultMaintenanceWorkers
	}

	return n
}
