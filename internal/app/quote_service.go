// Package app contains the quote use cases: the random quote orchestrator,
// voting and the maintenance jobs that fill the database.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

// DefaultMaxFetchAttempts bounds the external retry loop of FetchRandomQuote.
const DefaultMaxFetchAttempts = 10

const operationFetchAndStore = "fetch_and_store_quote"

// QuoteService orchestrates quote use cases. It depends on port interfaces
// only; adapters are injected at startup.
type QuoteService struct {
	repo             ports.QuoteRepository
	sources          *SourceRegistry
	images           ports.ImageSearcher
	executor         *Executor
	metrics          *Metrics
	tracer           trace.Tracer
	logger           *slog.Logger
	maxFetchAttempts int
}

// QuoteServiceConfig contains the dependencies of a QuoteService.
type QuoteServiceConfig struct {
	Repository ports.QuoteRepository
	Sources    *SourceRegistry

	// Images is optional. Without it quotes are stored without an image.
	Images ports.ImageSearcher

	// Metrics is optional.
	Metrics *Metrics

	Logger *slog.Logger

	// MaxFetchAttempts defaults to DefaultMaxFetchAttempts.
	MaxFetchAttempts int
}

// NewQuoteService creates a quote service. It panics when the repository or
// the source registry is missing.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Repository == nil {
		panic("QuoteService: repository is required")
	}

	if cfg.Sources == nil {
		panic("QuoteService: source registry is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.MaxFetchAttempts < 1 {
		cfg.MaxFetchAttempts = DefaultMaxFetchAttempts
	}

	return &QuoteService{
		repo:             cfg.Repository,
		sources:          cfg.Sources,
		images:           cfg.Images,
		executor:         NewExecutor(cfg.Logger),
		metrics:          cfg.Metrics,
		tracer:           otel.Tracer(instrumentationName),
		logger:           cfg.Logger,
		maxFetchAttempts: cfg.MaxFetchAttempts,
	}
}

// Sources returns the registry the service draws from.
func (s *QuoteService) Sources() *SourceRegistry {
	return s.sources
}

// FetchRandomQuote returns a quote from a randomly chosen source.
//
// When the database is chosen and holds a quote, that quote is returned.
// Otherwise up to maxFetchAttempts external sources are tried, re-rolling
// the source on every attempt. When all of them fail the database is queried
// once more. A nil quote with a nil error means no quote exists anywhere.
//
// A *domain.NoAvailableSourceError is returned as is and must not be treated
// as "no quote found".
func (s *QuoteService) FetchRandomQuote(ctx context.Context) (*domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "QuoteService.FetchRandomQuote")
	defer span.End()

	logger := s.log(ctx)

	source, err := s.chooseSource(ctx)
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "quote source chosen", slog.String("source", source.String()))

	if source.IsDatabase() {
		quote, err := s.FetchFromDatabase(ctx, "")
		if err != nil {
			return nil, err
		}

		if quote != nil {
			s.metrics.recordAttempt(ctx, source.String(), outcomeSuccess)
			span.SetAttributes(attribute.String("quote.source", source.String()))

			return quote, nil
		}

		s.metrics.recordAttempt(ctx, source.String(), outcomeEmpty)
		logger.DebugContext(ctx, "database is empty, trying external sources")
	}

	for attempt := 1; attempt <= s.maxFetchAttempts; attempt++ {
		source, err := s.chooseSource(ctx, domain.DatabaseSource)
		if err != nil {
			return nil, err
		}

		quote, err := s.FetchAndStoreFromAPI(ctx, source.ClientKey())
		if err == nil {
			s.metrics.recordAttempt(ctx, source.String(), outcomeSuccess)
			span.SetAttributes(
				attribute.String("quote.source", source.String()),
				attribute.Int("quote.attempts", attempt),
			)

			return quote, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		s.metrics.recordAttempt(ctx, source.String(), attemptOutcome(err))
		logger.WarnContext(ctx, "quote fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.String("client_key", source.ClientKey()),
			slog.Any("error", err),
		)
	}

	s.metrics.recordExhausted(ctx)
	logger.WarnContext(ctx, "external quote sources exhausted, falling back to database",
		slog.Int("max_attempts", s.maxFetchAttempts),
	)

	return s.FetchFromDatabase(ctx, "")
}

// FetchFromDatabase returns a random stored quote, restricted to categories
// whose name contains category when it is not empty. It returns nil, nil
// when nothing matches.
func (s *QuoteService) FetchFromDatabase(ctx context.Context, category string) (*domain.Quote, error) {
	return s.repo.RandomQuote(ctx, category)
}

// fetched carries a verified payload into the archive step and the stored
// quote out of it.
type fetched struct {
	data  *domain.QuoteData
	quote *domain.Quote
}

// FetchAndStoreFromAPI fetches one quote from the client registered under
// clientKey and stores it, reusing an identical stored quote when there is
// one.
//
// API failures return a *domain.UnavailableError and text collisions a
// *domain.DuplicateQuoteError. Both are wrapped in an *ExecutionError.
func (s *QuoteService) FetchAndStoreFromAPI(ctx context.Context, clientKey string) (*domain.Quote, error) {
	ctx = logging.WithContext(ctx, s.log(ctx).With(slog.String("client_key", clientKey)))

	return Execute(ctx, s.executor, Operation[string, *domain.QuoteData, *fetched, *domain.Quote]{
		Name: operationFetchAndStore,
		Validate: func(_ context.Context, key string) error {
			if _, ok := s.sources.Client(key); !ok {
				return domain.NewValidationErrorWithValue("client_key", "no quote client registered", key)
			}
			return nil
		},
		Perform: func(ctx context.Context, key string) (*domain.QuoteData, error) {
			client, _ := s.sources.Client(key)
			return client.FetchRandomQuote(ctx)
		},
		Verify: func(_ context.Context, key string, data *domain.QuoteData) (*fetched, error) {
			if data == nil {
				return nil, domain.NewUnavailableError(key, "empty response")
			}

			if err := data.Validate(); err != nil {
				return nil, domain.NewUnavailableError(key, err.Error())
			}

			return &fetched{data: data}, nil
		},
		Archive: func(ctx context.Context, _ string, f *fetched) error {
			quote, err := s.store(ctx, f.data)
			if err != nil {
				return err
			}
			f.quote = quote
			return nil
		},
		Respond: func(_ context.Context, _ string, f *fetched) (*domain.Quote, error) {
			return f.quote, nil
		},
	}, clientKey)
}

// store resolves the related rows, looks up an image and upserts the quote.
func (s *QuoteService) store(ctx context.Context, data *domain.QuoteData) (*domain.Quote, error) {
	var nq domain.NewQuote

	nq.Text = data.Text

	if data.Author != "" {
		author, err := s.repo.GetOrCreateAuthor(ctx, data.Author)
		if err != nil {
			return nil, err
		}
		nq.AuthorID = &author.ID
	}

	if data.Category != "" {
		category, err := s.repo.GetOrCreateCategory(ctx, data.Category)
		if err != nil {
			return nil, err
		}
		nq.CategoryID = &category.ID
	}

	origin, err := s.repo.GetOrCreateOrigin(ctx, data.OriginURL, data.APIClientKey)
	if err != nil {
		return nil, err
	}
	nq.OriginID = &origin.ID

	nq.Image = s.lookupImage(ctx, data.SearchQuery())

	quote, created, err := s.repo.GetOrCreateQuote(ctx, nq)
	if err != nil {
		return nil, err
	}

	s.log(ctx).DebugContext(ctx, "quote stored",
		slog.String("quote", quote.String()),
		slog.Bool("created", created),
	)

	return quote, nil
}

// lookupImage returns an image for query, or nil when there is no image
// searcher, no query or the lookup fails.
func (s *QuoteService) lookupImage(ctx context.Context, query string) *domain.Image {
	if s.images == nil || query == "" {
		return nil
	}

	image, err := s.images.SearchImage(ctx, query)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "image lookup failed",
			slog.String("query", query),
			slog.Any("error", err),
		)
		return nil
	}

	return image
}

// ApplyVote applies vote to the quote with the given guid and returns the
// updated quote.
func (s *QuoteService) ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error) {
	if err := vote.Validate(); err != nil {
		return nil, err
	}

	quote, err := s.repo.ApplyVote(ctx, guid, vote)
	if err != nil {
		return nil, err
	}

	s.metrics.recordVote(ctx, string(vote.Kind), string(vote.Direction))
	s.log(ctx).InfoContext(ctx, "vote applied",
		slog.String("quote_guid", guid.String()),
		slog.String("kind", string(vote.Kind)),
		slog.String("direction", string(vote.Direction)),
		slog.Bool("reverse_opposite", vote.ReverseOpposite),
	)

	return quote, nil
}

// GetQuote returns the quote with the given guid.
func (s *QuoteService) GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error) {
	return s.repo.GetQuote(ctx, guid)
}

// ListQuotes returns up to limit quotes after the cursor id, ordered by id.
func (s *QuoteService) ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error) {
	return s.repo.ListQuotes(ctx, afterID, limit)
}

// MostLiked returns up to count quotes ordered by likes, highest first.
func (s *QuoteService) MostLiked(ctx context.Context, count int) ([]*domain.Quote, error) {
	return s.repo.MostLiked(ctx, count)
}

func (s *QuoteService) chooseSource(ctx context.Context, exclude ...domain.QuoteSource) (domain.QuoteSource, error) {
	source, err := s.sources.ChooseSource(exclude...)
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "no quote source available", slog.Any("error", err))
		return domain.QuoteSource{}, err
	}

	return source, nil
}

func (s *QuoteService) log(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger)
}

func attemptOutcome(err error) string {
	switch {
	case domain.IsDuplicateQuote(err):
		return outcomeDuplicate
	case domain.IsUnavailable(err):
		return outcomeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}
