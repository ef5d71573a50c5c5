package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/nico-vromans/random-quote-generator/app"

// Attempt outcomes recorded on quotes.fetch.attempts.
const (
	outcomeSuccess     = "success"
	outcomeUnavailable = "unavailable"
	outcomeDuplicate   = "duplicate"
	outcomeError       = "error"
	outcomeEmpty       = "empty"
)

// Metrics holds the orchestrator instruments. A nil *Metrics records nothing.
type Metrics struct {
	fetchAttempts metric.Int64Counter
	exhausted     metric.Int64Counter
	votes         metric.Int64Counter
}

// NewMetrics creates the orchestrator instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	fetchAttempts, err := meter.Int64Counter(
		"quotes.fetch.attempts",
		metric.WithDescription("Quote fetch attempts by source and outcome"),
	)
	if err != nil {
		return nil, err
	}

	exhausted, err := meter.Int64Counter(
		"quotes.fetch.exhausted",
		metric.WithDescription("External fetch loops that hit the attempt limit"),
	)
	if err != nil {
		return nil, err
	}

	votes, err := meter.Int64Counter(
		"quotes.votes",
		metric.WithDescription("Votes applied by kind and direction"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		fetchAttempts: fetchAttempts,
		exhausted:     exhausted,
		votes:         votes,
	}, nil
}

func (m *Metrics) recordAttempt(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}

	m.fetchAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("quote.source", source),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) recordExhausted(ctx context.Context) {
	if m == nil {
		return
	}

	m.exhausted.Add(ctx, 1)
}

func (m *Metrics) recordVote(ctx context.Context, kind, direction string) {
	if m == nil {
		return
	}

	m.votes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("vote.kind", kind),
		attribute.String("vote.direction", direction),
	))
}
