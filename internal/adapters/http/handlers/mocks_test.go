package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nico-vromans/random-quote-generator/internal/app"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

type mockQuoteService struct {
	mock.Mock
}

func newMockQuoteService(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockQuoteService {
	m := &mockQuoteService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func quoteResult(args mock.Arguments) (*domain.Quote, error) {
	q, _ := args.Get(0).(*domain.Quote)
	return q, args.Error(1)
}

func quotesResult(args mock.Arguments) ([]*domain.Quote, error) {
	q, _ := args.Get(0).([]*domain.Quote)
	return q, args.Error(1)
}

func (m *mockQuoteService) FetchRandomQuote(ctx context.Context) (*domain.Quote, error) {
	return quoteResult(m.Called(ctx))
}

func (m *mockQuoteService) FetchFromDatabase(ctx context.Context, category string) (*domain.Quote, error) {
	return quoteResult(m.Called(ctx, category))
}

func (m *mockQuoteService) ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error) {
	return quoteResult(m.Called(ctx, guid, vote))
}

func (m *mockQuoteService) MostLiked(ctx context.Context, count int) ([]*domain.Quote, error) {
	return quotesResult(m.Called(ctx, count))
}

func (m *mockQuoteService) GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error) {
	return quoteResult(m.Called(ctx, guid))
}

func (m *mockQuoteService) ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error) {
	return quotesResult(m.Called(ctx, afterID, limit))
}

type mockMaintenance struct {
	mock.Mock
}

func (m *mockMaintenance) Prepopulate(ctx context.Context, opts app.PrepopulateOptions) (app.Tally, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(app.Tally), args.Error(1)
}

func (m *mockMaintenance) BackfillImages(ctx context.Context, count, workers int) (app.Tally, error) {
	args := m.Called(ctx, count, workers)
	return args.Get(0).(app.Tally), args.Error(1)
}

// stubChecker is a health checker with a fixed result.
type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                  { return c.name }
func (c stubChecker) Check(_ context.Context) error { return c.err }
