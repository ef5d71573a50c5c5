package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

type mockRepository struct {
	mock.Mock
}

var _ ports.QuoteRepository = (*mockRepository)(nil)

func newMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockRepository {
	m := &mockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func quoteResult(args mock.Arguments, i int) *domain.Quote {
	q, _ := args.Get(i).(*domain.Quote)
	return q
}

func quotesResult(args mock.Arguments, i int) []*domain.Quote {
	q, _ := args.Get(i).([]*domain.Quote)
	return q
}

func (m *mockRepository) RandomQuote(ctx context.Context, category string) (*domain.Quote, error) {
	args := m.Called(ctx, category)
	return quoteResult(args, 0), args.Error(1)
}

func (m *mockRepository) GetOrCreateAuthor(ctx context.Context, name string) (*domain.Author, error) {
	args := m.Called(ctx, name)
	a, _ := args.Get(0).(*domain.Author)
	return a, args.Error(1)
}

func (m *mockRepository) GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockRepository) GetOrCreateOrigin(ctx context.Context, url, clientKey string) (*domain.QuoteOrigin, error) {
	args := m.Called(ctx, url, clientKey)
	o, _ := args.Get(0).(*domain.QuoteOrigin)
	return o, args.Error(1)
}

func (m *mockRepository) GetOrCreateQuote(ctx context.Context, q domain.NewQuote) (*domain.Quote, bool, error) {
	args := m.Called(ctx, q)
	return quoteResult(args, 0), args.Bool(1), args.Error(2)
}

func (m *mockRepository) GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error) {
	args := m.Called(ctx, guid)
	return quoteResult(args, 0), args.Error(1)
}

func (m *mockRepository) ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error) {
	args := m.Called(ctx, afterID, limit)
	return quotesResult(args, 0), args.Error(1)
}

func (m *mockRepository) MostLiked(ctx context.Context, limit int) ([]*domain.Quote, error) {
	args := m.Called(ctx, limit)
	return quotesResult(args, 0), args.Error(1)
}

func (m *mockRepository) ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error) {
	args := m.Called(ctx, guid, vote)
	return quoteResult(args, 0), args.Error(1)
}

func (m *mockRepository) SetVotes(ctx context.Context, id, likes, dislikes int64) error {
	return m.Called(ctx, id, likes, dislikes).Error(0)
}

func (m *mockRepository) QuotesMissingImage(ctx context.Context, limit int) ([]*domain.Quote, error) {
	args := m.Called(ctx, limit)
	return quotesResult(args, 0), args.Error(1)
}

func (m *mockRepository) SetImage(ctx context.Context, id int64, image domain.Image) error {
	return m.Called(ctx, id, image).Error(0)
}

type mockQuoteClient struct {
	mock.Mock
	key        string
	imageQuery string
}

var _ ports.QuoteClient = (*mockQuoteClient)(nil)

func (m *mockQuoteClient) Key() string {
	return m.key
}

func (m *mockQuoteClient) ImageSearchQuery() string {
	return m.imageQuery
}

func (m *mockQuoteClient) FetchRandomQuote(ctx context.Context) (*domain.QuoteData, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*domain.QuoteData)
	return d, args.Error(1)
}

type mockImageSearcher struct {
	mock.Mock
}

var _ ports.ImageSearcher = (*mockImageSearcher)(nil)

func (m *mockImageSearcher) SearchImage(ctx context.Context, query string) (*domain.Image, error) {
	args := m.Called(ctx, query)
	img, _ := args.Get(0).(*domain.Image)
	return img, args.Error(1)
}
