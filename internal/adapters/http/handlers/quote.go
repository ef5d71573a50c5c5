package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// QuoteService is what the quote endpoints need from the application layer.
type QuoteService interface {
	FetchRandomQuote(ctx context.Context) (*domain.Quote, error)
	FetchFromDatabase(ctx context.Context, category string) (*domain.Quote, error)
	ApplyVote(ctx context.Context, guid uuid.UUID, vote domain.Vote) (*domain.Quote, error)
	MostLiked(ctx context.Context, count int) ([]*domain.Quote, error)
	GetQuote(ctx context.Context, guid uuid.UUID) (*domain.Quote, error)
	ListQuotes(ctx context.Context, afterID int64, limit int) ([]*domain.Quote, error)
}

// QuoteHandlerConfig holds the listing limits of the quote endpoints.
type QuoteHandlerConfig struct {
	MostLikedDefault int
	MostLikedMax     int
}

// QuoteHandler serves the /quotes endpoints.
type QuoteHandler struct {
	service QuoteService
	cfg     QuoteHandlerConfig
}

// NewQuoteHandler creates a quote handler. Zero limits default to 10 and 100.
func NewQuoteHandler(service QuoteService, cfg QuoteHandlerConfig) *QuoteHandler {
	if cfg.MostLikedDefault <= 0 {
		cfg.MostLikedDefault = 10
	}

	if cfg.MostLikedMax < cfg.MostLikedDefault {
		cfg.MostLikedMax = max(cfg.MostLikedDefault, dto.MaxLimit)
	}

	return &QuoteHandler{service: service, cfg: cfg}
}

// GetRandomQuote handles GET /quotes/get_random_quote.
//
// @Summary Get a random quote
// @Description Picks a random source (the database or an external API) and returns one quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /quotes/get_random_quote [get]
func (h *QuoteHandler) GetRandomQuote(c *gin.Context) {
	quote, err := h.service.FetchRandomQuote(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if quote == nil {
		dto.RespondWithErrorCode(c, dto.ErrorCodeNotFound, "No quotes found")
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// GetRandomQuoteByCategory handles GET /quotes/get_random_quote_by_category.
// The body is null when no stored quote matches.
//
// @Summary Get a random stored quote by category
// @Tags quotes
// @Produce json
// @Param category query string false "Case-insensitive substring of the category name"
// @Success 200 {object} dto.QuoteResponse
// @Router /quotes/get_random_quote_by_category [get]
func (h *QuoteHandler) GetRandomQuoteByCategory(c *gin.Context) {
	var q dto.CategoryQuery
	if !dto.BindQuery(c, &q) {
		return
	}

	quote, err := h.service.FetchFromDatabase(c.Request.Context(), q.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// GetMostLikedQuotes handles GET /quotes/get_most_liked_quotes.
//
// @Summary List the most liked quotes
// @Tags quotes
// @Produce json
// @Param count query int false "Number of quotes" default(10)
// @Success 200 {array} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /quotes/get_most_liked_quotes [get]
func (h *QuoteHandler) GetMostLikedQuotes(c *gin.Context) {
	var q dto.CountQuery
	if !dto.BindQuery(c, &q) {
		return
	}

	count := q.Count
	if count == 0 {
		count = h.cfg.MostLikedDefault
	}
	count = min(count, h.cfg.MostLikedMax)

	quotes, err := h.service.MostLiked(c.Request.Context(), count)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponses(quotes))
}

// ListQuotes handles GET /quotes.
//
// @Summary List stored quotes
// @Tags quotes
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param cursor query string false "nextCursor of the previous page"
// @Success 200 {object} dto.PaginatedResponse[dto.QuoteResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.PaginationRequest
	if !dto.BindQuery(c, &req) {
		return
	}

	afterID, err := req.AfterID()
	if err != nil {
		dto.RespondWithValidationErrors(c, map[string]string{"cursor": "must be a cursor returned by a previous page"})
		return
	}

	limit := req.GetLimit()

	quotes, err := h.service.ListQuotes(c.Request.Context(), afterID, limit+1)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	page := dto.NewPaginatedResponse(quotes, limit, func(q *domain.Quote) *dto.CursorData {
		return &dto.CursorData{AfterID: q.ID}
	})

	c.JSON(http.StatusOK, dto.MapPage(page, dto.ToQuoteResponse))
}

// GetQuote handles GET /quotes/:guid.
//
// @Summary Get a quote
// @Tags quotes
// @Produce json
// @Param guid path string true "Quote GUID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /quotes/{guid} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	guid, ok := parseGUID(c)
	if !ok {
		return
	}

	quote, err := h.service.GetQuote(c.Request.Context(), guid)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// LikeQuote handles PATCH /quotes/:guid/like.
//
// @Summary Like a quote, or withdraw a like
// @Tags quotes
// @Produce json
// @Param guid path string true "Quote GUID"
// @Param direction query string false "increase or decrease" default(increase)
// @Param reverse_opposite query bool false "Withdraw a dislike at the same time" default(false)
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /quotes/{guid}/like [patch]
func (h *QuoteHandler) LikeQuote(c *gin.Context) {
	h.vote(c, domain.VoteLike)
}

// DislikeQuote handles PATCH /quotes/:guid/dislike. It mirrors LikeQuote.
func (h *QuoteHandler) DislikeQuote(c *gin.Context) {
	h.vote(c, domain.VoteDislike)
}

func (h *QuoteHandler) vote(c *gin.Context, kind domain.VoteKind) {
	guid, ok := parseGUID(c)
	if !ok {
		return
	}

	var q dto.VoteQuery
	if !dto.BindQuery(c, &q) {
		return
	}

	vote, err := q.Vote(kind)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	quote, err := h.service.ApplyVote(c.Request.Context(), guid, vote)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// RegisterQuoteRoutes mounts the quote endpoints on rg. voteMiddleware runs
// before the like and dislike handlers only.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup, voteMiddleware ...gin.HandlerFunc) {
	quotes := rg.Group("/quotes")

	quotes.GET("", h.ListQuotes)
	quotes.GET("/get_random_quote", h.GetRandomQuote)
	quotes.GET("/get_random_quote_by_category", h.GetRandomQuoteByCategory)
	quotes.GET("/get_most_liked_quotes", h.GetMostLikedQuotes)
	quotes.GET("/:guid", h.GetQuote)

	votes := quotes.Group("/:guid", voteMiddleware...)
	votes.PATCH("/like", h.LikeQuote)
	votes.PATCH("/dislike", h.DislikeQuote)
}

func parseGUID(c *gin.Context) (uuid.UUID, bool) {
	guid, err := uuid.Parse(c.Param("guid"))
	if err != nil {
		dto.RespondWithValidationErrors(c, map[string]string{"guid": "must be a valid UUID"})
		return uuid.Nil, false
	}

	return guid, true
}
