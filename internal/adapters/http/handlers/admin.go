package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/app"
)

// DefaultMaintenanceCount is the number of quotes a maintenance action
// touches when count is not given.
const DefaultMaintenanceCount = 50

// MaintenanceService runs the bulk actions of the admin endpoints.
type MaintenanceService interface {
	Prepopulate(ctx context.Context, opts app.PrepopulateOptions) (app.Tally, error)
	BackfillImages(ctx context.Context, count, workers int) (app.Tally, error)
}

// AdminHandler serves the /admin endpoints.
type AdminHandler struct {
	service MaintenanceService
	workers int
}

// NewAdminHandler creates an admin handler. workers bounds the concurrent
// fetches of one action; zero uses the application default.
func NewAdminHandler(service MaintenanceService, workers int) *AdminHandler {
	return &AdminHandler{service: service, workers: workers}
}

// Prepopulate handles POST /admin/quotes/prepopulate.
//
// @Summary Fetch and store quotes from the external APIs
// @Tags admin
// @Produce json
// @Param count query int false "Quotes to fetch" default(50)
// @Param random_likes query bool false "Seed random like and dislike counts" default(true)
// @Success 200 {object} dto.TallyResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/quotes/prepopulate [post]
func (h *AdminHandler) Prepopulate(c *gin.Context) {
	var q dto.PrepopulateQuery
	if !dto.BindQuery(c, &q) {
		return
	}

	opts := app.PrepopulateOptions{
		Count:       q.Count,
		RandomLikes: true,
		Workers:     h.workers,
	}
	if opts.Count == 0 {
		opts.Count = DefaultMaintenanceCount
	}
	if q.RandomLikes != nil {
		opts.RandomLikes = *q.RandomLikes
	}

	tally, err := h.service.Prepopulate(c.Request.Context(), opts)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTallyResponse(tally))
}

// BackfillImages handles POST /admin/quotes/backfill-images.
//
// @Summary Attach images to stored quotes that have none
// @Tags admin
// @Produce json
// @Param count query int false "Quotes to update" default(50)
// @Success 200 {object} dto.TallyResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /admin/quotes/backfill-images [post]
func (h *AdminHandler) BackfillImages(c *gin.Context) {
	var q dto.CountQuery
	if !dto.BindQuery(c, &q) {
		return
	}

	count := q.Count
	if count == 0 {
		count = DefaultMaintenanceCount
	}

	tally, err := h.service.BackfillImages(c.Request.Context(), count, h.workers)
	if errors.Is(err, app.ErrImagesDisabled) {
		dto.RespondWithErrorCode(c, dto.ErrorCodeUnavailable, "image search is not configured")
		return
	}
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTallyResponse(tally))
}

// RegisterAdminRoutes mounts the admin endpoints on rg behind guards.
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	admin := rg.Group("/admin/quotes", guards...)

	admin.POST("/prepopulate", h.Prepopulate)
	admin.POST("/backfill-images", h.BackfillImages)
}

func toTallyResponse(t app.Tally) dto.TallyResponse {
	return dto.TallyResponse{Succeeded: t.Succeeded, Failed: t.Failed}
}
