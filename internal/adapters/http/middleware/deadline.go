package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
)

// Deadline bounds the request context by d. Handlers and the upstream calls
// they make stop once it passes. A handler that gave up without writing
// anything gets a 504. d <= 0 leaves the context alone.
func Deadline(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			dto.RespondWithErrorCode(c, dto.ErrorCodeTimeout, "request timed out")
		}
	}
}
