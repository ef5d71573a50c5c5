package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

// RateLimit counts requests per client IP with limiter and answers 429
// RATE_LIMITED once the window is used up. When the limiter itself fails
// the request is let through and the failure logged.
func RateLimit(limiter ports.RateLimiter, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	retryAfter := strconv.Itoa(max(1, int(window.Seconds())))

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "ip:" + c.ClientIP()

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logging.FromContextOr(ctx, logger).WarnContext(ctx, "rate limiter unavailable, allowing request",
				slog.String("key", key),
				slog.Any("error", err),
			)
			c.Next()

			return
		}

		if !allowed {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(dto.ErrorCodeRateLimited, "too many votes, try again later").
					WithTraceID(dto.GetTraceID(c)))

			return
		}

		c.Next()
	}
}
