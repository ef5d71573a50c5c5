package middleware

import (
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

// Recovery answers a panicking handler with the generic 500 envelope and logs
// the stack through slog. It goes first in the chain. gin's own writer output
// is discarded.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		ctx := c.Request.Context()
		logging.FromContextOr(ctx, logger).ErrorContext(ctx, "panic recovered",
			slog.Any("error", rec),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("stack", string(debug.Stack())),
		)

		if c.Writer.Written() {
			c.Abort()
			return
		}

		dto.RespondWithErrorCode(c, dto.ErrorCodeInternal, "an internal error occurred")
		c.Abort()
	})
}
