// Package middleware provides the Gin middleware of the quote API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID identifies a whole transaction across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key of the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key of the correlation ID.
	ContextKeyCorrelationID = "correlation_id"

	// ContextKeyTraceID is the gin context key of the OpenTelemetry trace ID.
	ContextKeyTraceID = dto.ContextKeyTraceID
)

// RequestID takes X-Request-ID from the request or generates one, echoes it
// on the response and attaches it to the request context and logger.
func RequestID() gin.HandlerFunc {
	return idMiddleware(HeaderRequestID, ContextKeyRequestID, func(ctx context.Context, id string) context.Context {
		return logging.With(ContextWithRequestID(ctx, id), logging.KeyRequestID, id)
	})
}

// CorrelationID does for X-Correlation-ID what RequestID does for X-Request-ID.
// Outbound API calls forward it.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware(HeaderCorrelationID, ContextKeyCorrelationID, func(ctx context.Context, id string) context.Context {
		return logging.With(ContextWithCorrelationID(ctx, id), logging.KeyCorrelationID, id)
	})
}

// TraceID copies the trace ID of the active span into the gin context and the
// request logger. It must run after the OpenTelemetry middleware.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if sc.HasTraceID() {
			id := sc.TraceID().String()
			c.Set(ContextKeyTraceID, id)
			c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logging.KeyTraceID, id))
		}

		c.Next()
	}
}

// GetRequestID returns the request ID, or "" when RequestID did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID, or "" when CorrelationID did not run.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

func idMiddleware(header, key string, enrich func(context.Context, string) context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(key, id)
		c.Header(header, id)
		c.Request = c.Request.WithContext(enrich(c.Request.Context(), id))

		c.Next()
	}
}
