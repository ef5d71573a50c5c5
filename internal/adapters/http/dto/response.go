package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

// ContextKeyTraceID is the gin context key the trace middleware stores the
// trace ID under.
const ContextKeyTraceID = "trace_id"

const internalErrorMessage = "an internal error occurred"

// GetTraceID returns the ID echoed in error envelopes: the trace ID stored in
// the gin context, then the active span's trace ID, then X-Request-ID.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyTraceID); ok {
		id, _ := v.(string)
		return id
	}

	if c.Request == nil {
		return ""
	}

	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return c.Request.Header.Get("X-Request-ID")
}

// MapDomainError maps a domain error to a status code and error envelope.
// Anything unrecognised, including a misconfigured source registry, is a
// 500 with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	resp := domainErrorResponse(err)
	return resp.Error.Code.Status(), resp
}

func domainErrorResponse(err error) *ErrorResponse {
	var (
		nf  *domain.NotFoundError
		ve  *domain.ValidationError
		dup *domain.DuplicateQuoteError
	)

	switch {
	case errors.As(err, &nf):
		return NewErrorResponse(ErrorCodeNotFound, nf.Error())

	case errors.As(err, &ve):
		resp := NewErrorResponse(ErrorCodeValidation, ve.Error())
		if ve.Field != "" {
			resp.WithDetails(map[string]string{ve.Field: ve.Message})
		}

		return resp

	case errors.As(err, &dup):
		return NewErrorResponse(ErrorCodeConflict, dup.Error())

	// Wrapped sentinels without a typed error carry no safe detail.
	case domain.IsNotFound(err):
		return NewErrorResponse(ErrorCodeNotFound, domain.ErrNotFound.Error())

	case domain.IsValidation(err):
		return NewErrorResponse(ErrorCodeValidation, domain.ErrValidation.Error())

	case domain.IsConflict(err):
		return NewErrorResponse(ErrorCodeConflict, domain.ErrConflict.Error())

	case domain.IsUnavailable(err):
		return NewErrorResponse(ErrorCodeUnavailable, "service temporarily unavailable")

	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorResponse(ErrorCodeTimeout, "request timed out")

	default:
		return NewErrorResponse(ErrorCodeInternal, internalErrorMessage)
	}
}

// HandleError writes the envelope for err and logs it when it is a 500.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status == http.StatusInternalServerError {
		ctx := c.Request.Context()
		logging.FromContext(ctx).ErrorContext(ctx, "request failed",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// RespondWithValidationErrors writes a 400 with one message per field.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	c.JSON(http.StatusBadRequest,
		NewErrorResponse(ErrorCodeValidation, "request validation failed").
			WithDetails(fieldErrors).
			WithTraceID(GetTraceID(c)))
}

// RespondWithErrorCode writes the envelope for code with the matching status.
func RespondWithErrorCode(c *gin.Context, code ErrorCode, message string) {
	c.JSON(code.Status(), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}
