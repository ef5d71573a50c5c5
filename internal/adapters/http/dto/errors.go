// Package dto holds the JSON shapes of the quote API: the quote resource,
// query parameters, pagination and the error envelope.
package dto

import "net/http"

// ErrorCode is the machine-readable kind of an API error.
type ErrorCode string

const (
	ErrorCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrorCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeConflict     ErrorCode = "CONFLICT"
	ErrorCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrorCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrorCodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout      ErrorCode = "TIMEOUT"
)

var statusByCode = map[ErrorCode]int{
	ErrorCodeBadRequest:   http.StatusBadRequest,
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeUnauthorized: http.StatusUnauthorized,
	ErrorCodeForbidden:    http.StatusForbidden,
	ErrorCodeNotFound:     http.StatusNotFound,
	ErrorCodeConflict:     http.StatusConflict,
	ErrorCodeRateLimited:  http.StatusTooManyRequests,
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeTimeout:      http.StatusGatewayTimeout,
}

// Status is the HTTP status sent with the code. Unknown codes are 500.
func (c ErrorCode) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}

	return http.StatusInternalServerError
}

// ErrorResponse is the body of every non-2xx answer.
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}, "traceId": "..."}
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail describes the failure. Details maps request fields to their
// validation message.
type ErrorDetail struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func NewErrorResponse(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

func (e *ErrorResponse) WithDetails(details map[string]string) *ErrorResponse {
	e.Error.Details = details
	return e
}

func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}
