package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

const maxErrorBody = 4 << 10

// apiError covers the error bodies of the APIs we call. API Ninjas sends
// {"error": "..."}, Unsplash {"errors": ["..."]}, others {"message": "..."}.
type apiError struct {
	Error   string   `json:"error"`
	Errors  []string `json:"errors"`
	Message string   `json:"message"`
}

func (e apiError) text() string {
	switch {
	case e.Error != "":
		return e.Error
	case len(e.Errors) > 0:
		return e.Errors[0]
	default:
		return e.Message
	}
}

// errorText returns the message of a JSON error body, or "".
func errorText(body io.Reader) string {
	if body == nil {
		return ""
	}

	var e apiError
	if json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&e) != nil {
		return ""
	}

	return e.text()
}

// statusFailed reports a non-2xx answer, with the upstream's own message
// appended when the body has one.
func statusFailed(name, op string, resp *http.Response) error {
	reason := statusReason(op, resp.StatusCode)
	if msg := errorText(resp.Body); msg != "" {
		reason += ": " + msg
	}

	return domain.NewUnavailableError(name, reason)
}

// callFailed reports a call that produced no response.
func callFailed(name, op string, err error) error {
	var reason string

	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		reason = op + ": circuit breaker open"
	case errors.Is(err, clients.ErrRetriesExhausted):
		reason = op + ": retries exhausted"
	default:
		reason = fmt.Sprintf("%s: %v", op, err)
	}

	return domain.NewUnavailableError(name, reason)
}

func statusReason(op string, status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("%s: credentials rejected (HTTP %d)", op, status)
	case http.StatusNotFound:
		return op + ": endpoint not found"
	case http.StatusTooManyRequests:
		return op + ": rate limited"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Sprintf("%s: upstream unavailable (HTTP %d)", op, status)
	default:
		return fmt.Sprintf("%s: HTTP %d", op, status)
	}
}
