// Package clients is the outbound HTTP stack shared by the quote and image
// APIs: retries with backoff, one circuit breaker per upstream, tracing,
// metrics and request ID propagation.
//
// Errors returned here are infrastructure errors. The acl package turns them
// into domain errors.
package clients

import "errors"

var (
	// ErrCircuitOpen is returned without a network call while the breaker of
	// the upstream is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetriesExhausted wraps the last transport error once every attempt
	// has failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
