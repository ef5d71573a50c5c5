// Package domain contains the quote entities, vote rules and errors.
// Domain errors describe business-level failures, not HTTP errors; adapters map
// them to transport status codes.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is. Every typed error below unwraps to one.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("unavailable")

	// ErrNoAvailableSource means selection excluded every registered quote
	// source. It is a configuration error, never "no quote found".
	ErrNoAvailableSource = errors.New("no available quote source")
)

// NotFoundError names the missing entity, e.g. quote with its GUID.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError points at the offending field. Value is the rejected
// input, when there was one.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError reports that an external service (a quote API, the image
// API, the cache) failed or answered with something that could not be used.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// DuplicateQuoteError is returned when storing a quote hits a uniqueness
// constraint because the same text was stored concurrently. Callers treat it as
// retryable.
type DuplicateQuoteError struct {
	QuoteHash string
}

func (e *DuplicateQuoteError) Error() string {
	if e.QuoteHash != "" {
		return fmt.Sprintf("quote %s already exists", e.QuoteHash)
	}

	return "quote already exists"
}

func (e *DuplicateQuoteError) Unwrap() error {
	return ErrConflict
}

func NewDuplicateQuoteError(quoteHash string) error {
	return &DuplicateQuoteError{QuoteHash: quoteHash}
}

// NoAvailableSourceError lists the sources that were excluded when selection
// came up empty.
type NoAvailableSourceError struct {
	Excluded []QuoteSource
}

func (e *NoAvailableSourceError) Error() string {
	if len(e.Excluded) == 0 {
		return ErrNoAvailableSource.Error() + ": registry is empty"
	}

	names := make([]string, len(e.Excluded))
	for i, s := range e.Excluded {
		names[i] = s.String()
	}

	return fmt.Sprintf("%s after excluding [%s]", ErrNoAvailableSource, strings.Join(names, ", "))
}

func (e *NoAvailableSourceError) Unwrap() error {
	return ErrNoAvailableSource
}

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool       { return errors.Is(err, ErrUnavailable) }
func IsNoAvailableSource(err error) bool { return errors.Is(err, ErrNoAvailableSource) }

// IsDuplicateQuote is narrower than IsConflict: only a concurrent insert of
// the same text, which the caller may retry.
func IsDuplicateQuote(err error) bool {
	var dup *DuplicateQuoteError
	return errors.As(err, &dup)
}
