package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrConflict,
		ErrValidation,
		ErrUnavailable,
		ErrNoAvailableSource,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b,
					"sentinels should be distinct: %v vs %v", a, b)
			}
		}
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name        string
		entity      string
		id          string
		expectedMsg string
	}{
		{
			name:        "with entity and ID",
			entity:      "quote",
			id:          "0b9a1c3e",
			expectedMsg: `quote with id "0b9a1c3e" not found`,
		},
		{
			name:        "with entity only",
			entity:      "quote",
			expectedMsg: "quote not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError(tt.entity, tt.id)

			assert.Equal(t, tt.expectedMsg, err.Error())
			require.ErrorIs(t, err, ErrNotFound)

			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, tt.entity, notFound.Entity)
			assert.Equal(t, tt.id, notFound.ID)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationErrorWithValue("direction", "must be increase or decrease", "sideways")

	assert.Equal(t, "validation failed for direction: must be increase or decrease", err.Error())
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "sideways", ve.Value)

	assert.Equal(t, "validation failed: bad input", NewValidationError("", "bad input").Error())
}

func TestUnavailableError(t *testing.T) {
	err := NewUnavailableError("zen_quote_api_client", "decoding response")

	assert.Equal(t, `service "zen_quote_api_client" unavailable: decoding response`, err.Error())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, `service "unsplash" unavailable`, NewUnavailableError("unsplash", "").Error())
}

func TestDuplicateQuoteError(t *testing.T) {
	err := NewDuplicateQuoteError("abc123")

	assert.Equal(t, "quote abc123 already exists", err.Error())
	require.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsDuplicateQuote(fmt.Errorf("storing: %w", err)))
	assert.False(t, IsDuplicateQuote(ErrConflict))
}

func TestNoAvailableSourceError(t *testing.T) {
	t.Run("with exclusions", func(t *testing.T) {
		err := &NoAvailableSourceError{Excluded: []QuoteSource{DatabaseSource, ExternalSource("zen")}}

		assert.Equal(t, "no available quote source after excluding [database, zen]", err.Error())
		require.ErrorIs(t, err, ErrNoAvailableSource)
	})

	t.Run("empty registry", func(t *testing.T) {
		err := &NoAvailableSourceError{}

		assert.Equal(t, "no available quote source: registry is empty", err.Error())
	})
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		isFunc   func(error) bool
		expected bool
	}{
		{"IsNotFound with NotFoundError", NewNotFoundError("quote", "1"), IsNotFound, true},
		{"IsNotFound with wrapped", fmt.Errorf("wrapped: %w", ErrNotFound), IsNotFound, true},
		{"IsNotFound with other error", ErrConflict, IsNotFound, false},
		{"IsNotFound with nil", nil, IsNotFound, false},

		{"IsConflict with DuplicateQuoteError", NewDuplicateQuoteError("h"), IsConflict, true},
		{"IsConflict with other error", ErrNotFound, IsConflict, false},

		{"IsValidation with ValidationError", NewValidationError("count", "too big"), IsValidation, true},
		{"IsValidation with nil", nil, IsValidation, false},

		{"IsUnavailable with UnavailableError", NewUnavailableError("unsplash", "timeout"), IsUnavailable, true},
		{"IsUnavailable with wrapped", fmt.Errorf("wrapped: %w", ErrUnavailable), IsUnavailable, true},
		{"IsUnavailable with other error", ErrNotFound, IsUnavailable, false},

		{"IsNoAvailableSource with typed error", &NoAvailableSourceError{}, IsNoAvailableSource, true},
		{"IsNoAvailableSource with unavailable", ErrUnavailable, IsNoAvailableSource, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.isFunc(tt.err))
		})
	}
}

func TestErrorWrappingChain(t *testing.T) {
	original := NewNotFoundError("quote", "123")
	wrapped := fmt.Errorf("layer2: %w", fmt.Errorf("layer1: %w", original))

	assert.True(t, IsNotFound(wrapped))

	var notFound *NotFoundError
	require.ErrorAs(t, wrapped, &notFound)
	assert.Equal(t, "123", notFound.ID)
}
