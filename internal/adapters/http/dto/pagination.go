package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Page size limits of GET /quotes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned when a cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest holds the query parameters of a paginated list.
type PaginationRequest struct {
	// Cursor is the opaque NextCursor of the previous page.
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the page size with the default applied.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// AfterID returns the id the next page starts after; 0 for the first page.
func (p *PaginationRequest) AfterID() (int64, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	return data.AfterID, nil
}

// PaginatedResponse is one page of a list.
type PaginatedResponse[T any] struct {
	Items []T `json:"items"`

	// NextCursor is empty on the last page.
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// NewPaginatedResponse builds a page from up to limit+1 items; the extra
// item only signals that another page exists.
func NewPaginatedResponse[T any](items []T, limit int, cursorFor func(T) *CursorData) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var next string
	if hasMore && len(items) > 0 && cursorFor != nil {
		next = EncodeCursor(cursorFor(items[len(items)-1]))
	}

	return &PaginatedResponse[T]{
		Items:      items,
		NextCursor: next,
		HasMore:    hasMore,
	}
}

// MapPage converts the items of a page, keeping its cursor.
func MapPage[T, U any](p *PaginatedResponse[T], convert func(T) U) *PaginatedResponse[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = convert(item)
	}

	return &PaginatedResponse[U]{
		Items:      items,
		NextCursor: p.NextCursor,
		HasMore:    p.HasMore,
	}
}

// CursorData is the content of a cursor: the last id of the previous page.
type CursorData struct {
	AfterID int64 `json:"after"`
}

// EncodeCursor encodes data as URL-safe base64 JSON.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(encoded string) (*CursorData, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil || data.AfterID < 0 {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
