package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// quotePreviewLength is how much of the text Quote.String shows.
const quotePreviewLength = 24

// Author is the person a quote is attributed to. Names are unique.
type Author struct {
	ID       int64
	GUID     uuid.UUID
	Name     string
	Created  time.Time
	Modified time.Time
}

// Category groups quotes by theme. Names are unique.
type Category struct {
	ID       int64
	GUID     uuid.UUID
	Name     string
	Created  time.Time
	Modified time.Time
}

// QuoteOrigin records where a quote came from: the API base URL and the key of
// the client that fetched it.
type QuoteOrigin struct {
	ID           int64
	GUID         uuid.UUID
	URL          string
	APIClientKey string
	Created      time.Time
	Modified     time.Time
}

// Image is the result of an image search.
type Image struct {
	URL     string
	AltText string
}

// Quote is a stored quotation. Author, Category, Origin and Image are nil
// when unknown.
type Quote struct {
	ID       int64
	GUID     uuid.UUID
	Author   *Author
	Category *Category
	Origin   *QuoteOrigin
	Text     string
	Hash     string
	Image    *Image
	Likes    int64
	Dislikes int64
	Created  time.Time
	Modified time.Time
}

// String renders a short preview, e.g. `"Life is like riding a bi..." by Albert Einstein (zen)`.
func (q *Quote) String() string {
	var b strings.Builder

	b.WriteByte('"')

	runes := []rune(q.Text)
	if len(runes) > quotePreviewLength {
		b.WriteString(string(runes[:quotePreviewLength]))
		b.WriteString("...")
	} else {
		b.WriteString(q.Text)
	}

	b.WriteByte('"')

	if q.Author != nil {
		b.WriteString(" by " + q.Author.Name)
	} else {
		b.WriteString(" (Unknown Author)")
	}

	if q.Category != nil {
		b.WriteString(" (" + q.Category.Name + ")")
	} else {
		b.WriteString(" (No Category)")
	}

	return b.String()
}

// LikeRatio returns the share of likes and dislikes in percent.
// A quote without votes is an even 50/50 split.
func (q *Quote) LikeRatio() (likePct, dislikePct float64) {
	total := q.Likes + q.Dislikes
	if total == 0 {
		return 50, 50
	}

	likePct = float64(q.Likes) / float64(total) * 100

	return likePct, 100 - likePct
}

// HasImage reports whether an image URL is attached.
func (q *Quote) HasImage() bool {
	return q.Image != nil && q.Image.URL != ""
}

// HashQuoteText returns the hex SHA-256 digest stored alongside quote text.
func HashQuoteText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// QuoteData is what an external quote API hands back before it is stored.
type QuoteData struct {
	Author           string
	Category         string
	ImageSearchQuery string
	OriginURL        string
	Text             string
	APIClientKey     string
}

// SearchQuery returns the image query for this quote, falling back to the
// category name.
func (d *QuoteData) SearchQuery() string {
	if q := strings.TrimSpace(d.ImageSearchQuery); q != "" {
		return q
	}

	return d.Category
}

// Validate checks the fields every stored quote needs.
func (d *QuoteData) Validate() error {
	switch {
	case strings.TrimSpace(d.Text) == "":
		return NewValidationError("quote_text", "must not be empty")
	case strings.TrimSpace(d.APIClientKey) == "":
		return NewValidationError("api_client_key", "must not be empty")
	case strings.TrimSpace(d.OriginURL) == "":
		return NewValidationError("origin_url", "must not be empty")
	}

	return nil
}

// NewQuote is the natural key of a quote about to be stored: every column the
// upsert compares against existing rows.
type NewQuote struct {
	AuthorID   *int64
	CategoryID *int64
	OriginID   *int64
	Text       string
	Image      *Image
}
