package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// QuoteResponse is the JSON form of a quote. Missing relations and image
// fields serialize as null.
type QuoteResponse struct {
	GUID         uuid.UUID       `json:"guid"`
	Created      time.Time       `json:"created"`
	Modified     time.Time       `json:"modified"`
	Author       *NamedResponse  `json:"author"`
	Category     *NamedResponse  `json:"category"`
	QuoteText    string          `json:"quote_text"`
	ImageURL     *string         `json:"image_url"`
	ImageAltText *string         `json:"image_alt_text"`
	Origin       *OriginResponse `json:"origin"`
	Likes        int64           `json:"likes"`
	Dislikes     int64           `json:"dislikes"`
}

// NamedResponse is an author or category reference.
type NamedResponse struct {
	Name string `json:"name"`
}

// OriginResponse says where a quote was fetched from.
type OriginResponse struct {
	URL          string `json:"url"`
	APIClientKey string `json:"api_client_key"`
}

// ToQuoteResponse converts a domain quote. A nil quote yields nil, which
// renders as JSON null.
func ToQuoteResponse(q *domain.Quote) *QuoteResponse {
	if q == nil {
		return nil
	}

	resp := &QuoteResponse{
		GUID:      q.GUID,
		Created:   q.Created,
		Modified:  q.Modified,
		QuoteText: q.Text,
		Likes:     q.Likes,
		Dislikes:  q.Dislikes,
	}

	if q.Author != nil {
		resp.Author = &NamedResponse{Name: q.Author.Name}
	}

	if q.Category != nil {
		resp.Category = &NamedResponse{Name: q.Category.Name}
	}

	if q.Origin != nil {
		resp.Origin = &OriginResponse{URL: q.Origin.URL, APIClientKey: q.Origin.APIClientKey}
	}

	if q.Image != nil {
		if q.Image.URL != "" {
			resp.ImageURL = &q.Image.URL
		}
		if q.Image.AltText != "" {
			resp.ImageAltText = &q.Image.AltText
		}
	}

	return resp
}

// ToQuoteResponses converts a list, never returning nil.
func ToQuoteResponses(quotes []*domain.Quote) []*QuoteResponse {
	out := make([]*QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, ToQuoteResponse(q))
	}

	return out
}

// VoteQuery holds the query parameters of the like and dislike endpoints.
type VoteQuery struct {
	Direction       string `form:"direction"        validate:"omitempty,oneof=increase decrease"`
	ReverseOpposite bool   `form:"reverse_opposite"`
}

// Vote builds the domain vote of kind from the query.
func (q *VoteQuery) Vote(kind domain.VoteKind) (domain.Vote, error) {
	direction, err := domain.ParseVoteDirection(q.Direction)
	if err != nil {
		return domain.Vote{}, err
	}

	return domain.Vote{Kind: kind, Direction: direction, ReverseOpposite: q.ReverseOpposite}, nil
}

// CategoryQuery holds the query parameters of the random-by-category endpoint.
type CategoryQuery struct {
	Category string `form:"category"`
}

// CountQuery holds a result count; zero means the endpoint default.
type CountQuery struct {
	Count int `form:"count" validate:"omitempty,gte=1"`
}

// PrepopulateQuery holds the query parameters of the prepopulate action.
type PrepopulateQuery struct {
	Count       int   `form:"count"        validate:"omitempty,gte=1,lte=500"`
	RandomLikes *bool `form:"random_likes"`
}

// TallyResponse reports the outcome of a maintenance action.
type TallyResponse struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
