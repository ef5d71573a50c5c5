package acl

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// UnsplashServiceName identifies the image API in logs and errors.
const UnsplashServiceName = "unsplash"

const searchOperation = "search image"

// unsplashPhoto is the subset of GET /photos/random we read.
type unsplashPhoto struct {
	AltDescription string `json:"alt_description"`
	URLs           struct {
		Regular string `json:"regular"`
	} `json:"urls"`
}

// UnsplashClient implements ports.ImageSearcher with the Unsplash random
// photo endpoint.
type UnsplashClient struct {
	up     upstream
	logger *slog.Logger
}

// NewUnsplashClient creates the image client. The client must add the
// client_id query parameter; see [ClientIDQuery].
func NewUnsplashClient(client *clients.Client, logger *slog.Logger) *UnsplashClient {
	if client == nil {
		panic("UnsplashClient: client is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UnsplashClient{
		up:     upstream{client: client, name: UnsplashServiceName},
		logger: logger.With(slog.String("image_client", UnsplashServiceName)),
	}
}

// SearchImage returns one landscape photo for query.
func (c *UnsplashClient) SearchImage(ctx context.Context, query string) (*domain.Image, error) {
	params := url.Values{
		"orientation":    []string{"landscape"},
		"content_filter": []string{"high"},
	}

	if query = strings.TrimSpace(query); query != "" {
		params.Set("query", query)
	}

	photo, err := getJSON[unsplashPhoto](ctx, c.up, "photos/random", params, searchOperation)
	if err != nil {
		return nil, err
	}

	return c.translate(&photo)
}

func (c *UnsplashClient) translate(photo *unsplashPhoto) (*domain.Image, error) {
	if photo.URLs.Regular == "" {
		return nil, domain.NewUnavailableError(c.up.name, "photo has no regular url")
	}

	return &domain.Image{
		URL:     photo.URLs.Regular,
		AltText: strings.TrimSpace(photo.AltDescription),
	}, nil
}

// ClientIDQuery returns a clients.Config AuthFunc that adds the Unsplash
// access key as the client_id query parameter.
func ClientIDQuery(clientID string) func(*http.Request) {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Set("client_id", clientID)
		r.URL.RawQuery = q.Encode()
	}
}
