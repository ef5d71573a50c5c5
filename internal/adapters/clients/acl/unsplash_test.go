package acl

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
)

func setupUnsplash(t *testing.T, handler http.HandlerFunc) *UnsplashClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig(server.URL)
	cfg.ServiceName = UnsplashServiceName
	cfg.AuthFunc = ClientIDQuery("access-key")

	client, err := clients.New(cfg)
	require.NoError(t, err)

	return NewUnsplashClient(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUnsplashClient_SearchImage(t *testing.T) {
	var got url.Values

	c := setupUnsplash(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos/random", r.URL.Path)
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"id":"abc","alt_description":" calm lake at dawn ","urls":{"raw":"r","regular":"https://images.unsplash.com/photo-1"}}`))
	})

	img, err := c.SearchImage(context.Background(), " zen,yoga ")
	require.NoError(t, err)

	assert.Equal(t, "https://images.unsplash.com/photo-1", img.URL)
	assert.Equal(t, "calm lake at dawn", img.AltText)

	assert.Equal(t, "access-key", got.Get("client_id"))
	assert.Equal(t, "zen,yoga", got.Get("query"))
	assert.Equal(t, "landscape", got.Get("orientation"))
	assert.Equal(t, "high", got.Get("content_filter"))
}

func TestUnsplashClient_SearchImage_EmptyQuery(t *testing.T) {
	var got url.Values

	c := setupUnsplash(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"urls":{"regular":"https://images.unsplash.com/photo-2"}}`))
	})

	img, err := c.SearchImage(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://images.unsplash.com/photo-2", img.URL)
	assert.Empty(t, img.AltText)
	assert.False(t, got.Has("query"))
}

func TestUnsplashClient_SearchImage_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"missing url", http.StatusOK, `{"alt_description":"nothing"}`},
		{"no photos for query", http.StatusNotFound, `{"errors":["No photos found."]}`},
		{"rate limited", http.StatusForbidden, `Rate Limit Exceeded`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupUnsplash(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			img, err := c.SearchImage(context.Background(), "anything")

			assert.Nil(t, img)
			requireUnavailable(t, err, UnsplashServiceName)
		})
	}
}

func TestNewUnsplashClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewUnsplashClient(nil, nil) })
}
