package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/clients"
	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

const maxResponseBody = 1 << 20

// upstream is one third-party API as an adapter sees it: the shared client
// and the name its failures are reported under.
type upstream struct {
	client *clients.Client
	name   string
}

// getJSON GETs path and decodes a 2xx body into T. Every failure is a
// domain.UnavailableError naming the upstream.
func getJSON[T any](ctx context.Context, u upstream, path string, query url.Values, op string) (T, error) {
	var out T

	resp, err := u.client.Get(ctx, path, query)
	if err != nil {
		return out, callFailed(u.name, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return out, statusFailed(u.name, op, resp)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return out, domain.NewUnavailableError(u.name, fmt.Sprintf("%s: undecodable body: %v", op, err))
	}

	return out, nil
}

// first unwraps APIs that send a single quote inside an array. They never
// legitimately send an empty one.
func first[T any](u upstream, items []T) (T, error) {
	if len(items) == 0 {
		var zero T
		return zero, domain.NewUnavailableError(u.name, "empty response array")
	}

	return items[0], nil
}
