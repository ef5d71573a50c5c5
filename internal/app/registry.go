package app

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

// SourceRegistry is the immutable set of quote sources: the database plus one
// entry per external quote client. It is built once at startup.
type SourceRegistry struct {
	clients map[string]ports.QuoteClient
	sources []domain.QuoteSource
	intN    func(n int) int
}

// NewSourceRegistry registers the given clients by key. Keys must be unique,
// non-empty and must not collide with the database source.
func NewSourceRegistry(clients ...ports.QuoteClient) (*SourceRegistry, error) {
	byKey := make(map[string]ports.QuoteClient, len(clients))
	keys := make([]string, 0, len(clients))

	for _, c := range clients {
		if c == nil {
			return nil, errors.New("quote client must not be nil")
		}

		key := c.Key()

		switch {
		case strings.TrimSpace(key) == "":
			return nil, errors.New("quote client key must not be empty")
		case key == domain.DatabaseSourceKey:
			return nil, fmt.Errorf("quote client key %q is reserved", key)
		}

		if _, dup := byKey[key]; dup {
			return nil, fmt.Errorf("duplicate quote client key %q", key)
		}

		byKey[key] = c
		keys = append(keys, key)
	}

	slices.Sort(keys)

	sources := make([]domain.QuoteSource, 0, len(keys)+1)
	sources = append(sources, domain.DatabaseSource)

	for _, k := range keys {
		sources = append(sources, domain.ExternalSource(k))
	}

	return &SourceRegistry{clients: byKey, sources: sources, intN: rand.IntN}, nil
}

// ListSources returns every source, the database first and the external
// sources ordered by key.
func (r *SourceRegistry) ListSources() []domain.QuoteSource {
	return slices.Clone(r.sources)
}

// Client returns the client registered under key.
func (r *SourceRegistry) Client(key string) (ports.QuoteClient, bool) {
	c, ok := r.clients[key]
	return c, ok
}

// Clients returns the registered clients ordered by key.
func (r *SourceRegistry) Clients() []ports.QuoteClient {
	out := make([]ports.QuoteClient, 0, len(r.clients))
	for _, s := range r.sources {
		if c, ok := r.clients[s.ClientKey()]; ok {
			out = append(out, c)
		}
	}

	return out
}

// ChooseSource picks uniformly at random among the sources not in exclude.
// It returns a *domain.NoAvailableSourceError when nothing is left.
func (r *SourceRegistry) ChooseSource(exclude ...domain.QuoteSource) (domain.QuoteSource, error) {
	candidates := make([]domain.QuoteSource, 0, len(r.sources))

	for _, s := range r.sources {
		if !slices.Contains(exclude, s) {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		return domain.QuoteSource{}, &domain.NoAvailableSourceError{Excluded: slices.Clone(exclude)}
	}

	return candidates[r.intN(len(candidates))], nil
}
