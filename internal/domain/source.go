package domain

// DatabaseSourceKey is the reserved key of the local database source.
const DatabaseSourceKey = "database"

// QuoteSource identifies where a random quote is taken from: the local
// database or an external API registered under a client key.
type QuoteSource struct {
	key string
}

// DatabaseSource is the local quote store.
var DatabaseSource = QuoteSource{key: DatabaseSourceKey}

// ExternalSource returns the source backed by the API client registered under key.
func ExternalSource(key string) QuoteSource {
	return QuoteSource{key: key}
}

// IsDatabase reports whether s is the local database.
func (s QuoteSource) IsDatabase() bool {
	return s.key == DatabaseSourceKey
}

// ClientKey returns the API client key, or "" for the database.
func (s QuoteSource) ClientKey() string {
	if s.IsDatabase() {
		return ""
	}

	return s.key
}

// String implements fmt.Stringer.
func (s QuoteSource) String() string {
	return s.key
}
