package middleware

import "context"

// idKey selects one of the IDs the middleware keeps on the request context.
type idKey uint8

const (
	requestIDKey idKey = iota
	correlationIDKey
)

func idFrom(ctx context.Context, key idKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}

// RequestIDFromContext returns the ID set by RequestID. The outbound API
// clients forward it upstream.
func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

// CorrelationIDFromContext returns the ID set by CorrelationID.
func CorrelationIDFromContext(ctx context.Context) string { return idFrom(ctx, correlationIDKey) }

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}
