package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name string
	err  error
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) error {
	return m.err
}

func TestRegister_DuplicateName(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&mockChecker{name: "database"}))

	err := registry.RegisterOptional(&mockChecker{name: "database"})

	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "database")
	require.Len(t, registry.checks, 1)
	assert.False(t, registry.checks[0].optional)
}

func TestCheckAll_NoCheckers(t *testing.T) {
	result := NewHealthRegistry().CheckAll(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Empty(t, result.Checks)
	assert.False(t, result.Timestamp.IsZero())
}

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name     string
		required []*mockChecker
		optional []*mockChecker
		want     HealthStatus
	}{
		{
			name:     "all healthy",
			required: []*mockChecker{{name: "database"}, {name: "redis"}},
			optional: []*mockChecker{{name: "zen_quote_api_client"}},
			want:     HealthStatusHealthy,
		},
		{
			name:     "optional failure degrades",
			required: []*mockChecker{{name: "database"}},
			optional: []*mockChecker{{name: "zen_quote_api_client", err: errors.New("circuit open")}},
			want:     HealthStatusDegraded,
		},
		{
			name:     "required failure is unhealthy",
			required: []*mockChecker{{name: "database", err: errors.New("connection refused")}},
			optional: []*mockChecker{{name: "zen_quote_api_client", err: errors.New("circuit open")}},
			want:     HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			for _, c := range tt.required {
				require.NoError(t, registry.Register(c))
			}

			for _, c := range tt.optional {
				require.NoError(t, registry.RegisterOptional(c))
			}

			result := registry.CheckAll(context.Background())

			assert.Equal(t, tt.want, result.Status)
			assert.Len(t, result.Checks, len(tt.required)+len(tt.optional))

			for _, c := range tt.optional {
				assert.True(t, result.Checks[c.name].Optional)

				if c.err != nil {
					assert.Equal(t, c.err.Error(), result.Checks[c.name].Message)
				}
			}
		})
	}
}

type contextAwareChecker struct {
	name string
}

func (c *contextAwareChecker) Name() string {
	return c.name
}

func (c *contextAwareChecker) Check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestCheckAll_ContextCancelled(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&contextAwareChecker{name: "database"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["database"].Message, "context canceled")
}
