package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/middleware"
	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		ServiceName: "zen_quote_api_client",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
	}
}

// upstream serves the statuses in order, repeating the last one, and counts calls.
func upstream(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(calls.Add(1))
		w.WriteHeader(statuses[min(n, len(statuses))-1])
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func get(t *testing.T, ctx context.Context, c *Client) (*http.Response, error) {
	t.Helper()

	resp, err := c.Get(ctx, "random", nil)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}

	return resp, err
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "config is required")

	cfg := testConfig("https://zenquotes.io/api/")
	cfg.ServiceName = ""
	_, err = New(cfg)
	require.ErrorContains(t, err, "service name is required")

	c, err := New(testConfig("https://zenquotes.io/api/"))
	require.NoError(t, err)
	assert.Equal(t, "https://zenquotes.io/api", c.BaseURL())
	assert.Equal(t, "zen_quote_api_client", c.ServiceName())
	assert.Equal(t, StateClosed, c.CircuitState())
	assert.Equal(t, "https://zenquotes.io/api/random", c.url("/random"))
	assert.Equal(t, "https://zenquotes.io/api/random", c.url("random"))
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCode  int
		wantCalls int32
	}{
		{"success first time", []int{http.StatusOK}, http.StatusOK, 1},
		{"recovers from server errors", []int{http.StatusBadGateway, http.StatusInternalServerError, http.StatusOK}, http.StatusOK, 3},
		{"recovers from rate limiting", []int{http.StatusTooManyRequests, http.StatusOK}, http.StatusOK, 2},
		{"client error is final", []int{http.StatusUnauthorized}, http.StatusUnauthorized, 1},
		{"last response after exhaustion", []int{http.StatusServiceUnavailable}, http.StatusServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := upstream(t, tt.statuses...)

			c, err := New(testConfig(srv.URL))
			require.NoError(t, err)

			resp, err := get(t, context.Background(), c)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClient_TransportErrorExhaustsRetries(t *testing.T) {
	srv, _ := upstream(t, http.StatusOK)
	addr := srv.URL
	srv.Close()

	c, err := New(testConfig(addr))
	require.NoError(t, err)

	_, err = get(t, context.Background(), c)

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestClient_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Retry.InitialInterval = time.Hour
	cfg.Retry.MaxInterval = time.Hour

	c, err := New(cfg)
	require.NoError(t, err)

	start := time.Now()
	resp, err := get(t, context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_CancelledDuringBackoff(t *testing.T) {
	srv, calls := upstream(t, http.StatusServiceUnavailable)

	cfg := testConfig(srv.URL)
	cfg.Retry.InitialInterval = time.Hour
	cfg.Retry.MaxInterval = time.Hour

	c, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = get(t, ctx, c)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_PerAttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.Retry.MaxAttempts = 2

	c, err := New(cfg)
	require.NoError(t, err)

	_, err = get(t, context.Background(), c)

	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestClient_BreakerOpensAndShortCircuits(t *testing.T) {
	srv, calls := upstream(t, http.StatusBadGateway)

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Circuit.MaxFailures = 2

	c, err := New(cfg)
	require.NoError(t, err)

	for range 2 {
		resp, err := get(t, context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}

	assert.Equal(t, StateOpen, c.CircuitState())

	_, err = get(t, context.Background(), c)

	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ClientErrorsKeepBreakerClosed(t *testing.T) {
	srv, _ := upstream(t, http.StatusNotFound)

	cfg := testConfig(srv.URL)
	cfg.Circuit.MaxFailures = 1

	c, err := New(cfg)
	require.NoError(t, err)

	for range 3 {
		_, err := get(t, context.Background(), c)
		require.NoError(t, err)
	}

	assert.Equal(t, StateClosed, c.CircuitState())
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	var gotQuery url.Values
	var authCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.AuthFunc = func(r *http.Request) {
		authCalls.Add(1)
		r.Header.Set("X-Api-Key", "secret")
	}

	c, err := New(cfg)
	require.NoError(t, err)

	ctx := middleware.ContextWithRequestID(context.Background(), "req-1")
	ctx = middleware.ContextWithCorrelationID(ctx, "corr-1")

	resp, err := c.Get(ctx, "/photos/random", url.Values{"query": {"zen"}})
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "req-1", got.Get(middleware.HeaderRequestID))
	assert.Equal(t, "corr-1", got.Get(middleware.HeaderCorrelationID))
	assert.Equal(t, "secret", got.Get("X-Api-Key"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "zen", gotQuery.Get("query"))
	assert.Equal(t, int32(1), authCalls.Load())
}

func TestClient_AuthAppliedOnEveryAttempt(t *testing.T) {
	srv, _ := upstream(t, http.StatusInternalServerError, http.StatusOK)

	var authCalls atomic.Int32

	cfg := testConfig(srv.URL)
	cfg.AuthFunc = func(*http.Request) { authCalls.Add(1) }

	c, err := New(cfg)
	require.NoError(t, err)

	_, err = get(t, context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, int32(2), authCalls.Load())
}

func TestClient_ReplaysBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)

		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c, err := New(testConfig(srv.URL))
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL, strings.NewReader(`{"q":"x"}`))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"q":"x"}`, `{"q":"x"}`}, bodies)
}

func TestClient_BadURL(t *testing.T) {
	c, err := New(testConfig("://bad"))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "random", nil)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
}

func TestNewTransport(t *testing.T) {
	tr := newTransport(config.TransportConfig{})
	assert.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, defaultIdleConnTimeout, tr.IdleConnTimeout)

	tr = newTransport(config.TransportConfig{MaxIdleConns: 7, MaxIdleConnsPerHost: 3, IdleConnTimeout: time.Second})
	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 3, tr.MaxIdleConnsPerHost)
	assert.Equal(t, time.Second, tr.IdleConnTimeout)
}
