package clients

import (
	"context"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := newRetryPolicy(config.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	})

	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.backoff(3))
	assert.Equal(t, time.Second, p.backoff(10))
}

func TestRetryPolicy_Jitter(t *testing.T) {
	p := newRetryPolicy(config.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		JitterFactor:    0.25,
	})

	p.jitter = func() float64 { return 0 }
	assert.Equal(t, 75*time.Millisecond, p.backoff(1))

	p.jitter = func() float64 { return 0.5 }
	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := newRetryPolicy(config.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	})

	withHeader := func(v string) *http.Response {
		return &http.Response{Header: http.Header{"Retry-After": {v}}}
	}

	assert.Equal(t, 100*time.Millisecond, p.delay(1, nil))
	assert.Equal(t, 2*time.Second, p.delay(1, withHeader("2")))
	assert.Equal(t, 5*time.Second, p.delay(1, withHeader("3600")), "capped")
	assert.Equal(t, 100*time.Millisecond, p.delay(1, withHeader("Wed, 21 Oct 2015 07:28:00 GMT")))
}

func TestRetryPolicy_Attempts(t *testing.T) {
	assert.Equal(t, 1, newRetryPolicy(config.RetryConfig{}).attempts())
	assert.Equal(t, 4, newRetryPolicy(config.RetryConfig{MaxAttempts: 4}).attempts())
}

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net error" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

func TestRetryable(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusNotFound:            false,
		http.StatusUnauthorized:        false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusGatewayTimeout:      true,
	} {
		assert.Equal(t, want, retryableStatus(code), code)
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", timeoutErr{timeout: true}, true},
		{"other net error", timeoutErr{}, false},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"connection dropped", io.ErrUnexpectedEOF, true},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}
