package clients

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

// retryPolicy decides whether a failed attempt is repeated and how long to
// wait before the next one.
type retryPolicy struct {
	config.RetryConfig

	// jitter returns a value in [0, 1). Replaced in tests.
	jitter func() float64
}

func newRetryPolicy(cfg config.RetryConfig) retryPolicy {
	return retryPolicy{RetryConfig: cfg, jitter: rand.Float64} //nolint:gosec // backoff spread, not security
}

func (p retryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

// backoff returns the wait after the given failed attempt (1-based):
// InitialInterval * Multiplier^(attempt-1), capped at MaxInterval and spread
// by ±JitterFactor.
func (p retryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt-1))
	d = min(d, float64(p.MaxInterval))

	if p.JitterFactor > 0 {
		d += d * p.JitterFactor * (2*p.jitter() - 1)
	}

	return time.Duration(d)
}

// delay is backoff unless the upstream asked for a wait with Retry-After
// (seconds). The wait never exceeds MaxInterval.
func (p retryPolicy) delay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			return min(time.Duration(secs)*time.Second, p.MaxInterval)
		}
	}

	return p.backoff(attempt)
}

// retryableStatus is true for rate limiting and server errors.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// retryableError is true for timeouts, connection failures and connections
// closed mid-response. The caller checks its own context first.
func retryableError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
