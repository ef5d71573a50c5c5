package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter implements ports.RateLimiter. Every key gets limit hits
// per window; windows are aligned to the Unix epoch.
type FixedWindowLimiter struct {
	client    *Client
	namespace string
	limit     int
	window    time.Duration
	now       func() time.Time
}

// NewFixedWindowLimiter validates the limits and returns a limiter.
func NewFixedWindowLimiter(client *Client, namespace string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}

	if window.Milliseconds() <= 0 {
		return nil, errors.New("rate limiter window must be at least 1ms")
	}

	return &FixedWindowLimiter{
		client:    client,
		namespace: namespace,
		limit:     limit,
		window:    window,
		now:       time.Now,
	}, nil
}

// Allow records a hit and reports whether key is within quota. Redis errors
// are returned with false; the caller picks the failure policy.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := l.client.key(l.namespace, key, strconv.FormatInt(slot, 10))

	count, err := fixedWindowScript.Run(ctx, l.client.rdb, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}

	return count <= int64(l.limit), nil
}
