// Package rediscache provides the Redis-backed image lookup cache and the
// fixed-window vote rate limiter.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "quotes"

// Client wraps a go-redis client shared by the cache and the limiter.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New parses a redis:// URL, connects and pings the server.
func New(ctx context.Context, rawURL, prefix string) (*Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := NewFromClient(redis.NewClient(opts), prefix)

	if err := c.Check(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return c, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client, prefix string) *Client {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Client{rdb: rdb, prefix: prefix}
}

// Name implements ports.HealthChecker.
func (c *Client) Name() string {
	return "redis"
}

// Check implements ports.HealthChecker.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}
