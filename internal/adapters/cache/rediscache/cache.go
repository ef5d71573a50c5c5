package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nico-vromans/random-quote-generator/internal/domain"
)

// Cache implements ports.Cache on top of Redis string keys.
type Cache struct {
	client    *Client
	namespace string
}

// NewCache returns a cache whose keys live under prefix:namespace.
func NewCache(client *Client, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

// Get returns domain.ErrNotFound on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.rdb.Get(ctx, c.client.key(c.namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// Set stores value; a ttlSeconds of 0 keeps it until deleted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := time.Duration(ttlSeconds) * time.Second

	if err := c.client.rdb.Set(ctx, c.client.key(c.namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.rdb.Del(ctx, c.client.key(c.namespace, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
