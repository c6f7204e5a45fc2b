package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StringCache stores plain string values under a key prefix with one TTL.
// Reads and writes are batched so a lookup for n keys costs one round trip.
type StringCache struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewStringCache creates a cache whose keys are stored as "prefix:key".
func NewStringCache(client *Client, prefix string, ttl time.Duration) (*StringCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	if ttl <= 0 {
		return nil, errors.New("TTL must be positive")
	}
	return &StringCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (c *StringCache) key(k string) string {
	return c.prefix + ":" + k
}

// GetMany returns the cached values for keys. Missing keys are absent
// from the result.
func (c *StringCache) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}

	start := time.Now()
	values, err := c.client.client.MGet(ctx, full...).Result()
	DefaultMetrics.ObserveOperation("cache_get_many", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		found[keys[i]] = s
	}
	DefaultMetrics.RecordCacheLookups(c.prefix, len(found), len(keys)-len(found))
	return found, nil
}

// SetMany stores every entry with the cache TTL in one pipeline.
func (c *StringCache) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	_, err := c.client.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range entries {
			p.Set(ctx, c.key(k), v, c.ttl)
		}
		return nil
	})
	DefaultMetrics.ObserveOperation("cache_set_many", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
