package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openctemio/scanledger/pkg/logger"
)

// incrWindow counts one request in the current window and returns the
// new count with the window's remaining lifetime in milliseconds. The
// expiry is set only by the first request, so the window is fixed.
var incrWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimiter is a fixed-window counter per key, shared by every API
// replica through Redis.
type RateLimiter struct {
	client *Client
	prefix string
	limit  int
	window time.Duration
	logger *logger.Logger
}

// RateLimitResult is the decision for one request.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the current window closes.
	ResetAt time.Time
	// RetryAt is set only when the request was denied.
	RetryAt time.Time
}

// NewRateLimiter allows limit requests per window for each key under
// prefix, e.g. "ratelimit:uploads".
func NewRateLimiter(client *Client, prefix string, limit int, window time.Duration, log *logger.Logger) (*RateLimiter, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client is required")
	case prefix == "":
		return nil, errors.New("key prefix is required")
	case limit <= 0:
		return nil, errors.New("limit must be positive")
	case window < time.Millisecond:
		return nil, errors.New("window must be at least 1ms")
	case log == nil:
		return nil, errors.New("logger is required")
	}

	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		logger: log.With("component", "ratelimiter", "limiter", prefix),
	}, nil
}

func (rl *RateLimiter) key(k string) string {
	return rl.prefix + ":" + k
}

// Allow counts one request for key and reports whether it fits the window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	start := time.Now()
	res, err := incrWindow.Run(ctx, rl.client.client, []string{rl.key(key)}, rl.window.Milliseconds()).Int64Slice()
	DefaultMetrics.ObserveOperation("ratelimit_allow", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("rate limit check: unexpected reply %v", res)
	}

	result := rl.decide(int(res[0]), time.Duration(res[1])*time.Millisecond, start)
	if !result.Allowed {
		rl.logger.Debug("rate limit exceeded", "key", key, "retry_at", result.RetryAt)
	}
	return result, nil
}

// decide turns a window count into a decision.
func (rl *RateLimiter) decide(count int, ttl time.Duration, now time.Time) *RateLimitResult {
	result := &RateLimitResult{
		Allowed:   count <= rl.limit,
		Remaining: max(rl.limit-count, 0),
		ResetAt:   now.Add(ttl),
	}
	DefaultMetrics.RecordRateLimit(rl.prefix, result.Allowed)

	if !result.Allowed {
		result.RetryAt = result.ResetAt
	}
	return result
}

// Limit returns the maximum requests per window.
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Window returns the window length.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}
