package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/pkg/logger"
)

// Client is the shared connection pool used by the display name cache,
// the upload rate limiter and the readiness probe.
type Client struct {
	client *redis.Client
	addr   string
	logger *logger.Logger
}

// New opens a pool and blocks until Redis answers a ping, retrying up to
// cfg.MaxRetries times with exponential backoff. It gives up early when
// ctx is cancelled.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	c := &Client{
		client: redis.NewClient(Options(cfg)),
		addr:   cfg.Addr(),
		logger: log.With("component", "redis"),
	}
	if err := c.waitReady(ctx, cfg); err != nil {
		_ = c.client.Close()
		return nil, err
	}

	c.logger.Info("redis connected", "addr", c.addr, "pool_size", cfg.PoolSize, "tls", cfg.TLSEnabled)
	return c, nil
}

func (c *Client) waitReady(ctx context.Context, cfg *config.RedisConfig) error {
	var err error
	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		err = c.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := retryBackoff(cfg, attempt)
		c.logger.Warn("redis not ready, retrying",
			"addr", c.addr,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect to redis at %s: %w", c.addr, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("connect to redis at %s after %d attempts: %w", c.addr, cfg.MaxRetries+1, err)
}

// Options maps the Redis config onto go-redis options. The job queue
// builds its own connection from the same options.
func Options(cfg *config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryDelay,
		MaxRetryBackoff: cfg.MaxRetryDelay,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// retryBackoff doubles MinRetryDelay per attempt, capped at MaxRetryDelay.
func retryBackoff(cfg *config.RedisConfig, attempt int) time.Duration {
	d := cfg.MinRetryDelay << attempt
	if d <= 0 || d > cfg.MaxRetryDelay {
		return cfg.MaxRetryDelay
	}
	return d
}

// Ping reports whether Redis answers. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PoolStats exposes pool counters to the Prometheus collector.
func (c *Client) PoolStats() *redis.PoolStats {
	return c.client.PoolStats()
}

// Close releases the pool.
func (c *Client) Close() error {
	c.logger.Info("closing redis connection", "addr", c.addr)
	return c.client.Close()
}
