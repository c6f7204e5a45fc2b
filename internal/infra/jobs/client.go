// Package jobs runs background work on Asynq: notification delivery is
// queued by the API and processed by the worker.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/openctemio/scanledger/internal/config"
	redisinfra "github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/logger"
)

// RedisOpt builds the Asynq connection options from the shared Redis
// configuration.
func RedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	o := redisinfra.Options(cfg)
	return asynq.RedisClientOpt{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		TLSConfig:    o.TLSConfig,
	}
}

// taskEnqueuer is the subset of *asynq.Client the Client uses.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client   taskEnqueuer
	maxRetry int
	logger   *logger.Logger
}

// NewClient creates a new job client for enqueueing tasks. maxRetry bounds
// delivery attempts per notification.
func NewClient(cfg *config.RedisConfig, maxRetry int, log *logger.Logger) *Client {
	return newClient(asynq.NewClient(RedisOpt(cfg)), maxRetry, log)
}

func newClient(c taskEnqueuer, maxRetry int, log *logger.Logger) *Client {
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Client{
		client:   c,
		maxRetry: maxRetry,
		logger:   log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueNotification queues one notification for delivery. The task id is
// the notification id, so enqueueing the same notification twice is a no-op.
func (c *Client) EnqueueNotification(ctx context.Context, n *notification.Notification) error {
	task, err := NewNotificationDeliverTask(n, c.maxRetry)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("notification already queued", "notification_id", n.ID().String())
		return nil
	}
	if err != nil {
		c.logger.Error("failed to enqueue notification",
			"notification_id", n.ID().String(),
			"recipient_id", n.RecipientID().String(),
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Debug("notification queued",
		"task_id", info.ID,
		"recipient_id", n.RecipientID().String(),
		"queue", info.Queue,
	)
	return nil
}
