package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"verity/internal/shared/logger"
)

// Enqueuer is the producer side of the queue. Usecases and handlers depend
// on this interface so tests can capture enqueued tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload interface{}, opts ...Option) error
}

type options struct {
	delay time.Duration
}

type Option func(*options)

// WithDelay schedules the task to become ready after d instead of immediately
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

type Client struct {
	rdb    *redis.Client
	logger logger.Interface
}

func NewClient(rdb *redis.Client, logger logger.Interface) *Client {
	return &Client{
		rdb:    rdb,
		logger: logger,
	}
}

func (c *Client) Enqueue(ctx context.Context, name string, payload interface{}, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := Task{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    data,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := c.push(ctx, task, o.delay); err != nil {
		return err
	}

	c.logger.Debugw("task enqueued", "task_id", task.ID, "name", name, "delay", o.delay)
	return nil
}

// push writes the envelope either to the ready list or, when delayed, to
// the scheduled zset keyed by its due time. The worker reuses it for retries.
func (c *Client) push(ctx context.Context, task Task, delay time.Duration) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task envelope: %w", err)
	}

	if delay > 0 {
		due := float64(time.Now().Add(delay).UnixMilli())
		if err := c.rdb.ZAdd(ctx, scheduledKey, redis.Z{Score: due, Member: raw}).Err(); err != nil {
			return fmt.Errorf("failed to schedule task: %w", err)
		}
		return nil
	}

	if err := c.rdb.LPush(ctx, readyKey, raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}
