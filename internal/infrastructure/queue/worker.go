package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"verity/internal/infrastructure/ratelimit"
	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/goroutine"
	"verity/internal/shared/logger"
)

// Handler processes one task payload. Returning nil acks the task; an error
// wrapped with Fatal dead-letters it; any other error retries it with
// backoff until the policy's MaxRetries, then dead-letters it.
type Handler func(ctx context.Context, payload json.RawMessage) error

type registration struct {
	handler Handler
	policy  Policy
}

const (
	promoteInterval = time.Second
	reapInterval    = 30 * time.Second
	promoteBatch    = 100

	// throttled tasks are pushed back without consuming an attempt
	throttleDelay = 10 * time.Second
)

// broker is the subset of redis operations runTask needs to settle a task.
type broker interface {
	lease(ctx context.Context, raw string, until time.Time) error
	ack(ctx context.Context, raw string) error
	deadLetter(ctx context.Context, raw string) error
	schedule(ctx context.Context, task Task, delay time.Duration) error
}

type redisBroker struct {
	rdb    *redis.Client
	client *Client
}

func (b *redisBroker) lease(ctx context.Context, raw string, until time.Time) error {
	return b.rdb.ZAdd(ctx, leaseKey, redis.Z{Score: float64(until.UnixMilli()), Member: raw}).Err()
}

// ack removes the task from the processing list and releases its lease
func (b *redisBroker) ack(ctx context.Context, raw string) error {
	pipe := b.rdb.Pipeline()
	pipe.LRem(ctx, processingKey, 1, raw)
	pipe.ZRem(ctx, leaseKey, raw)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *redisBroker) deadLetter(ctx context.Context, raw string) error {
	return b.rdb.LPush(ctx, deadKey, raw).Err()
}

func (b *redisBroker) schedule(ctx context.Context, task Task, delay time.Duration) error {
	return b.client.push(ctx, task, delay)
}

// Worker consumes the ready list with a pool of goroutines. Tasks sit on a
// shared processing list with a lease while running, so a crashed worker's
// tasks are redelivered by the reaper after the hard time limit.
type Worker struct {
	rdb      *redis.Client
	store    broker
	limiter  ratelimit.RateLimiter
	cfg      *sharedConfig.QueueConfig
	logger   logger.Interface
	handlers map[string]registration
	mu       sync.RWMutex
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(
	client *Client,
	rdb *redis.Client,
	limiter ratelimit.RateLimiter,
	cfg *sharedConfig.QueueConfig,
	logger logger.Interface,
) *Worker {
	return &Worker{
		rdb:      rdb,
		store:    &redisBroker{rdb: rdb, client: client},
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.Named("queue"),
		handlers: make(map[string]registration),
		stop:     make(chan struct{}),
	}
}

// Register binds a handler and its policy to a task name. Must be called
// before Start.
func (w *Worker) Register(name string, handler Handler, policy Policy) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if policy.MaxRetries == 0 && policy.BackoffBase == 0 {
		policy = DefaultPolicy
	}
	w.handlers[name] = registration{handler: handler, policy: policy}
}

// Start launches the consumer pool, the promoter and the reaper
func (w *Worker) Start() {
	concurrency := w.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		goroutine.SafeGo(w.logger, fmt.Sprintf("queue-consumer-%d", i), func() {
			defer w.wg.Done()
			w.consumeLoop()
		})
	}

	w.wg.Add(1)
	goroutine.SafeGo(w.logger, "queue-promoter", func() {
		defer w.wg.Done()
		w.promoteLoop()
	})

	w.wg.Add(1)
	goroutine.SafeGo(w.logger, "queue-reaper", func() {
		defer w.wg.Done()
		w.reapLoop()
	})

	w.logger.Infow("queue worker started", "concurrency", concurrency)
}

// Stop drains the worker. In-flight handlers finish up to ctx's deadline.
func (w *Worker) Stop(ctx context.Context) error {
	close(w.stop)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Infow("queue worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue worker shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) consumeLoop() {
	ctx := context.Background()

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		raw, err := w.rdb.BLMove(ctx, readyKey, processingKey, "RIGHT", "LEFT", 2*time.Second).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			w.logger.Errorw("failed to fetch task", "error", err)
			select {
			case <-w.stop:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.runTask(ctx, raw)
	}
}

func (w *Worker) runTask(ctx context.Context, raw string) {
	hardLimit := time.Duration(w.cfg.HardTimeLimitSec) * time.Second
	if err := w.store.lease(ctx, raw, time.Now().Add(hardLimit)); err != nil {
		w.logger.Errorw("failed to record task lease", "error", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		w.logger.Errorw("dropping undecodable task", "error", err)
		w.settleDead(ctx, raw)
		return
	}

	w.mu.RLock()
	reg, ok := w.handlers[task.Name]
	w.mu.RUnlock()
	if !ok {
		w.logger.Errorw("no handler registered for task", "name", task.Name, "task_id", task.ID)
		w.settleDead(ctx, raw)
		return
	}

	if !w.allowRate(reg.policy) {
		// throttled delivery does not consume an attempt
		w.settleRetry(ctx, raw, task, throttleDelay)
		w.logger.Debugw("task throttled", "name", task.Name, "task_id", task.ID)
		return
	}

	softLimit := time.Duration(w.cfg.SoftTimeLimitSec) * time.Second
	taskCtx, cancel := context.WithTimeout(context.Background(), softLimit)
	err := reg.handler(taskCtx, task.Payload)
	cancel()

	switch {
	case err == nil:
		w.ackTask(ctx, raw)
		w.logger.Debugw("task completed", "name", task.Name, "task_id", task.ID, "attempt", task.Attempt)

	case IsFatal(err):
		w.logger.Errorw("task failed permanently",
			"name", task.Name, "task_id", task.ID, "error", err)
		w.settleDead(ctx, raw)

	default:
		task.Attempt++
		if task.Attempt > reg.policy.MaxRetries {
			w.logger.Errorw("task exhausted retries",
				"name", task.Name, "task_id", task.ID, "attempts", task.Attempt, "error", err)
			w.settleDead(ctx, raw)
			return
		}

		delay := reg.policy.Backoff(task.Attempt)
		w.logger.Warnw("task failed, retrying",
			"name", task.Name, "task_id", task.ID, "attempt", task.Attempt, "delay", delay, "error", err)
		w.settleRetry(ctx, raw, task, delay)
	}
}

// settleRetry schedules the follow-up delivery before acking the current one.
// If the push fails the task stays leased on the processing list and the
// reaper redelivers it; a crash between push and ack hands the reaper a
// duplicate, which handlers absorb.
func (w *Worker) settleRetry(ctx context.Context, raw string, task Task, delay time.Duration) {
	if err := w.store.schedule(ctx, task, delay); err != nil {
		w.logger.Errorw("failed to reschedule task, leaving it leased for redelivery",
			"task_id", task.ID, "error", err)
		return
	}
	w.ackTask(ctx, raw)
}

// settleDead records the dead-letter entry before acking
func (w *Worker) settleDead(ctx context.Context, raw string) {
	if err := w.store.deadLetter(ctx, raw); err != nil {
		w.logger.Errorw("failed to dead-letter task, leaving it leased for redelivery", "error", err)
		return
	}
	w.ackTask(ctx, raw)
}

func (w *Worker) ackTask(ctx context.Context, raw string) {
	if err := w.store.ack(ctx, raw); err != nil {
		w.logger.Errorw("failed to ack task", "error", err)
	}
}

func (w *Worker) allowRate(policy Policy) bool {
	if policy.RateCategory == "" {
		return true
	}

	var perMinute int
	switch policy.RateCategory {
	case RateCategoryEmail:
		perMinute = w.cfg.EmailRatePerMin
	case RateCategoryKYC:
		perMinute = w.cfg.KYCRatePerMin
	}
	if perMinute <= 0 {
		return true
	}

	allowed, err := w.limiter.Allow("task:"+policy.RateCategory, ratelimit.RateLimitConfig{
		RequestsPerMinute: perMinute,
	})
	if err != nil {
		// a broken limiter must not stall the queue
		w.logger.Errorw("rate limiter check failed", "category", policy.RateCategory, "error", err)
		return true
	}
	return allowed
}

// promoteLoop moves due scheduled tasks onto the ready list
func (w *Worker) promoteLoop() {
	ctx := context.Background()
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.promoteDue(ctx)
		}
	}
}

func (w *Worker) promoteDue(ctx context.Context) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := w.rdb.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		w.logger.Errorw("failed to read scheduled tasks", "error", err)
		return
	}

	for _, raw := range members {
		if err := promoteScript.Run(ctx, w.rdb, []string{scheduledKey, readyKey}, raw).Err(); err != nil {
			w.logger.Errorw("failed to promote task", "error", err)
		}
	}
}

// promoteScript moves one scheduled task to the ready list atomically, so
// concurrent promoters cannot double-deliver and a crash cannot strand the
// task between the two keys.
var promoteScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	redis.call("LPUSH", KEYS[2], ARGV[1])
	return 1
end
return 0`)

// redeliverScript returns one expired-lease task to the ready list atomically
var redeliverScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	redis.call("LREM", KEYS[2], 1, ARGV[1])
	redis.call("LPUSH", KEYS[3], ARGV[1])
	return 1
end
return 0`)

// reapLoop returns tasks whose lease expired to the ready list. This is the
// crash redelivery path: a worker that died mid-task never acked, so its
// entry stays on the processing list until the hard limit passes.
func (w *Worker) reapLoop() {
	ctx := context.Background()
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.reapExpired(ctx)
		}
	}
}

func (w *Worker) reapExpired(ctx context.Context) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := w.rdb.ZRangeByScore(ctx, leaseKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		w.logger.Errorw("failed to read expired leases", "error", err)
		return
	}

	for _, raw := range members {
		moved, err := redeliverScript.Run(ctx, w.rdb, []string{leaseKey, processingKey, readyKey}, raw).Int()
		if err != nil {
			w.logger.Errorw("failed to redeliver expired task", "error", err)
			continue
		}
		if moved == 1 {
			w.logger.Warnw("redelivered task with expired lease")
		}
	}
}
