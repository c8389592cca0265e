package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/infrastructure/ratelimit"
	sharedConfig "verity/internal/shared/config"
	"verity/internal/shared/logger"
)

func TestPolicyBackoff(t *testing.T) {
	policy := Policy{MaxRetries: 3, BackoffBase: 60 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 180 * time.Second},
		{0, 60 * time.Second}, // clamped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Backoff(tt.attempt))
		})
	}
}

func TestFatalClassification(t *testing.T) {
	t.Run("fatal wraps and unwraps", func(t *testing.T) {
		base := errors.New("bad payload")
		err := Fatal(base)
		assert.True(t, IsFatal(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("fatal survives further wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler failed: %w", Fatal(errors.New("bad payload")))
		assert.True(t, IsFatal(err))
	})

	t.Run("plain errors are retryable", func(t *testing.T) {
		assert.False(t, IsFatal(errors.New("network timeout")))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Fatal(nil))
	})
}

func TestTaskEnvelope(t *testing.T) {
	task := Task{
		ID:         "t-1",
		Name:       "kyc:reconcile",
		Payload:    json.RawMessage(`{"check_id":"chk_1"}`),
		Attempt:    2,
		EnqueuedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded Task
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, task.Name, decoded.Name)
	assert.Equal(t, 2, decoded.Attempt)
	assert.JSONEq(t, `{"check_id":"chk_1"}`, string(decoded.Payload))
}

type fakeBroker struct {
	ops         []string
	scheduled   []Task
	delays      []time.Duration
	scheduleErr error
	deadErr     error
}

func (b *fakeBroker) lease(_ context.Context, _ string, _ time.Time) error {
	b.ops = append(b.ops, "lease")
	return nil
}

func (b *fakeBroker) ack(_ context.Context, _ string) error {
	b.ops = append(b.ops, "ack")
	return nil
}

func (b *fakeBroker) deadLetter(_ context.Context, _ string) error {
	b.ops = append(b.ops, "dead")
	return b.deadErr
}

func (b *fakeBroker) schedule(_ context.Context, task Task, delay time.Duration) error {
	b.ops = append(b.ops, "schedule")
	if b.scheduleErr != nil {
		return b.scheduleErr
	}
	b.scheduled = append(b.scheduled, task)
	b.delays = append(b.delays, delay)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string, ratelimit.RateLimitConfig) (bool, error) {
	return false, nil
}

func (denyLimiter) GetRemaining(string, time.Duration) (int64, error) {
	return 0, nil
}

func newSettlementWorker(store broker, handler Handler, policy Policy) *Worker {
	cfg := &sharedConfig.QueueConfig{
		SoftTimeLimitSec: 5,
		HardTimeLimitSec: 60,
		EmailRatePerMin:  10,
		KYCRatePerMin:    5,
	}
	w := NewWorker(nil, nil, denyLimiter{}, cfg, logger.NewLogger())
	w.store = store
	w.Register("kyc:reconcile", handler, policy)
	return w
}

func rawTask(t *testing.T, attempt int) string {
	t.Helper()
	raw, err := json.Marshal(Task{
		ID:      "t-1",
		Name:    "kyc:reconcile",
		Payload: json.RawMessage(`{"check_id":"chk_1"}`),
		Attempt: attempt,
	})
	require.NoError(t, err)
	return string(raw)
}

func TestRunTaskSettlement(t *testing.T) {
	ctx := context.Background()
	policy := Policy{MaxRetries: 3, BackoffBase: 60 * time.Second}

	t.Run("retry is scheduled before the ack", func(t *testing.T) {
		store := &fakeBroker{}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return errors.New("provider timeout")
		}, policy)

		w.runTask(ctx, rawTask(t, 0))

		assert.Equal(t, []string{"lease", "schedule", "ack"}, store.ops)
		require.Len(t, store.scheduled, 1)
		assert.Equal(t, 1, store.scheduled[0].Attempt)
		assert.Equal(t, 60*time.Second, store.delays[0])
	})

	t.Run("failed reschedule leaves the task leased", func(t *testing.T) {
		store := &fakeBroker{scheduleErr: errors.New("redis down")}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return errors.New("provider timeout")
		}, policy)

		w.runTask(ctx, rawTask(t, 0))

		assert.Equal(t, []string{"lease", "schedule"}, store.ops)
		assert.NotContains(t, store.ops, "ack")
	})

	t.Run("fatal error dead-letters before the ack", func(t *testing.T) {
		store := &fakeBroker{}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return Fatal(errors.New("bad payload"))
		}, policy)

		w.runTask(ctx, rawTask(t, 0))

		assert.Equal(t, []string{"lease", "dead", "ack"}, store.ops)
	})

	t.Run("failed dead-letter leaves the task leased", func(t *testing.T) {
		store := &fakeBroker{deadErr: errors.New("redis down")}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return Fatal(errors.New("bad payload"))
		}, policy)

		w.runTask(ctx, rawTask(t, 0))

		assert.Equal(t, []string{"lease", "dead"}, store.ops)
	})

	t.Run("exhausted retries dead-letter instead of rescheduling", func(t *testing.T) {
		store := &fakeBroker{}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return errors.New("provider timeout")
		}, policy)

		w.runTask(ctx, rawTask(t, 3))

		assert.Equal(t, []string{"lease", "dead", "ack"}, store.ops)
		assert.Empty(t, store.scheduled)
	})

	t.Run("success acks without scheduling", func(t *testing.T) {
		store := &fakeBroker{}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			return nil
		}, policy)

		w.runTask(ctx, rawTask(t, 0))

		assert.Equal(t, []string{"lease", "ack"}, store.ops)
	})

	t.Run("throttled delivery keeps its attempt count", func(t *testing.T) {
		store := &fakeBroker{}
		w := newSettlementWorker(store, func(context.Context, json.RawMessage) error {
			t.Fatal("handler must not run while throttled")
			return nil
		}, Policy{MaxRetries: 3, BackoffBase: time.Minute, RateCategory: RateCategoryKYC})

		w.runTask(ctx, rawTask(t, 2))

		assert.Equal(t, []string{"lease", "schedule", "ack"}, store.ops)
		require.Len(t, store.scheduled, 1)
		assert.Equal(t, 2, store.scheduled[0].Attempt)
		assert.Equal(t, throttleDelay, store.delays[0])
	})
}
