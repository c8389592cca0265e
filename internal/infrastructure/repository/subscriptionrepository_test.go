package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/domain/billing"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

func createTestSubscription(t *testing.T, repo billing.SubscriptionRepository, sid string, userID uint, customerID string) *billing.Subscription {
	t.Helper()
	sub, err := billing.NewSubscription(sid, userID, customerID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), sub))
	require.NotZero(t, sub.ID())
	return sub
}

func TestSubscriptionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, logger.NewLogger())
	ctx := context.Background()

	sub := createTestSubscription(t, repo, "sub_repo0000001", 1, "cus_repo_001")

	t.Run("get by stripe customer id", func(t *testing.T) {
		found, err := repo.GetByStripeCustomerID(ctx, "cus_repo_001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, sub.ID(), found.ID())
		assert.Equal(t, billing.StatusIncomplete, found.Status())
	})

	t.Run("get by stripe subscription id after checkout", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		require.True(t, sub.ActivateFromCheckout("stripe_sub_repo_1", billing.PlanStarter, now))
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.GetByStripeSubscriptionID(ctx, "stripe_sub_repo_1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, billing.StatusActive, found.Status())
		assert.Equal(t, 3, found.TokensLimit())
		require.NotNil(t, found.LastEventAt())
		assert.True(t, found.LastEventAt().Equal(now))
	})

	t.Run("unknown customer returns nil", func(t *testing.T) {
		found, err := repo.GetByStripeCustomerID(ctx, "cus_missing")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestSubscriptionRepository_OptimisticLocking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	createTestSubscription(t, repo, "sub_repo0000002", 2, "cus_repo_002")

	first, err := repo.GetBySID(ctx, "sub_repo0000002")
	require.NoError(t, err)
	second, err := repo.GetBySID(ctx, "sub_repo0000002")
	require.NoError(t, err)

	require.True(t, first.ActivateFromCheckout("stripe_sub_a", billing.PlanStarter, now))
	require.NoError(t, repo.Update(ctx, first))

	require.True(t, second.ActivateFromCheckout("stripe_sub_b", billing.PlanEnterprise, now))
	err = repo.Update(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestBillingHistoryRepository_DuplicateInvoice(t *testing.T) {
	db := setupTestDB(t)
	subRepo := NewSubscriptionRepository(db, logger.NewLogger())
	histRepo := NewBillingHistoryRepository(db, logger.NewLogger())
	ctx := context.Background()

	sub := createTestSubscription(t, subRepo, "sub_repo0000003", 3, "cus_repo_003")

	inv := billing.InvoiceData{
		InvoiceID:   "in_repo_001",
		CustomerID:  "cus_repo_003",
		AmountCents: 4900,
		Currency:    "usd",
		Status:      "paid",
		InvoiceDate: time.Now().UTC(),
	}

	row, err := billing.NewBillingHistory(sub.ID(), inv)
	require.NoError(t, err)
	require.NoError(t, histRepo.Create(ctx, row))

	// replayed invoice event hits the unique index
	dup, err := billing.NewBillingHistory(sub.ID(), inv)
	require.NoError(t, err)
	err = histRepo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateError(err))

	items, total, err := histRepo.ListBySubscriptionID(ctx, sub.ID(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)
}
