package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"verity/internal/domain/verification"
	"verity/internal/infrastructure/persistence/models"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.UserModel{},
		&models.VerificationModel{},
		&models.SubscriptionModel{},
		&models.BillingHistoryModel{},
	)
	require.NoError(t, err)

	return db
}

func createTestVerification(t *testing.T, repo verification.Repository, sid, wallet string) *verification.Verification {
	t.Helper()
	v, err := verification.NewVerification(sid, "Ada", "Lovelace", "ada@example.com", wallet)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), v))
	require.NotZero(t, v.ID())
	return v
}

func TestVerificationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationRepository(db, logger.NewLogger())
	ctx := context.Background()

	v := createTestVerification(t, repo, "vrf_repo0000001", "0xAbC001")

	t.Run("get by sid", func(t *testing.T) {
		found, err := repo.GetBySID(ctx, "vrf_repo0000001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, v.ID(), found.ID())
		assert.Equal(t, "0xabc001", found.WalletAddress())
		assert.Equal(t, verification.StatusPending, found.Status())
	})

	t.Run("get by check id after attach", func(t *testing.T) {
		require.NoError(t, v.AttachCheck("chk_repo_1"))
		require.NoError(t, repo.Update(ctx, v))

		found, err := repo.GetByCheckID(ctx, "chk_repo_1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, verification.StatusInProgress, found.Status())
	})

	t.Run("unknown check id returns nil", func(t *testing.T) {
		found, err := repo.GetByCheckID(ctx, "chk_missing")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestVerificationRepository_ActiveByWallet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationRepository(db, logger.NewLogger())
	ctx := context.Background()

	v := createTestVerification(t, repo, "vrf_repo0000002", "0xAbC002")

	active, err := repo.GetActiveByWalletAddress(ctx, "0xABC002")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v.ID(), active.ID())

	// outcome statuses are no longer active
	require.NoError(t, v.AttachCheck("chk_repo_2"))
	require.True(t, v.ApplyResult(verification.Result{Status: verification.StatusApproved}, time.Now()))
	require.NoError(t, repo.Update(ctx, v))

	active, err = repo.GetActiveByWalletAddress(ctx, "0xabc002")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestVerificationRepository_OptimisticLocking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationRepository(db, logger.NewLogger())
	ctx := context.Background()

	createTestVerification(t, repo, "vrf_repo0000003", "0xAbC003")

	// two copies of the same record race to update
	first, err := repo.GetBySID(ctx, "vrf_repo0000003")
	require.NoError(t, err)
	second, err := repo.GetBySID(ctx, "vrf_repo0000003")
	require.NoError(t, err)

	require.NoError(t, first.AttachCheck("chk_winner"))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, second.AttachCheck("chk_loser"))
	err = repo.Update(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))

	found, err := repo.GetBySID(ctx, "vrf_repo0000003")
	require.NoError(t, err)
	assert.Equal(t, "chk_winner", found.CheckID())
}

func TestVerificationRepository_FindExpiredApproved(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationRepository(db, logger.NewLogger())
	ctx := context.Background()
	now := time.Now()

	expired := createTestVerification(t, repo, "vrf_repo0000004", "0xAbC004")
	require.NoError(t, expired.AttachCheck("chk_old"))
	require.True(t, expired.ApplyResult(verification.Result{Status: verification.StatusApproved}, now.Add(-verification.ExpiryPeriod-time.Hour)))
	require.NoError(t, repo.Update(ctx, expired))

	fresh := createTestVerification(t, repo, "vrf_repo0000005", "0xAbC005")
	require.NoError(t, fresh.AttachCheck("chk_new"))
	require.True(t, fresh.ApplyResult(verification.Result{Status: verification.StatusApproved}, now))
	require.NoError(t, repo.Update(ctx, fresh))

	found, err := repo.FindExpiredApproved(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, expired.ID(), found[0].ID())
}

func TestVerificationRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationRepository(db, logger.NewLogger())
	ctx := context.Background()

	createTestVerification(t, repo, "vrf_repo0000006", "0xAbC006")
	v := createTestVerification(t, repo, "vrf_repo0000007", "0xAbC007")
	require.NoError(t, v.AttachCheck("chk_list"))
	require.NoError(t, repo.Update(ctx, v))

	status := verification.StatusInProgress
	items, total, err := repo.List(ctx, verification.Filter{Status: &status, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, v.ID(), items[0].ID())

	items, total, err = repo.List(ctx, verification.Filter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}
