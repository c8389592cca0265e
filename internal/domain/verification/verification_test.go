package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newPendingVerification(t *testing.T) *Verification {
	t.Helper()
	v, err := NewVerification("vrf_test12345678", "Ada", "Lovelace", "ada@example.com", "0xAbC123")
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

func newInProgressVerification(t *testing.T) *Verification {
	t.Helper()
	v := newPendingVerification(t)
	require.NoError(t, v.AttachApplicant("app_1"))
	require.NoError(t, v.AttachCheck("chk_1"))
	return v
}

func TestNewVerification(t *testing.T) {
	t.Run("creates pending record with lowercased wallet", func(t *testing.T) {
		v := newPendingVerification(t)
		assert.Equal(t, StatusPending, v.Status())
		assert.Equal(t, "0xabc123", v.WalletAddress())
		assert.Equal(t, 1, v.Version())
		assert.Nil(t, v.CompletedAt())
		assert.Nil(t, v.ExpiresAt())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewVerification("", "Ada", "Lovelace", "ada@example.com", "0xabc")
		assert.Error(t, err)

		_, err = NewVerification("vrf_x", "Ada", "Lovelace", "", "0xabc")
		assert.Error(t, err)

		_, err = NewVerification("vrf_x", "Ada", "Lovelace", "ada@example.com", "")
		assert.Error(t, err)
	})
}

func TestAttachCheck(t *testing.T) {
	t.Run("moves pending to in_progress", func(t *testing.T) {
		v := newPendingVerification(t)
		require.NoError(t, v.AttachCheck("chk_42"))
		assert.Equal(t, StatusInProgress, v.Status())
		assert.Equal(t, "chk_42", v.CheckID())
		assert.Equal(t, 2, v.Version())
	})

	t.Run("rejects attaching twice", func(t *testing.T) {
		v := newInProgressVerification(t)
		assert.Error(t, v.AttachCheck("chk_other"))
	})
}

func TestStatusRankOrdering(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to in_progress", StatusPending, StatusInProgress, true},
		{"pending straight to approved", StatusPending, StatusApproved, true},
		{"in_progress to approved", StatusInProgress, StatusApproved, true},
		{"in_progress to rejected", StatusInProgress, StatusRejected, true},
		{"in_progress to requires_review", StatusInProgress, StatusRequiresReview, true},
		{"approved to expired", StatusApproved, StatusExpired, true},
		{"approved replay", StatusApproved, StatusApproved, false},
		{"approved back to in_progress", StatusApproved, StatusInProgress, false},
		{"rejected to approved same rank", StatusRejected, StatusApproved, false},
		{"requires_review to rejected same rank", StatusRequiresReview, StatusRejected, false},
		{"expired is final", StatusExpired, StatusApproved, false},
		{"in_progress replay", StatusInProgress, StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestApplyResult(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("approval takes edge and sets expiry", func(t *testing.T) {
		v := newInProgressVerification(t)
		taken := v.ApplyResult(Result{
			Status:            StatusApproved,
			CheckID:           "chk_1",
			VerificationLevel: 3,
			CountryCode:       "GBR",
		}, now)

		require.True(t, taken)
		assert.Equal(t, StatusApproved, v.Status())
		assert.Equal(t, 3, v.VerificationLevel())
		assert.Equal(t, "GBR", v.CountryCode())
		require.NotNil(t, v.CompletedAt())
		assert.Equal(t, now, *v.CompletedAt())
		require.NotNil(t, v.ExpiresAt())
		assert.Equal(t, now.Add(ExpiryPeriod), *v.ExpiresAt())
	})

	t.Run("replay of same outcome is a no-op", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusApproved}, now))
		versionAfterEdge := v.Version()

		taken := v.ApplyResult(Result{Status: StatusApproved}, now.Add(time.Minute))
		assert.False(t, taken)
		assert.Equal(t, versionAfterEdge, v.Version())
	})

	t.Run("late in_progress after outcome is dropped", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusRejected, RejectionReasons: []string{"document_expired"}}, now))

		taken := v.ApplyResult(Result{Status: StatusInProgress}, now.Add(time.Minute))
		assert.False(t, taken)
		assert.Equal(t, StatusRejected, v.Status())
		assert.Equal(t, []string{"document_expired"}, v.RejectionReasons())
	})

	t.Run("completed_at is write-once", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusApproved}, now))
		first := *v.CompletedAt()

		// expired outranks approved but is not an outcome status
		require.True(t, v.ApplyResult(Result{Status: StatusExpired}, now.Add(48*time.Hour)))
		assert.Equal(t, first, *v.CompletedAt())
	})

	t.Run("rejection does not set expiry", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusRejected}, now))
		assert.Nil(t, v.ExpiresAt())
		require.NotNil(t, v.CompletedAt())
	})

	t.Run("provider completed_at wins over clock", func(t *testing.T) {
		v := newInProgressVerification(t)
		providerTime := now.Add(-10 * time.Minute)
		require.True(t, v.ApplyResult(Result{Status: StatusApproved, CompletedAt: providerTime}, now))
		assert.Equal(t, providerTime, *v.CompletedAt())
	})

	t.Run("invalid status is dropped", func(t *testing.T) {
		v := newInProgressVerification(t)
		assert.False(t, v.ApplyResult(Result{Status: Status("unknown")}, now))
		assert.Equal(t, StatusInProgress, v.Status())
	})
}

func TestMarkExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expires approved record past its window", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusApproved}, now))

		later := now.Add(ExpiryPeriod + time.Hour)
		require.NoError(t, v.MarkExpired(later))
		assert.Equal(t, StatusExpired, v.Status())
	})

	t.Run("refuses record still inside its window", func(t *testing.T) {
		v := newInProgressVerification(t)
		require.True(t, v.ApplyResult(Result{Status: StatusApproved}, now))
		assert.Error(t, v.MarkExpired(now.Add(time.Hour)))
	})

	t.Run("refuses non-approved record", func(t *testing.T) {
		v := newInProgressVerification(t)
		assert.Error(t, v.MarkExpired(now))
	})
}
