package verification

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, verification *Verification) error
	GetByID(ctx context.Context, id uint) (*Verification, error)
	GetBySID(ctx context.Context, sid string) (*Verification, error)
	GetByCheckID(ctx context.Context, checkID string) (*Verification, error)
	GetByWalletAddress(ctx context.Context, walletAddress string) (*Verification, error)
	GetActiveByWalletAddress(ctx context.Context, walletAddress string) (*Verification, error)
	Update(ctx context.Context, verification *Verification) error

	FindExpiredApproved(ctx context.Context, now time.Time) ([]*Verification, error)
	FindStaleInProgress(ctx context.Context, olderThan time.Time) ([]*Verification, error)
	List(ctx context.Context, filter Filter) ([]*Verification, int64, error)
}

type Filter struct {
	Status   *Status
	Page     int
	PageSize int
	SortDesc bool
}
