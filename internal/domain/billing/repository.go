package billing

import "context"

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, sid string) (*Subscription, error)
	GetByUserID(ctx context.Context, userID uint) (*Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error)
	Update(ctx context.Context, subscription *Subscription) error
}

type BillingHistoryRepository interface {
	Create(ctx context.Context, history *BillingHistory) error
	GetByStripeInvoiceID(ctx context.Context, invoiceID string) (*BillingHistory, error)
	ListBySubscriptionID(ctx context.Context, subscriptionID uint, page, pageSize int) ([]*BillingHistory, int64, error)
}
