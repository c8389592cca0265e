package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionModel represents the database persistence model for billing
// subscriptions
type SubscriptionModel struct {
	ID                   uint   `gorm:"primarykey"`
	SID                  string `gorm:"column:sid;uniqueIndex;not null;size:50;comment:external ID: sub_xxx"`
	UserID               uint   `gorm:"not null;index:idx_user_subscription"`
	StripeCustomerID     string `gorm:"not null;size:64;index:idx_stripe_customer"`
	StripeSubscriptionID string `gorm:"size:64;uniqueIndex:idx_stripe_subscription"`
	Plan                 string `gorm:"size:20"`
	Status               string `gorm:"not null;size:20;index:idx_subscription_status"`
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"default:false"`
	CanceledAt           *time.Time
	TokensLimit          int `gorm:"not null;default:0"`
	TokensUsed           int `gorm:"not null;default:0"`
	LastEventAt          *time.Time
	Version              int `gorm:"not null;default:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// BeforeCreate hook for GORM
func (m *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
