package models

import "time"

// BillingHistoryModel represents the append-only invoice audit table.
// Rows are inserted once and never updated, so no soft delete or version.
type BillingHistoryModel struct {
	ID                    uint   `gorm:"primarykey"`
	SubscriptionID        uint   `gorm:"not null;index:idx_history_subscription"`
	StripeInvoiceID       string `gorm:"uniqueIndex;not null;size:64"`
	StripePaymentIntentID string `gorm:"size:64"`
	AmountCents           int64  `gorm:"not null"`
	Currency              string `gorm:"not null;size:3"`
	Status                string `gorm:"not null;size:20"`
	HostedURL             string `gorm:"size:512"`
	PDFURL                string `gorm:"size:512"`
	InvoiceDate           time.Time
	PaidAt                *time.Time
	CreatedAt             time.Time
}

// TableName specifies the table name for GORM
func (BillingHistoryModel) TableName() string {
	return "billing_history"
}
