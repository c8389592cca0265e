package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationModel represents the database persistence model for KYC
// verifications. This is the anti-corruption layer between domain and database.
type VerificationModel struct {
	ID                uint   `gorm:"primarykey"`
	SID               string `gorm:"column:sid;uniqueIndex;not null;size:50;comment:external ID: vrf_xxx"`
	FirstName         string `gorm:"size:100"`
	LastName          string `gorm:"size:100"`
	Email             string `gorm:"not null;size:255;index:idx_verification_email"`
	WalletAddress     string `gorm:"not null;size:64;index:idx_wallet_address"`
	ApplicantID       string `gorm:"size:64;index:idx_applicant_id"`
	CheckID           string `gorm:"size:64;index:idx_check_id"`
	Status            string `gorm:"not null;size:20;index:idx_verification_status"`
	VerificationLevel int    `gorm:"not null;default:0"`
	CountryCode       string `gorm:"size:3"`
	RejectionReasons  datatypes.JSON
	ResultData        datatypes.JSON
	CompletedAt       *time.Time
	ExpiresAt         *time.Time `gorm:"index:idx_expires_at"`
	Version           int        `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (VerificationModel) TableName() string {
	return "kyc_verifications"
}

// BeforeCreate hook for GORM
func (m *VerificationModel) BeforeCreate(tx *gorm.DB) error {
	if m.Version == 0 {
		m.Version = 1
	}
	return nil
}
