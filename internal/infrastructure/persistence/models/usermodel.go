package models

import (
	"time"

	"gorm.io/gorm"
)

// UserModel represents the database persistence model for users
type UserModel struct {
	ID            uint   `gorm:"primarykey"`
	Email         string `gorm:"uniqueIndex;not null;size:255"`
	Name          string `gorm:"size:100"`
	WalletAddress string `gorm:"size:64;index:idx_user_wallet"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return "users"
}
