package user

import (
	"fmt"
	"strings"
	"time"
)

// User is the minimal account owning subscriptions and receiving notifications
type User struct {
	id            uint
	email         string
	name          string
	walletAddress string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewUser creates a new user
func NewUser(email, name string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	now := time.Now()
	return &User{
		email:     strings.ToLower(email),
		name:      name,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructUser reconstructs a user from persistence
func ReconstructUser(id uint, email, name, walletAddress string, createdAt, updatedAt time.Time) (*User, error) {
	if id == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}

	return &User{
		id:            id,
		email:         email,
		name:          name,
		walletAddress: walletAddress,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}, nil
}

func (u *User) ID() uint              { return u.id }
func (u *User) Email() string         { return u.email }
func (u *User) Name() string          { return u.name }
func (u *User) WalletAddress() string { return u.walletAddress }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }

// SetID sets the user ID (only for persistence layer use)
func (u *User) SetID(id uint) error {
	if u.id != 0 {
		return fmt.Errorf("user ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("user ID cannot be zero")
	}
	u.id = id
	return nil
}

// SetWalletAddress links a wallet to the user
func (u *User) SetWalletAddress(addr string) {
	u.walletAddress = strings.ToLower(addr)
	u.updatedAt = time.Now()
}
