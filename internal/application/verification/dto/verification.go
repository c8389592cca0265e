package dto

import (
	"time"

	"verity/internal/domain/verification"
)

// VerificationDTO is the external representation of a verification record
type VerificationDTO struct {
	SID               string     `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	WalletAddress     string     `json:"wallet_address"`
	Status            string     `json:"status"`
	VerificationLevel int        `json:"verification_level"`
	CountryCode       string     `json:"country_code,omitempty"`
	RejectionReasons  []string   `json:"rejection_reasons,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FromEntity maps a domain verification to its DTO
func FromEntity(v *verification.Verification) *VerificationDTO {
	if v == nil {
		return nil
	}

	return &VerificationDTO{
		SID:               v.SID(),
		FirstName:         v.FirstName(),
		LastName:          v.LastName(),
		Email:             v.Email(),
		WalletAddress:     v.WalletAddress(),
		Status:            v.Status().String(),
		VerificationLevel: v.VerificationLevel(),
		CountryCode:       v.CountryCode(),
		RejectionReasons:  v.RejectionReasons(),
		CompletedAt:       v.CompletedAt(),
		ExpiresAt:         v.ExpiresAt(),
		CreatedAt:         v.CreatedAt(),
	}
}

// FromEntities maps a slice of domain verifications
func FromEntities(items []*verification.Verification) []*VerificationDTO {
	dtos := make([]*VerificationDTO, 0, len(items))
	for _, v := range items {
		dtos = append(dtos, FromEntity(v))
	}
	return dtos
}
