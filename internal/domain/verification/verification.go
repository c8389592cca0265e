package verification

import (
	"fmt"
	"strings"
	"time"
)

// ExpiryPeriod is how long an approved verification remains valid.
const ExpiryPeriod = 365 * 24 * time.Hour

// Verification represents the KYC verification aggregate root
type Verification struct {
	id                uint
	sid               string
	firstName         string
	lastName          string
	email             string
	walletAddress     string
	applicantID       string
	checkID           string
	status            Status
	verificationLevel int
	countryCode       string
	rejectionReasons  []string
	resultData        map[string]interface{}
	completedAt       *time.Time
	expiresAt         *time.Time
	version           int
	createdAt         time.Time
	updatedAt         time.Time
}

// NewVerification creates a new pending verification
func NewVerification(sid, firstName, lastName, email, walletAddress string) (*Verification, error) {
	if sid == "" {
		return nil, fmt.Errorf("sid is required")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}

	now := time.Now()
	return &Verification{
		sid:           sid,
		firstName:     firstName,
		lastName:      lastName,
		email:         email,
		walletAddress: strings.ToLower(walletAddress),
		status:        StatusPending,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructVerification reconstructs a verification from persistence
func ReconstructVerification(
	id uint,
	sid string,
	firstName, lastName, email, walletAddress string,
	applicantID, checkID string,
	status Status,
	verificationLevel int,
	countryCode string,
	rejectionReasons []string,
	resultData map[string]interface{},
	completedAt, expiresAt *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) (*Verification, error) {
	if id == 0 {
		return nil, fmt.Errorf("verification ID cannot be zero")
	}
	if !ValidStatuses[status] {
		return nil, fmt.Errorf("invalid verification status: %s", status)
	}

	return &Verification{
		id:                id,
		sid:               sid,
		firstName:         firstName,
		lastName:          lastName,
		email:             email,
		walletAddress:     strings.ToLower(walletAddress),
		applicantID:       applicantID,
		checkID:           checkID,
		status:            status,
		verificationLevel: verificationLevel,
		countryCode:       countryCode,
		rejectionReasons:  rejectionReasons,
		resultData:        resultData,
		completedAt:       completedAt,
		expiresAt:         expiresAt,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

func (v *Verification) ID() uint                           { return v.id }
func (v *Verification) SID() string                        { return v.sid }
func (v *Verification) FirstName() string                  { return v.firstName }
func (v *Verification) LastName() string                   { return v.lastName }
func (v *Verification) Email() string                      { return v.email }
func (v *Verification) WalletAddress() string              { return v.walletAddress }
func (v *Verification) ApplicantID() string                { return v.applicantID }
func (v *Verification) CheckID() string                    { return v.checkID }
func (v *Verification) Status() Status                     { return v.status }
func (v *Verification) VerificationLevel() int             { return v.verificationLevel }
func (v *Verification) CountryCode() string                { return v.countryCode }
func (v *Verification) RejectionReasons() []string         { return v.rejectionReasons }
func (v *Verification) ResultData() map[string]interface{} { return v.resultData }
func (v *Verification) CompletedAt() *time.Time            { return v.completedAt }
func (v *Verification) ExpiresAt() *time.Time              { return v.expiresAt }
func (v *Verification) Version() int                       { return v.version }
func (v *Verification) CreatedAt() time.Time               { return v.createdAt }
func (v *Verification) UpdatedAt() time.Time               { return v.updatedAt }

// FullName returns the applicant display name
func (v *Verification) FullName() string {
	return strings.TrimSpace(v.firstName + " " + v.lastName)
}

// IsActive reports whether the verification is still being processed
func (v *Verification) IsActive() bool {
	return v.status == StatusPending || v.status == StatusInProgress
}

// SetID sets the verification ID (only for persistence layer use)
func (v *Verification) SetID(id uint) error {
	if v.id != 0 {
		return fmt.Errorf("verification ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("verification ID cannot be zero")
	}
	v.id = id
	return nil
}

// AttachApplicant records the provider applicant created for this record
func (v *Verification) AttachApplicant(applicantID string) error {
	if applicantID == "" {
		return fmt.Errorf("applicant ID is required")
	}
	if v.applicantID != "" && v.applicantID != applicantID {
		return fmt.Errorf("applicant is already attached")
	}

	v.applicantID = applicantID
	v.updatedAt = time.Now()
	v.version++
	return nil
}

// AttachCheck records the provider check and moves the record to in_progress
func (v *Verification) AttachCheck(checkID string) error {
	if checkID == "" {
		return fmt.Errorf("check ID is required")
	}
	if v.status != StatusPending {
		return fmt.Errorf("cannot attach check to %s verification", v.status)
	}

	v.checkID = checkID
	v.status = StatusInProgress
	v.updatedAt = time.Now()
	v.version++
	return nil
}

// ApplyResult reconciles a provider result into the record. It returns true
// when a transition edge was taken and false when the result is a replay or
// arrived out of order. Side effects must fire only on a taken edge.
func (v *Verification) ApplyResult(res Result, now time.Time) bool {
	if !ValidStatuses[res.Status] {
		return false
	}
	if !v.status.CanAdvanceTo(res.Status) {
		return false
	}

	v.status = res.Status
	if res.VerificationLevel > 0 {
		v.verificationLevel = res.VerificationLevel
	}
	if res.CountryCode != "" {
		v.countryCode = res.CountryCode
	}
	if len(res.RejectionReasons) > 0 {
		v.rejectionReasons = res.RejectionReasons
	}
	if res.Raw != nil {
		v.resultData = res.Raw
	}

	// completed_at is write-once
	if res.Status.IsOutcome() && v.completedAt == nil {
		completedAt := res.CompletedAt
		if completedAt.IsZero() {
			completedAt = now
		}
		v.completedAt = &completedAt
	}

	if res.Status == StatusApproved {
		expiresAt := now.Add(ExpiryPeriod)
		v.expiresAt = &expiresAt
	}

	v.updatedAt = now
	v.version++
	return true
}

// MarkExpired transitions an approved verification past its validity window
func (v *Verification) MarkExpired(now time.Time) error {
	if v.status != StatusApproved {
		return fmt.Errorf("cannot expire %s verification", v.status)
	}
	if v.expiresAt == nil || v.expiresAt.After(now) {
		return fmt.Errorf("verification has not reached its expiry date")
	}

	v.status = StatusExpired
	v.updatedAt = now
	v.version++
	return nil
}
