package model

import (
	"strings"
	"time"

	"karaoke-subscription/internal/domain"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusInactive AccountStatus = "inactive" // registered, awaiting payment confirmation
	AccountStatusActive   AccountStatus = "active"   // entitlement window open
)

// Account is a subscriber. Accounts are created inactive by the registration
// flow and transitioned to active only by a reconciled approved payment.
// This core never deletes accounts and never downgrades active -> inactive;
// expiry is a read-time check in the authentication path.
type Account struct {
	ID               string
	Email            string // unique, stored lowercase
	Name             string
	CredentialDigest string // bcrypt digest; empty until a credential is issued
	Plan             string
	Status           AccountStatus
	ExpiresAt        *time.Time // nil while inactive
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewAccount(email, name, credentialDigest, plan string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:               uuid.NewString(),
		Email:            email,
		Name:             name,
		CredentialDigest: credentialDigest,
		Plan:             plan,
		Status:           AccountStatusInactive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Entitled reports whether the account may log in at the given instant.
func (a *Account) Entitled(now time.Time) bool {
	if a.Status != AccountStatusActive || a.ExpiresAt == nil {
		return false
	}
	return now.Before(*a.ExpiresAt)
}

// NextExpiry computes the expiration a renewal of durationDays yields.
// Renewal extends from max(now, current expiry), never shortens.
func (a *Account) NextExpiry(now time.Time, durationDays int) time.Time {
	base := now
	if a.ExpiresAt != nil && a.ExpiresAt.After(now) {
		base = *a.ExpiresAt
	}
	return base.Add(time.Duration(durationDays) * 24 * time.Hour)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
