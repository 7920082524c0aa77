package model

import (
	"errors"
	"testing"
	"time"

	"karaoke-subscription/internal/domain"
)

func TestNewAccount(t *testing.T) {
	acct, err := NewAccount("  User@Example.COM ", "User", "digest", PlanMonthly)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if acct.Email != "user@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", acct.Email)
	}
	if acct.Status != AccountStatusInactive {
		t.Fatalf("status = %s, want inactive", acct.Status)
	}
	if acct.ExpiresAt != nil {
		t.Fatal("new account must not have an entitlement window")
	}
	if acct.ID == "" {
		t.Fatal("id not assigned")
	}

	if _, err := NewAccount("", "User", "d", PlanMonthly); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty email: err = %v", err)
	}
	if _, err := NewAccount("u@example.com", "", "d", PlanMonthly); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty name: err = %v", err)
	}
}

func TestAccountEntitled(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		acct Account
		want bool
	}{
		{"active within window", Account{Status: AccountStatusActive, ExpiresAt: &future}, true},
		{"active past expiry", Account{Status: AccountStatusActive, ExpiresAt: &past}, false},
		{"active without window", Account{Status: AccountStatusActive}, false},
		{"inactive with window", Account{Status: AccountStatusInactive, ExpiresAt: &future}, false},
	}
	for _, tc := range cases {
		if got := tc.acct.Entitled(now); got != tc.want {
			t.Fatalf("%s: Entitled = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAccountNextExpiry(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	// No current window: the new window starts now.
	fresh := Account{}
	if got := fresh.NextExpiry(now, 30); !got.Equal(now.Add(30 * day)) {
		t.Fatalf("fresh: got %v, want now+30d", got)
	}

	// Remaining time is preserved: 10 days left + 30 purchased = 40.
	remaining := now.Add(10 * day)
	active := Account{ExpiresAt: &remaining}
	if got := active.NextExpiry(now, 30); !got.Equal(now.Add(40 * day)) {
		t.Fatalf("active: got %v, want now+40d", got)
	}

	// A lapsed window never subtracts from the purchase.
	lapsed := now.Add(-90 * day)
	expired := Account{ExpiresAt: &lapsed}
	if got := expired.NextExpiry(now, 30); !got.Equal(now.Add(30 * day)) {
		t.Fatalf("expired: got %v, want now+30d", got)
	}
}
