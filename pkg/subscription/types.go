package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/bizflow/bizgate/pkg/plans"
)

// ErrUnknownCreditType is returned for a credit type other than ocr or e_fatura
var ErrUnknownCreditType = errors.New("unknown credit type")

// Status is the lifecycle state of a subscription row
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Valid reports whether s is one of the stored states
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CreditType names a consumable counter
type CreditType string

const (
	CreditOCR     CreditType = "ocr"
	CreditEFatura CreditType = "e_fatura"
)

// ParseCreditType validates a credit type taken from user input
func ParseCreditType(s string) (CreditType, error) {
	t := CreditType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCreditType, s)
	}
	return t, nil
}

// Valid reports whether t is a known counter
func (t CreditType) Valid() bool {
	return t == CreditOCR || t == CreditEFatura
}

// Feature returns the feature a credit type is metered for
func (t CreditType) Feature() plans.FeatureCode {
	if t == CreditEFatura {
		return plans.FeatureEFatura
	}
	return plans.FeatureOCR
}

func (t CreditType) column() string {
	if t == CreditEFatura {
		return "e_fatura_credits"
	}
	return "ocr_credits"
}

// DefaultCreditGrant is given per counter to users without a credit row
const DefaultCreditGrant = 5

// Subscription is the authoritative plan assignment of one user
type Subscription struct {
	UserID        string         `json:"user_id"`
	PlanName      plans.PlanName `json:"plan_name"`
	Status        Status         `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	AutoRenew     bool           `json:"auto_renew"`
}

// Credits holds a user's consumable counters
type Credits struct {
	UserID    string    `json:"user_id"`
	OCR       int       `json:"ocr_credits"`
	EFatura   int       `json:"e_fatura_credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Balance returns the counter for t
func (c Credits) Balance(t CreditType) int {
	if t == CreditEFatura {
		return c.EFatura
	}
	return c.OCR
}

func (c Credits) with(t CreditType, n int) Credits {
	if t == CreditEFatura {
		c.EFatura = n
	} else {
		c.OCR = n
	}
	return c
}

// PlanChange describes a move to another tier
type PlanChange struct {
	Plan          plans.PlanName `json:"plan"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	AutoRenew     bool           `json:"auto_renew"`
}

// Snapshot is an immutable view of one user's subscription state. A new
// Snapshot replaces the old one as a whole.
type Snapshot struct {
	UserID       string       `json:"user_id"`
	Subscription Subscription `json:"subscription"`
	Plan         *plans.Plan  `json:"plan,omitempty"`
	Plans        []plans.Plan `json:"-"`
	Credits      Credits      `json:"credits"`

	SubscriptionDefaulted bool      `json:"subscription_defaulted"`
	CreditsDefaulted      bool      `json:"credits_defaulted"`
	LoadedAt              time.Time `json:"loaded_at"`
}

// EffectivePlan is the tier used for authorization at now. An expired
// subscription, or one whose expiry has passed, falls back to FREE.
func (s *Snapshot) EffectivePlan(now time.Time) plans.PlanName {
	sub := s.Subscription
	if sub.Status == StatusExpired {
		return plans.PlanFree
	}
	if sub.ExpiresAt != nil && !sub.ExpiresAt.After(now) {
		return plans.PlanFree
	}
	return plans.NormalizePlanName(string(sub.PlanName))
}

// withCredits returns a copy of s with counter t set to n
func (s *Snapshot) withCredits(t CreditType, n int) *Snapshot {
	next := *s
	next.Credits = s.Credits.with(t, n)
	return &next
}

func defaultSubscription(userID string, now time.Time) Subscription {
	return Subscription{
		UserID:    userID,
		PlanName:  plans.PlanFree,
		Status:    StatusActive,
		StartedAt: now,
	}
}

func defaultCredits(userID string, grant int, now time.Time) Credits {
	return Credits{UserID: userID, OCR: grant, EFatura: grant, UpdatedAt: now}
}

// buildSnapshot combines fetched rows, synthesising the missing ones
func buildSnapshot(userID string, sub *Subscription, planList []plans.Plan, credits *Credits, grant int, now time.Time) *Snapshot {
	snap := &Snapshot{UserID: userID, Plans: planList, LoadedAt: now}

	if sub != nil {
		snap.Subscription = *sub
	} else {
		snap.Subscription = defaultSubscription(userID, now)
		snap.SubscriptionDefaulted = true
	}
	if credits != nil {
		snap.Credits = *credits
	} else {
		snap.Credits = defaultCredits(userID, grant, now)
		snap.CreditsDefaulted = true
	}

	name := plans.NormalizePlanName(string(snap.Subscription.PlanName))
	for i := range planList {
		if plans.NormalizePlanName(string(planList[i].Name)) == name {
			p := planList[i]
			snap.Plan = &p
			break
		}
	}
	return snap
}
