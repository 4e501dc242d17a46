// Package subscriptiontest provides an in-memory subscription store for tests
// of packages built on top of subscription.
package subscriptiontest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription"
)

// Store implements subscription.Store and subscription.Writer in memory
type Store struct {
	mu      sync.Mutex
	subs    map[string]subscription.Subscription
	credits map[string]subscription.Credits
	plans   []plans.Plan
	grant   int
	err     error
}

// NewStore returns a store holding the default catalog and no users
func NewStore() *Store {
	return &Store{
		subs:    make(map[string]subscription.Subscription),
		credits: make(map[string]subscription.Credits),
		plans:   plans.DefaultCatalog().Plans,
		grant:   subscription.DefaultCreditGrant,
	}
}

// SetErr makes every call fail with err until cleared with nil
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetPlan assigns an active subscription to userID
func (s *Store) SetPlan(userID string, plan plans.PlanName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[userID] = subscription.Subscription{
		UserID:    userID,
		PlanName:  plan,
		Status:    subscription.StatusActive,
		StartedAt: time.Now(),
	}
}

// SetSubscription stores sub as is
func (s *Store) SetSubscription(sub subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = sub
}

// SetCredits stores the counters of userID
func (s *Store) SetCredits(userID string, ocr, eFatura int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[userID] = subscription.Credits{UserID: userID, OCR: ocr, EFatura: eFatura, UpdatedAt: time.Now()}
}

// Subscription returns the stored row of userID
func (s *Store) Subscription(userID string) (subscription.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	return sub, ok
}

// GetSubscription implements subscription.Store
func (s *Store) GetSubscription(_ context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// ListPlans implements subscription.Store
func (s *Store) ListPlans(context.Context) ([]plans.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]plans.Plan(nil), s.plans...), nil
}

// GetCredits implements subscription.Store
func (s *Store) GetCredits(_ context.Context, userID string) (*subscription.Credits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.credits[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// DeductCredit implements subscription.Store
func (s *Store) DeductCredit(_ context.Context, userID string, t subscription.CreditType) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	c, ok := s.credits[userID]
	if !ok {
		c = subscription.Credits{UserID: userID, OCR: s.grant, EFatura: s.grant}
	}
	n := c.Balance(t)
	if n <= 0 {
		s.credits[userID] = c
		return 0, false, nil
	}
	if t == subscription.CreditEFatura {
		c.EFatura = n - 1
	} else {
		c.OCR = n - 1
	}
	c.UpdatedAt = time.Now()
	s.credits[userID] = c
	return n - 1, true, nil
}

// ChangePlan implements subscription.Writer
func (s *Store) ChangePlan(_ context.Context, userID string, change subscription.PlanChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	name := plans.NormalizePlanName(string(change.Plan))
	if !name.Known() {
		return fmt.Errorf("unknown plan %q", change.Plan)
	}
	s.subs[userID] = subscription.Subscription{
		UserID:        userID,
		PlanName:      name,
		Status:        subscription.StatusActive,
		StartedAt:     time.Now(),
		ExpiresAt:     change.ExpiresAt,
		PaymentMethod: change.PaymentMethod,
		AutoRenew:     change.AutoRenew,
	}
	return nil
}

// Cancel implements subscription.Writer
func (s *Store) Cancel(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	sub, ok := s.subs[userID]
	if !ok || sub.Status != subscription.StatusActive {
		return false, nil
	}
	sub.Status = subscription.StatusCancelled
	sub.AutoRenew = false
	s.subs[userID] = sub
	return true, nil
}

// ExpireLapsed implements subscription.Writer
func (s *Store) ExpireLapsed(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var expired []string
	for id, sub := range s.subs {
		if sub.Status == subscription.StatusExpired || sub.ExpiresAt == nil || sub.ExpiresAt.After(now) {
			continue
		}
		sub.Status = subscription.StatusExpired
		s.subs[id] = sub
		expired = append(expired, id)
	}
	sort.Strings(expired)
	return expired, nil
}

// UpsertPlans implements subscription.Writer
func (s *Store) UpsertPlans(_ context.Context, planList []plans.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	byName := make(map[plans.PlanName]int, len(s.plans))
	for i, p := range s.plans {
		byName[p.Name] = i
	}
	for _, p := range planList {
		if i, ok := byName[p.Name]; ok {
			s.plans[i] = p
		} else {
			s.plans = append(s.plans, p)
		}
	}
	return nil
}

var (
	_ subscription.Store  = (*Store)(nil)
	_ subscription.Writer = (*Store)(nil)
)
