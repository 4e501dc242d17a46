package subscription

import (
	"context"
	"sync"

	"github.com/bizflow/bizgate/pkg/plans"
)

// memStore is an in-memory Store. Its deduction mirrors the conditional
// UPDATE of PostgresStore.
type memStore struct {
	mu      sync.Mutex
	subs    map[string]*Subscription
	credits map[string]*Credits
	plans   []plans.Plan
	grant   int

	err      error
	loads    int
	blockSub chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		subs:    make(map[string]*Subscription),
		credits: make(map[string]*Credits),
		plans:   plans.DefaultCatalog().Plans,
		grant:   DefaultCreditGrant,
	}
}

func (s *memStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *memStore) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	s.mu.Lock()
	block := s.blockSub
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	if sub, ok := s.subs[userID]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) ListPlans(ctx context.Context) ([]plans.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]plans.Plan(nil), s.plans...), nil
}

func (s *memStore) GetCredits(ctx context.Context, userID string) (*Credits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if c, ok := s.credits[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) DeductCredit(ctx context.Context, userID string, t CreditType) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, false, s.err
	}
	c, ok := s.credits[userID]
	if !ok {
		c = &Credits{UserID: userID, OCR: s.grant, EFatura: s.grant}
		s.credits[userID] = c
	}
	n := c.Balance(t)
	if n <= 0 {
		return 0, false, nil
	}
	*c = c.with(t, n-1)
	return n - 1, true, nil
}

func (s *memStore) balance(userID string, t CreditType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.credits[userID]; ok {
		return c.Balance(t)
	}
	return -1
}
