package subscription

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"golang.org/x/sync/errgroup"
)

// Option configures a Manager
type Option func(*Manager)

// WithCreditGrant sets the balance synthesised for a user without a credit row
func WithCreditGrant(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.grant = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMetrics records loads and deductions
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// Manager is the source of truth for one user's subscription state. All
// methods are safe for concurrent use.
type Manager struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
	grant   int
	now     func() time.Time

	mu         sync.Mutex
	userID     string
	generation uint64

	snapshot atomic.Pointer[Snapshot]
	disposed atomic.Bool
	degraded atomic.Bool
}

// NewManager creates an unbound manager. Call Init before use.
func NewManager(store Store, logger *observability.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logger,
		grant:  DefaultCreditGrant,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init binds the manager to userID, clears any previous snapshot and loads
func (m *Manager) Init(ctx context.Context, userID string) *Snapshot {
	m.mu.Lock()
	m.userID = userID
	m.generation++
	m.snapshot.Store(nil)
	m.disposed.Store(false)
	m.degraded.Store(false)
	m.mu.Unlock()

	return m.Load(ctx, userID)
}

// Dispose unbinds the manager. Loads still in flight are discarded. A
// disposed manager reports FREE, so a gate still holding it restricts
// instead of treating it as loading.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.userID = ""
	m.generation++
	m.snapshot.Store(nil)
	m.disposed.Store(true)
	m.degraded.Store(false)
	m.mu.Unlock()
}

// Disposed reports whether Dispose was called since the last Init
func (m *Manager) Disposed() bool {
	return m.disposed.Load()
}

// Degraded reports whether the current snapshot is the synthesised default
// committed because the first load failed
func (m *Manager) Degraded() bool {
	return m.degraded.Load()
}

// UserID returns the bound user, or "" when disposed
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Snapshot returns the current snapshot, or nil while the first load is in
// flight
func (m *Manager) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// CurrentPlan returns the effective plan. ok is false while loading. A
// disposed manager returns FREE.
func (m *Manager) CurrentPlan() (plans.PlanName, bool) {
	snap := m.snapshot.Load()
	if snap == nil {
		if m.disposed.Load() {
			return plans.PlanFree, true
		}
		return "", false
	}
	return snap.EffectivePlan(m.now()), true
}

// Load fetches subscription, plans and credits for userID concurrently and
// combines them once all three have finished. The result is committed only
// when userID is still the bound user and no Init or Dispose happened
// meanwhile. Load never fails: on error it returns the last snapshot for
// userID, or the synthesised default.
func (m *Manager) Load(ctx context.Context, userID string) *Snapshot {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, "subscription.Load")
	start := time.Now()
	snap, err := m.fetch(ctx, userID)
	observability.EndSpan(span, err)

	logger := m.logger.WithField("user_id", userID)

	if err != nil {
		m.metrics.RecordSnapshotLoad("error", time.Since(start))
		logger.WithError(err).Warn("subscription load failed, keeping last known state")

		if prev := m.snapshot.Load(); prev != nil && prev.UserID == userID {
			return prev
		}
		now := m.now()
		snap = buildSnapshot(userID, nil, nil, nil, m.grant, now)
		m.commit(gen, userID, snap, true, true)
		return snap
	}

	m.metrics.RecordSnapshotLoad("ok", time.Since(start))

	if plan := plans.NormalizePlanName(string(snap.Subscription.PlanName)); !plan.Known() {
		logger.WithField("plan", string(plan)).Warn("subscription references a plan with no feature mapping, allowing all features")
	}

	if !m.commit(gen, userID, snap, false, false) {
		logger.Debug("discarding subscription load for a previous session")
	}
	return snap
}

// Refresh reloads the bound user. It returns nil when the manager is unbound.
func (m *Manager) Refresh(ctx context.Context) *Snapshot {
	userID := m.UserID()
	if userID == "" {
		return nil
	}
	return m.Load(ctx, userID)
}

// DeductCredit consumes one unit of t for the bound user. It returns false
// when the balance is zero, when the store fails, or when the manager is
// unbound. The snapshot changes only on success.
func (m *Manager) DeductCredit(ctx context.Context, t CreditType) bool {
	m.mu.Lock()
	userID, gen := m.userID, m.generation
	m.mu.Unlock()

	if userID == "" || !t.Valid() {
		return false
	}

	remaining, ok, err := m.store.DeductCredit(ctx, userID, t)
	if err != nil {
		m.metrics.RecordCreditDeduction(string(t), "error")
		m.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id":     userID,
			"credit_type": string(t),
		}).Error("credit deduction failed")
		return false
	}
	if !ok {
		// The conditional update only declines an exhausted balance.
		m.metrics.RecordCreditDeduction(string(t), "declined")
		m.storeCredits(gen, userID, t, 0)
		return false
	}
	m.metrics.RecordCreditDeduction(string(t), "deducted")
	m.storeCredits(gen, userID, t, remaining)
	return true
}

func (m *Manager) storeCredits(gen uint64, userID string, t CreditType, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation == gen && m.userID == userID {
		if cur := m.snapshot.Load(); cur != nil {
			m.snapshot.Store(cur.withCredits(t, balance))
		}
	}
}

// HandleChange refreshes when c concerns the bound user or every user
func (m *Manager) HandleChange(ctx context.Context, c Change) {
	userID := m.UserID()
	if userID == "" {
		return
	}
	if c.AllUsers() || c.UserID == userID {
		m.Refresh(ctx)
	}
}

// Watch applies changes until ctx is done or changes is closed
func (m *Manager) Watch(ctx context.Context, changes <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			m.HandleChange(ctx, c)
		}
	}
}

func (m *Manager) fetch(ctx context.Context, userID string) (*Snapshot, error) {
	var (
		sub      *Subscription
		planList []plans.Plan
		credits  *Credits
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sub, err = m.store.GetSubscription(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		planList, err = m.store.ListPlans(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		credits, err = m.store.GetCredits(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildSnapshot(userID, sub, planList, credits, m.grant, m.now()), nil
}

// commit stores snap if the session that started the load is still current.
// onlyIfEmpty keeps an existing snapshot in place. degraded marks snap as a
// default standing in for a failed load.
func (m *Manager) commit(gen uint64, userID string, snap *Snapshot, onlyIfEmpty, degraded bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen || m.userID != userID {
		return false
	}
	if onlyIfEmpty && m.snapshot.Load() != nil {
		return false
	}
	m.snapshot.Store(snap)
	m.degraded.Store(degraded)
	return true
}
