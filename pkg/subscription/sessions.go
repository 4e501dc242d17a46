package subscription

import (
	"context"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds the first load of a session
const DefaultLoadTimeout = 10 * time.Second

// SessionsConfig sizes the per-user manager cache
type SessionsConfig struct {
	Size               int
	TTL                time.Duration
	RefreshConcurrency int
	LoadTimeout        time.Duration
}

// Sessions keeps one Manager per user. Evicted managers are forgotten, not
// disposed: a request still holding one keeps gating on its last snapshot.
type Sessions struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
	opts    []Option

	cache       *lru.LRU[string, *Manager]
	group       singleflight.Group
	concurrency int
	loadTimeout time.Duration
}

// NewSessions creates a session cache. opts are applied to every manager.
func NewSessions(store Store, logger *observability.Logger, metrics *observability.Metrics, cfg SessionsConfig, opts ...Option) *Sessions {
	if cfg.Size <= 0 {
		cfg.Size = 10000
	}
	if cfg.RefreshConcurrency <= 0 {
		cfg.RefreshConcurrency = 8
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}

	s := &Sessions{
		store:       store,
		logger:      logger,
		metrics:     metrics,
		opts:        append([]Option{WithMetrics(metrics)}, opts...),
		concurrency: cfg.RefreshConcurrency,
		loadTimeout: cfg.LoadTimeout,
	}
	s.cache = lru.NewLRU[string, *Manager](cfg.Size, nil, cfg.TTL)
	return s
}

// Get returns the user's manager, creating and loading it on first use.
// Concurrent first requests for one user share a single load. The load is
// detached from the caller's cancellation because its result is shared. A
// manager whose first load failed is returned but not cached, so the next
// request loads again instead of keeping the FREE default for the TTL.
func (s *Sessions) Get(ctx context.Context, userID string) *Manager {
	if m, ok := s.cache.Get(userID); ok {
		return m
	}

	v, _, _ := s.group.Do(userID, func() (interface{}, error) {
		if m, ok := s.cache.Get(userID); ok {
			return m, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		m := NewManager(s.store, s.logger, s.opts...)
		m.Init(loadCtx, userID)
		if m.Degraded() {
			s.logger.WithField("user_id", userID).Warn("first subscription load failed, session not cached")
			return m, nil
		}
		s.cache.Add(userID, m)
		s.reportSize()
		return m, nil
	})
	return v.(*Manager)
}

// Peek returns a cached manager without loading or touching recency
func (s *Sessions) Peek(userID string) (*Manager, bool) {
	return s.cache.Peek(userID)
}

// Remove forgets the user's manager. The next Get loads a fresh one.
func (s *Sessions) Remove(userID string) {
	s.cache.Remove(userID)
	s.reportSize()
}

// Len returns the number of cached managers
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// HandleChange refreshes the affected managers. A catalog change refreshes
// all of them with bounded concurrency.
func (s *Sessions) HandleChange(ctx context.Context, c Change) {
	if s.metrics != nil {
		s.metrics.ChangeNotificationsTotal.WithLabelValues(string(c.Kind)).Inc()
	}

	if !c.AllUsers() {
		if m, ok := s.cache.Peek(c.UserID); ok {
			m.Refresh(ctx)
		}
		return
	}

	managers := s.cache.Values()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, m := range managers {
		m := m
		g.Go(func() error {
			m.Refresh(gctx)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithField("sessions", len(managers)).Debug("refreshed sessions after catalog change")
}

// Run applies changes until ctx is done or changes is closed
func (s *Sessions) Run(ctx context.Context, changes <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			s.HandleChange(ctx, c)
		}
	}
}

// Close forgets every manager
func (s *Sessions) Close() {
	s.cache.Purge()
	s.reportSize()
}

func (s *Sessions) reportSize() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(s.cache.Len()))
	}
}
