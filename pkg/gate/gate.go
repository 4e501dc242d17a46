package gate

import (
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
)

// PlanSource supplies the principal's effective plan. ok is false while the
// plan is still loading.
type PlanSource interface {
	CurrentPlan() (name plans.PlanName, ok bool)
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics counts every decision
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gate) { g.metrics = metrics }
}

// Gate answers feature and route questions for one principal
type Gate struct {
	source     PlanSource
	superAdmin bool
	metrics    *observability.Metrics
}

// New creates a gate. A nil source behaves as a plan that is still loading.
func New(source PlanSource, superAdmin bool, opts ...Option) *Gate {
	g := &Gate{source: source, superAdmin: superAdmin}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SuperAdmin reports whether the principal bypasses all checks
func (g *Gate) SuperAdmin() bool {
	return g.superAdmin
}

// CurrentPlan returns the principal's effective plan
func (g *Gate) CurrentPlan() (plans.PlanName, bool) {
	if g.source == nil {
		return "", false
	}
	return g.source.CurrentPlan()
}

// Granted returns the features the principal holds right now
func (g *Gate) Granted() plans.FeatureSet {
	if g.superAdmin {
		return plans.AllFeatures()
	}
	plan, ok := g.CurrentPlan()
	if !ok {
		return plans.AllFeatures()
	}
	set, _ := plans.FeaturesForPlan(plan)
	return set
}

// HasFeature reports whether the principal may use code
func (g *Gate) HasFeature(code plans.FeatureCode) bool {
	allowed := g.superAdmin || g.Granted().Has(code)
	g.metrics.RecordGateDecision("feature", code.String(), allowed)
	return allowed
}

// CanAccessRoute reports whether the principal may reach route. Unguarded
// routes are always reachable.
func (g *Gate) CanAccessRoute(route string) bool {
	if g.superAdmin {
		return true
	}
	required, guarded := plans.RouteRequiresAnyOf(route)
	if !guarded {
		return true
	}
	allowed := g.Granted().Intersects(required)
	g.metrics.RecordGateDecision("route", required.String(), allowed)
	return allowed
}

// RequiredPlan returns the cheapest plan that grants code
func (g *Gate) RequiredPlan(code plans.FeatureCode) (plans.PlanName, bool) {
	return plans.MinimumPlanFor(code)
}

// RequiredPlanForRoute returns the features guarding route and the cheapest
// plan granting one of them. guarded is false for unguarded routes.
func (g *Gate) RequiredPlanForRoute(route string) (plan plans.PlanName, required plans.FeatureSet, guarded bool) {
	required, guarded = plans.RouteRequiresAnyOf(route)
	if !guarded {
		return "", 0, false
	}
	plan, _ = plans.MinimumPlanForAny(required)
	return plan, required, true
}
