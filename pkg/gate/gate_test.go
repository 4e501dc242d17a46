package gate

import (
	"testing"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fixedPlan struct {
	name   plans.PlanName
	loaded bool
}

func (f fixedPlan) CurrentPlan() (plans.PlanName, bool) { return f.name, f.loaded }

func onPlan(name plans.PlanName) *Gate {
	return New(fixedPlan{name: name, loaded: true}, false)
}

func TestScenario_FreeCannotReachMarketplace(t *testing.T) {
	g := onPlan(plans.PlanFree)
	assert.False(t, g.CanAccessRoute("/marketplace"))
	assert.False(t, g.HasFeature(plans.FeatureMarketplace))
}

func TestNonCanonicalRoutesAreStillGuarded(t *testing.T) {
	free := onPlan(plans.PlanFree)
	for _, route := range []string{"//marketplace", "/./marketplace", "/customers/../marketplace"} {
		assert.False(t, free.CanAccessRoute(route), route)
	}

	kucuk := onPlan(plans.PlanKucuk)
	assert.True(t, kucuk.CanAccessRoute("/projects"))
	assert.False(t, kucuk.CanAccessRoute("/projects/../marketplace"))
}

func TestScenario_OrtaReachesProjects(t *testing.T) {
	g := onPlan(plans.PlanOrta)
	assert.True(t, g.CanAccessRoute("/projects"))
	assert.True(t, g.CanAccessRoute("/projects/42/tasks"))
}

func TestScenario_UnknownPlanFailsOpen(t *testing.T) {
	g := onPlan("LEGACY_PRO")
	for _, code := range plans.AllFeatureCodes() {
		assert.True(t, g.HasFeature(code), code.String())
	}
	assert.True(t, g.CanAccessRoute("/settings/api"))
}

func TestSuperAdminBypassesEverything(t *testing.T) {
	for _, plan := range append(plans.KnownPlans(), "LEGACY_PRO") {
		g := New(fixedPlan{name: plan, loaded: true}, true)
		for _, code := range plans.AllFeatureCodes() {
			assert.True(t, g.HasFeature(code), "%s/%s", plan, code)
		}
		for route := range plans.GuardedRoutes() {
			assert.True(t, g.CanAccessRoute(route), "%s%s", plan, route)
		}
	}
}

func TestLoadingFailsOpen(t *testing.T) {
	for _, g := range []*Gate{New(fixedPlan{}, false), New(nil, false)} {
		assert.True(t, g.HasFeature(plans.FeatureAPIAccess))
		assert.True(t, g.CanAccessRoute("/marketplace"))
		_, ok := g.CurrentPlan()
		assert.False(t, ok)
	}
}

func TestUnguardedRouteAlwaysAllowed(t *testing.T) {
	for _, plan := range plans.KnownPlans() {
		g := onPlan(plan)
		assert.True(t, g.CanAccessRoute("/dashboard"))
		assert.True(t, g.CanAccessRoute("/"))
		assert.True(t, g.CanAccessRoute("/settings/profile"))
	}
}

func TestRouteRequirementIsOr(t *testing.T) {
	// /reports needs reports OR advanced_reports; /assistant needs
	// executive_assistant OR ai_chat.
	assert.False(t, onPlan(plans.PlanFree).CanAccessRoute("/reports"))
	assert.True(t, onPlan(plans.PlanKucuk).CanAccessRoute("/reports"))

	orta := onPlan(plans.PlanOrta)
	assert.False(t, orta.HasFeature(plans.FeatureExecutiveAssistant))
	assert.True(t, orta.HasFeature(plans.FeatureAIChat))
	assert.True(t, orta.CanAccessRoute("/assistant"))
	assert.False(t, onPlan(plans.PlanKucuk).CanAccessRoute("/assistant"))
}

func TestRouteAgreesWithFeatures(t *testing.T) {
	for _, plan := range plans.KnownPlans() {
		g := onPlan(plan)
		for route, required := range plans.GuardedRoutes() {
			want := false
			for _, code := range required.Codes() {
				if g.HasFeature(code) {
					want = true
				}
			}
			assert.Equal(t, want, g.CanAccessRoute(route), "%s %s", plan, route)
		}
	}
}

func TestExpiredPlanFallsBackThroughSource(t *testing.T) {
	// The source reports the effective plan, which is FREE after expiry.
	g := onPlan(plans.PlanFree)
	assert.False(t, g.HasFeature(plans.FeatureInventory))
}

func TestRequiredPlan(t *testing.T) {
	g := onPlan(plans.PlanFree)

	plan, ok := g.RequiredPlan(plans.FeatureMarketplace)
	assert.True(t, ok)
	assert.Equal(t, plans.PlanBuyuk, plan)

	plan, required, guarded := g.RequiredPlanForRoute("/assistant/chat")
	assert.True(t, guarded)
	assert.Equal(t, plans.PlanOrta, plan)
	assert.True(t, required.Has(plans.FeatureAIChat))

	_, _, guarded = g.RequiredPlanForRoute("/dashboard")
	assert.False(t, guarded)
}

func TestGranted(t *testing.T) {
	set, _ := plans.FeaturesForPlan(plans.PlanKucuk)
	assert.Equal(t, set, onPlan(plans.PlanKucuk).Granted())
	assert.Equal(t, plans.AllFeatures(), New(fixedPlan{name: plans.PlanFree, loaded: true}, true).Granted())
}

func TestMetricsRecorded(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	g := New(fixedPlan{name: plans.PlanFree, loaded: true}, false, WithMetrics(metrics))

	g.HasFeature(plans.FeatureCustomers)
	g.HasFeature(plans.FeatureOCR)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("feature", "customers", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("feature", "ocr", "denied")))
}
