package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription/subscriptiontest"
	"github.com/bizflow/bizgate/pkg/upsell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatedRequest(g *Gating, h http.Handler, p *auth.Principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	w := httptest.NewRecorder()
	g.Subscription(h).ServeHTTP(w, req)
	return w
}

func TestGating_SubscriptionAttachesManager(t *testing.T) {
	store := subscriptiontest.NewStore()
	store.SetPlan(alice, plans.PlanOrta)
	g := NewGating(newSessions(store), nil, nil)

	var plan plans.PlanName
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, ok := ManagerFrom(r.Context())
		require.True(t, ok)
		plan, _ = m.CurrentPlan()
	})
	gatedRequest(g, h, &auth.Principal{UserID: alice}, "/")
	assert.Equal(t, plans.PlanOrta, plan)

	w := httptest.NewRecorder()
	g.Subscription(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGating_RequireFeature(t *testing.T) {
	store := subscriptiontest.NewStore()
	store.SetPlan(alice, plans.PlanFree)
	store.SetPlan(bob, plans.PlanBuyuk)
	g := NewGating(newSessions(store), upsell.New(nil), nil)

	var called bool
	h := g.RequireFeature(plans.FeatureMarketplace)(ok(&called))

	w := gatedRequest(g, h, &auth.Principal{UserID: alice}, "/v1/marketplace")
	assert.False(t, called)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var prompt upsell.Prompt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prompt))
	assert.Equal(t, plans.PlanBuyuk, prompt.RequiredPlan)
	assert.Equal(t, plans.PlanFree, prompt.CurrentPlan)
	require.NotNil(t, prompt.Feature)
	assert.Equal(t, plans.FeatureMarketplace, *prompt.Feature)

	w = gatedRequest(g, h, &auth.Principal{UserID: bob}, "/v1/marketplace")
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGating_SuperAdminBypasses(t *testing.T) {
	store := subscriptiontest.NewStore()
	g := NewGating(newSessions(store), nil, nil)

	var called bool
	h := g.RequireFeature(plans.FeatureCustomIntegrations)(ok(&called))
	w := gatedRequest(g, h, &auth.Principal{UserID: alice, SuperAdmin: true}, "/")
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGating_RequireRoute(t *testing.T) {
	store := subscriptiontest.NewStore()
	store.SetPlan(alice, plans.PlanKucuk)
	g := NewGating(newSessions(store), nil, nil)

	var called bool
	w := gatedRequest(g, g.RequireRoute("/production/suggestions")(ok(&called)), &auth.Principal{UserID: alice}, "/")
	assert.False(t, called)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = gatedRequest(g, g.RequireRoute("/projects/42")(ok(&called)), &auth.Principal{UserID: alice}, "/")
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGating_GateWithoutManagerFailsOpen(t *testing.T) {
	g := NewGating(nil, nil, nil)
	ctx := contextkeys.WithSubscription(auth.WithPrincipal(httptest.NewRequest(http.MethodGet, "/", nil).Context(), &auth.Principal{UserID: alice}), nil)

	gt := g.Gate(ctx)
	_, loaded := gt.CurrentPlan()
	assert.False(t, loaded)
	assert.True(t, gt.HasFeature(plans.FeatureDedicatedManager))
}
