package middleware

import (
	"context"
	"net/http"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/gate"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription"
	"github.com/bizflow/bizgate/pkg/upsell"
)

// Gating attaches subscription managers and enforces plan features
type Gating struct {
	sessions *subscription.Sessions
	flow     *upsell.Flow
	metrics  *observability.Metrics
}

// NewGating creates the gating middleware. metrics may be nil.
func NewGating(sessions *subscription.Sessions, flow *upsell.Flow, metrics *observability.Metrics) *Gating {
	if flow == nil {
		flow = upsell.New(nil)
	}
	return &Gating{sessions: sessions, flow: flow, metrics: metrics}
}

// Flow returns the upsell flow used for denied requests
func (g *Gating) Flow() *upsell.Flow {
	return g.flow
}

// Subscription attaches the principal's manager to the request
func (g *Gating) Subscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		m := g.sessions.Get(r.Context(), principal.UserID)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithSubscription(r.Context(), m)))
	})
}

// Gate builds the request principal's gate. Without a manager the plan is
// treated as still loading.
func (g *Gating) Gate(ctx context.Context) *gate.Gate {
	principal, _ := auth.PrincipalFrom(ctx)
	superAdmin := principal != nil && principal.SuperAdmin

	if m, ok := ManagerFrom(ctx); ok {
		return gate.New(m, superAdmin, gate.WithMetrics(g.metrics))
	}
	return gate.New(nil, superAdmin, gate.WithMetrics(g.metrics))
}

// RequireFeature answers 402 with an upsell prompt unless the principal holds
// code
func (g *Gating) RequireFeature(code plans.FeatureCode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt := g.Gate(r.Context())
			if !gt.HasFeature(code) {
				WritePrompt(w, g.flow.FeaturePrompt(gt, code))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoute answers 402 unless the principal may open route
func (g *Gating) RequireRoute(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt := g.Gate(r.Context())
			if !gt.CanAccessRoute(route) {
				WritePrompt(w, g.flow.RoutePrompt(gt, route))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WritePrompt writes a 402 carrying p
func WritePrompt(w http.ResponseWriter, p upsell.Prompt) {
	httputil.WriteJSON(w, http.StatusPaymentRequired, p)
}

// ManagerFrom returns the manager attached by Gating.Subscription
func ManagerFrom(ctx context.Context) (*subscription.Manager, bool) {
	m, ok := ctx.Value(contextkeys.SubscriptionKey).(*subscription.Manager)
	return m, ok && m != nil
}
