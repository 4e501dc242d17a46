package api

import (
	"errors"
	"net/http"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/middleware"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/bizflow/bizgate/pkg/subscription"
)

var errNoManager = errors.New("subscription state not attached")

func (s *Server) getTenant(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httputil.WriteNotFound(w, "no tenant")
		return
	}
	httputil.WriteSuccess(w, tenant)
}

func (s *Server) manager(w http.ResponseWriter, r *http.Request) (*subscription.Manager, bool) {
	m, ok := middleware.ManagerFrom(r.Context())
	if !ok {
		observability.FromContext(r.Context()).WithError(errNoManager).Error("handler misconfigured")
		httputil.WriteInternalError(w)
	}
	return m, ok
}

func (s *Server) writeSnapshot(w http.ResponseWriter, m *subscription.Manager) {
	snap := m.Snapshot()
	plan, ok := m.CurrentPlan()
	if snap == nil || !ok {
		httputil.WriteServiceUnavailable(w, "subscription is loading")
		return
	}
	httputil.WriteSuccess(w, SubscriptionResponse{Snapshot: snap, EffectivePlan: plan})
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	m, ok := s.manager(w, r)
	if !ok {
		return
	}
	s.writeSnapshot(w, m)
}

func (s *Server) refreshSubscription(w http.ResponseWriter, r *http.Request) {
	m, ok := s.manager(w, r)
	if !ok {
		return
	}
	m.Refresh(r.Context())
	s.writeSnapshot(w, m)
}

// changePlan moves the principal to another tier. The change is written,
// announced to other instances and reflected in this instance's snapshot
// before the response is sent.
func (s *Server) changePlan(w http.ResponseWriter, r *http.Request) {
	m, ok := s.manager(w, r)
	if !ok {
		return
	}
	if s.deps.Writer == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "plan changes are not enabled")
		return
	}

	var req ChangePlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	name := plans.NormalizePlanName(req.Plan)
	if !name.Known() {
		httputil.WriteDetailedError(w, http.StatusBadRequest, "unknown plan", map[string]string{"plan": req.Plan})
		return
	}

	var previous plans.PlanName
	if current, ok := m.CurrentPlan(); ok {
		previous = current
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	err := s.deps.Writer.ChangePlan(r.Context(), principal.UserID, subscription.PlanChange{
		Plan:          name,
		ExpiresAt:     req.ExpiresAt,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
	})
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("plan change failed")
		s.record(r.Context(), audit.EventTypePlanChanged, audit.EventStatusFailure, name, nil)
		httputil.WriteInternalError(w)
		return
	}
	s.record(r.Context(), audit.EventTypePlanChanged, audit.EventStatusSuccess, name, map[string]interface{}{
		"previous_plan": string(previous),
	})

	observability.FromContext(r.Context()).WithField("plan", string(name)).Info("plan changed")
	s.publish(r.Context(), subscription.Change{UserID: principal.UserID, Kind: subscription.ChangeSubscription})
	m.Refresh(r.Context())
	s.writeSnapshot(w, m)
}

// cancelSubscription stops renewal. Access continues until expires_at.
func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	m, ok := s.manager(w, r)
	if !ok {
		return
	}
	if s.deps.Writer == nil {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "cancellation is not enabled")
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	cancelled, err := s.deps.Writer.Cancel(r.Context(), principal.UserID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("cancellation failed")
		httputil.WriteInternalError(w)
		return
	}
	if !cancelled {
		httputil.WriteErrorMessage(w, http.StatusConflict, "no active subscription")
		return
	}
	var plan plans.PlanName
	if snap := m.Snapshot(); snap != nil {
		plan = snap.Subscription.PlanName
	}
	s.record(r.Context(), audit.EventTypeSubscriptionCancelled, audit.EventStatusSuccess, plan, nil)

	s.publish(r.Context(), subscription.Change{UserID: principal.UserID, Kind: subscription.ChangeSubscription})
	m.Refresh(r.Context())
	s.writeSnapshot(w, m)
}
