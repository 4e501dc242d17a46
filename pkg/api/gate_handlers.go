package api

import (
	"net/http"

	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/plans"
)

func (s *Server) listFeatures(w http.ResponseWriter, r *http.Request) {
	g := s.gating.Gate(r.Context())
	plan, loaded := g.CurrentPlan()
	granted := g.Granted()

	codes := plans.AllFeatureCodes()
	resp := FeaturesResponse{
		Plan:       plan,
		Loaded:     loaded,
		SuperAdmin: g.SuperAdmin(),
		Features:   make([]FeatureView, 0, len(codes)),
	}
	for _, code := range codes {
		required, _ := g.RequiredPlan(code)
		resp.Features = append(resp.Features, FeatureView{
			Code:         code,
			Granted:      granted.Has(code),
			RequiredPlan: required,
		})
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	route := httputil.ParseQueryString(r, "route", "")
	if route == "" {
		httputil.WriteBadRequest(w, "route query parameter is required")
		return
	}

	g := s.gating.Gate(r.Context())
	requiredPlan, requires, guarded := g.RequiredPlanForRoute(route)
	resp := AccessResponse{
		Route:        route,
		Allowed:      g.CanAccessRoute(route),
		Guarded:      guarded,
		Requires:     requires,
		RequiredPlan: requiredPlan,
	}
	if !resp.Allowed {
		p := s.gating.Flow().RoutePrompt(g, route)
		resp.Prompt = &p
	}
	httputil.WriteSuccess(w, resp)
}
