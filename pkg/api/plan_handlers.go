package api

import (
	"net/http"
	"sort"

	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
)

// listPlans returns the stored catalog, or the embedded one when the store
// is unavailable or empty
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	var planList []plans.Plan
	if s.deps.Store != nil {
		stored, err := s.deps.Store.ListPlans(r.Context())
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("plan catalog unavailable, serving embedded catalog")
		}
		planList = stored
	}
	if len(planList) == 0 {
		planList = s.catalog.Plans
	}

	views := make([]PlanView, 0, len(planList))
	for _, p := range planList {
		grants, _ := plans.FeaturesForPlan(plans.NormalizePlanName(string(p.Name)))
		views = append(views, PlanView{Plan: p, Grants: grants})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].SortOrder < views[j].SortOrder
	})

	httputil.WriteSuccess(w, PlansResponse{Plans: views})
}
