package api

import (
	"net/http"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/middleware"
	"github.com/bizflow/bizgate/pkg/subscription"
)

// deductCredit consumes one credit when the principal's plan includes the
// metered feature. A plan without it gets 402 and the balance is untouched.
func (s *Server) deductCredit(w http.ResponseWriter, r *http.Request) {
	raw, ok := httputil.ParsePathStringOrError(w, r, "type")
	if !ok {
		return
	}
	creditType, err := subscription.ParseCreditType(raw)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	m, ok := s.manager(w, r)
	if !ok {
		return
	}

	var deducted bool
	g := s.gating.Gate(r.Context())
	prompt, _ := s.gating.Flow().Guard(g, creditType.Feature(), func() error {
		deducted = m.DeductCredit(r.Context(), creditType)
		return nil
	})
	if prompt != nil {
		s.record(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied, prompt.CurrentPlan, map[string]interface{}{
			"feature":       creditType.Feature().String(),
			"required_plan": string(prompt.RequiredPlan),
		})
		middleware.WritePrompt(w, *prompt)
		return
	}

	// A declined or failed deduction reports 0 rather than a cached balance.
	resp := DeductResponse{Type: creditType, Deducted: deducted}
	if snap := m.Snapshot(); deducted && snap != nil {
		resp.Remaining = snap.Credits.Balance(creditType)
	}

	eventType := audit.EventTypeCreditDeducted
	if !deducted {
		eventType = audit.EventTypeCreditDeclined
	}
	s.record(r.Context(), eventType, audit.EventStatusSuccess, "", map[string]interface{}{
		"credit_type": string(creditType),
		"remaining":   resp.Remaining,
	})
	httputil.WriteSuccess(w, resp)
}
