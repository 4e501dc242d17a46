package api

import (
	"net/http"
	"strings"

	"github.com/bizflow/bizgate/pkg/audit"
	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/middleware"
	"github.com/bizflow/bizgate/pkg/observability"
)

// listAudit returns the principal's own audit trail within the resolved
// tenant, newest first
func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	tenant, ok := middleware.TenantFrom(r.Context())
	if !ok {
		httputil.WriteNotFound(w, "no tenant")
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if offset < 0 {
		httputil.WriteBadRequest(w, "offset must not be negative")
		return
	}

	filter := audit.SearchFilter{
		UserID:   principal.UserID,
		TenantID: tenant.ID,
		Limit:    limit,
		Offset:   offset,
	}
	if raw := httputil.ParseQueryString(r, "type", ""); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			filter.EventTypes = append(filter.EventTypes, audit.EventType(strings.TrimSpace(t)))
		}
	}
	events, err := s.deps.AuditLog.Search(r.Context(), filter)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("audit search failed")
		httputil.WriteInternalError(w)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	httputil.WriteSuccess(w, AuditResponse{Events: events})
}
