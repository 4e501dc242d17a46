package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/tenancy"
)

// TenantContext resolves the principal's tenant. Principals without one get
// 403.
func TenantContext(resolver tenancy.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFrom(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			tenant, err := resolver.ResolveTenant(r.Context(), principal.UserID)
			switch {
			case errors.Is(err, tenancy.ErrNoTenant):
				httputil.WriteErrorMessage(w, http.StatusForbidden, "no tenant for principal")
				return
			case err != nil:
				observability.FromContext(r.Context()).WithError(err).Error("tenant resolution failed")
				httputil.WriteInternalError(w)
				return
			}

			ctx := contextkeys.WithTenant(r.Context(), tenant)
			ctx = contextkeys.WithTenantID(ctx, tenant.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFrom returns the tenant attached by TenantContext
func TenantFrom(ctx context.Context) (*tenancy.Tenant, bool) {
	t, ok := ctx.Value(contextkeys.TenantKey).(*tenancy.Tenant)
	return t, ok && t != nil
}
