package middleware

import (
	"net/http"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/httputil"
	"github.com/bizflow/bizgate/pkg/observability"
)

// Authenticate requires a valid bearer token. The principal is marked super
// admin when admins says so; a checker error is logged and treated as a
// regular principal.
func Authenticate(verifier *auth.Verifier, admins auth.AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				httputil.WriteUnauthorized(w, "missing bearer token")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				httputil.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := contextkeys.WithUserID(r.Context(), principal.UserID)
			if admins != nil {
				isAdmin, err := admins.IsSuperAdmin(ctx, principal.UserID)
				if err != nil {
					observability.FromContext(ctx).WithError(err).Warn("super admin check failed")
				}
				principal.SuperAdmin = isAdmin && err == nil
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, principal)))
		})
	}
}
