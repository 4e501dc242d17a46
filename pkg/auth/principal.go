package auth

import (
	"context"

	"github.com/bizflow/bizgate/pkg/contextkeys"
)

// Principal is an authenticated user
type Principal struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	SuperAdmin bool   `json:"super_admin"`
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// PrincipalFrom returns the principal stored in ctx
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p, ok && p != nil
}
