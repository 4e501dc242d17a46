package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/bizflow/bizgate/pkg/tenancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, userID string) (*tenancy.Tenant, error)

func (f resolverFunc) ResolveTenant(ctx context.Context, userID string) (*tenancy.Tenant, error) {
	return f(ctx, userID)
}

func TestTenantContext(t *testing.T) {
	const tenantID = "9d8c7b6a-5f4e-4d3c-8b2a-19f8e7d6c5b4"
	resolver := resolverFunc(func(_ context.Context, userID string) (*tenancy.Tenant, error) {
		switch userID {
		case alice:
			return &tenancy.Tenant{ID: tenantID, Name: "Acme"}, nil
		case bob:
			return nil, tenancy.ErrNoTenant
		}
		return nil, errors.New("connection refused")
	})

	var got *tenancy.Tenant
	var gotID string
	h := TenantContext(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = TenantFrom(r.Context())
		gotID = contextkeys.GetTenantID(r.Context())
	}))

	serve := func(p *auth.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/me/tenant", nil)
		if p != nil {
			req = req.WithContext(auth.WithPrincipal(req.Context(), p))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Principal{UserID: bob}))
	assert.Equal(t, http.StatusInternalServerError, serve(&auth.Principal{UserID: "8e9f0a1b-2c3d-4e5f-a6b7-c8d9e0f1a2b3"}))

	assert.Equal(t, http.StatusOK, serve(&auth.Principal{UserID: alice}))
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, tenantID, gotID)
}
