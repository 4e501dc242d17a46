// Package contextkeys provides centralized context key definitions
//
// All request-context keys used across the application are defined here so that
// producers and consumers agree on one name and one value type per key.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithTenantID(ctx, tenant.ID)
//	tenantID := contextkeys.GetTenantID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *auth.Principal
	// Set by: middleware.Authenticate (pkg/middleware/auth.go)
	// Required by: every /v1/me endpoint, tenant and subscription middleware
	PrincipalKey Key = "principal"

	// TenantKey contains *tenancy.Tenant
	// Set by: middleware.TenantContext (pkg/middleware/tenant.go)
	TenantKey Key = "tenant"

	// TenantIDKey contains the active tenant id string
	// Set by: middleware.TenantContext
	// Used by: Logger, tenant-scoped queries
	TenantIDKey Key = "tenant_id"

	// SubscriptionKey contains *subscription.Manager for the principal
	// Set by: middleware.SubscriptionContext (pkg/middleware/subscription.go)
	// Required by: feature gating middleware, API handlers
	SubscriptionKey Key = "subscription"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.Authenticate
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	LoggerKey Key = "logger"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithTenant adds the resolved tenant to the context
func WithTenant(ctx context.Context, tenant interface{}) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}

// WithTenantID adds the tenant id to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// WithSubscription adds the principal's subscription manager to the context
func WithSubscription(ctx context.Context, manager interface{}) context.Context {
	return context.WithValue(ctx, SubscriptionKey, manager)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetTenantID retrieves tenant ID from context
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
