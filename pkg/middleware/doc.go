// Package middleware provides the HTTP middleware that binds a request to its
// principal, tenant and subscription.
//
// # Chain
//
// The server applies them outermost first:
//
//	RequestID -> Logging -> Recovery -> Authenticate -> TenantContext -> Gating.Subscription
//
// Authenticate verifies the bearer token and records whether the principal is
// a super admin. TenantContext resolves the tenant and rejects principals that
// belong to none. Gating.Subscription attaches the principal's subscription
// manager so handlers can build a gate.
//
// # Feature Gating
//
//	router.Handle("/v1/reports", gating.RequireFeature(plans.FeatureReports)(h))
//
// A denied request gets 402 Payment Required with an upsell prompt body naming
// the plan that unlocks the feature. The bizgate API mounts RequireFeature on
// its audit trail. RequireRoute is for services that embed Gating and serve
// the guarded app routes themselves:
//
//	router.Handle("/marketplace", gating.RequireRoute("/marketplace")(h))
//
// # Rate Limiting
//
// RateLimit keys by principal, or by client IP before authentication. The
// Redis limiter shares a fixed window across instances; the memory limiter is
// a token bucket for single-instance deployments and tests. Both fail open.
package middleware
