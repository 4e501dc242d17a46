// Package api exposes subscription state, feature gating and credit
// deduction over HTTP.
//
// # Routes
//
//	GET  /v1/plans                          plan catalog (public)
//	GET  /v1/me/tenant                      resolved tenant
//	GET  /v1/me/subscription                current snapshot
//	POST /v1/me/subscription/refresh        reload then snapshot
//	POST /v1/me/subscription/plan           change plan
//	POST /v1/me/subscription/cancel         cancel at period end
//	GET  /v1/me/features                    every feature with its grant
//	GET  /v1/me/access?route=/projects      route decision and upsell prompt
//	POST /v1/me/credits/{type}/deduct       consume one ocr or e_fatura credit
//	GET  /v1/me/audit?type=&limit=&offset=  caller's audit trail (when enabled, reports feature)
//
// Every /v1/me route runs behind Authenticate, TenantContext and the
// subscription middleware. A denied credit deduction answers 402 with an
// upsell prompt; an exhausted balance answers 200 with deducted=false. The audit
// trail is mounted behind Gating.RequireFeature, so a plan without reports gets
// the same 402 prompt.
//
// # Usage
//
//	srv := api.NewServer(api.Dependencies{...})
//	http.ListenAndServe(":8080", srv.Handler())
package api
