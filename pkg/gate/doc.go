// Package gate decides whether the current principal may use a feature or
// reach a route.
//
// Decisions are pure and cheap: a super-admin is always allowed, a principal
// whose plan is still loading is allowed, a plan with no feature mapping is
// allowed, and otherwise the plan's feature set decides. A route guarded by
// several features is reachable through any one of them.
package gate
