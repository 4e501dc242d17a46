// Package upsell turns a denied gate decision into an upgrade prompt.
//
// Callers check before acting: Guard consults the decider synchronously and
// runs the guarded action only when access is allowed. Otherwise it returns a
// Prompt naming the cheapest plan that would unlock the action. A Dialog holds
// the only state of the flow: whether a prompt is currently shown.
package upsell
