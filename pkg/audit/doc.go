// Package audit records who changed which subscription and when.
//
// Events cover plan changes, cancellations, expiries run by the reconciler,
// catalog seeding, credit deductions and gate denials. Each event carries the
// request id, user and tenant found in the context.
//
//	audit.Record(ctx, logger, audit.NewEvent(ctx, audit.EventTypePlanChanged, audit.EventStatusSuccess))
//
// Record never fails the caller: a failed write is logged at warn level.
// DBLogger persists to the audit_logs table and also implements Searcher.
// Tenant events are written and searched through a tenancy.Scope.
// StreamLogger writes one structured log line per event, and MultiLogger
// combines the two.
package audit
