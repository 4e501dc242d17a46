// Package postgres holds the shared database plumbing: a primary/replica
// connection manager, a versioned migration runner and the Redis client
// factory.
//
// Writes (credit deductions, plan changes, expiry) always go to Primary.
// Snapshot reads may go to Replica, which falls back to the primary when no
// replica is configured or healthy.
package postgres
