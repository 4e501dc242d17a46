// Package subscription loads and caches a user's subscription, the plan
// catalog and the user's credit balances.
//
// A Manager owns one user's snapshot. Init binds it to a user and Dispose
// unbinds it. Load and Refresh fetch the three parts concurrently and swap in
// a complete Snapshot atomically, so readers see either the old snapshot or
// the new one and never a mix. Results of a load started for a previous user
// are discarded.
//
// Fetch failures never reach callers. The manager keeps the last snapshot it
// had for the same user, or a synthesised FREE/active default on first load.
//
// Credits are consumed with a single conditional UPDATE so concurrent
// deductions from several devices cannot drive a balance below zero.
//
// Sessions keeps one Manager per user for a server that serves many users and
// fans change notifications out to them. Eviction only drops the cache entry,
// and a manager whose first load failed is not cached. RedisNotifier carries those
// notifications between processes.
package subscription
