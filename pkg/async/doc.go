// Package async runs background work without letting panics escape.
//
// SafeGo is for short fire-and-forget tasks with a deadline, such as
// publishing a change notification after a request has been answered. Go is
// for long-lived loops such as a pub/sub consumer.
package async
