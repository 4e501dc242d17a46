package async

import (
	"context"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
)

// SafeGo runs fn in a goroutine bounded by timeout. Panics and returned errors
// are logged and never crash the process.
//
// Example:
//
//	async.SafeGo(ctx, logger, 5*time.Second, "publish change", func(ctx context.Context) error {
//	    return notifier.Publish(ctx, change)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()
		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// Go runs a long-lived loop in a goroutine with panic recovery. The returned
// channel is closed when fn returns.
func Go(logger *observability.Logger, taskName string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer observability.RecoverPanic(logger, taskName)
		fn()
	}()
	return done
}
