package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a context cancelled after timeout. A timeout of
// zero or less runs fn with ctx unchanged. fn must honour its context: the
// wrapper waits for it to return so that no sink write outlives the call.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(timeoutCtx)
	if err == nil {
		return nil
	}
	if timeoutCtx.Err() != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v): %v", name, context.DeadlineExceeded, timeout, err)
	}
	return err
}
