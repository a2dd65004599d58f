package workflow

import (
	"context"
	"fmt"
	"instagrow/executor"
	"time"

	"go.uber.org/zap"
)

// withRetries runs fn under the navigation retry policy: transient platform
// errors are retried with linearly increasing backoff until the attempt
// budget is exhausted, which escalates to a fatal navigation error. A
// blocked banner detected after a failed attempt short-circuits everything:
// the session is reset and a run-aborting BlockedError is returned.
func (w *Workflow) withRetries(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= w.opts.RetryAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if blocked, berr := w.exec.DetectBlockedBanner(ctx); berr == nil && blocked {
			return w.handleBlocked(ctx, op)
		}
		if !executor.IsTransient(err) {
			return err
		}
		if attempt < w.opts.RetryAttempts {
			backoff := time.Duration(attempt) * w.opts.RetryBackoff
			w.log.Warn("transient platform error, backing off",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if serr := w.sleep(ctx, backoff); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, w.opts.RetryAttempts, lastErr)
}

// handleBlocked is the platform soft-ban path: invalidate the session, hold
// off for the extended cooldown, then abort the run. Recovery needs operator
// intervention; there is deliberately no automatic re-login.
func (w *Workflow) handleBlocked(ctx context.Context, op string) error {
	w.log.Error("action blocked by platform, invalidating session",
		zap.String("op", op),
		zap.Duration("cooldown", w.opts.BlockedCooldown))
	if err := w.exec.ResetSession(ctx); err != nil {
		w.log.Error("failed to reset session", zap.Error(err))
	}
	w.observer.OnNote("action blocked by platform during " + op)
	w.observer.OnSleep(w.opts.BlockedCooldown)
	if err := w.sleep(ctx, w.opts.BlockedCooldown); err != nil {
		return err
	}
	return executor.NewBlockedError(op)
}
