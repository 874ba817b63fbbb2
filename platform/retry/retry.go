// Package retry runs startup dependencies (database, migrations) until they
// come up or the attempt budget runs out.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadbot_backend/platform/logger"
)

var ErrNoAttempts = errors.New("retry: attempts must be positive")

// Policy bounds a retry loop. Delay grows quadratically with the attempt
// number and is capped at MaxDelay when set.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Startup is the policy both binaries use while waiting for postgres.
var Startup = Policy{Attempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

func (p Policy) delay(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * p.BaseDelay
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, ctx ends, or the policy is exhausted. The
// last failure is wrapped with the operation name.
func Do(ctx context.Context, log *logger.Logger, name string, p Policy, fn func(context.Context) error) error {
	if p.Attempts < 1 {
		return fmt.Errorf("%s: %w", name, ErrNoAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if log != nil {
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "of", p.Attempts, "error", lastErr)
		}
		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}

// Value is Do for operations that produce a result, such as opening a pool.
func Value[T any](ctx context.Context, log *logger.Logger, name string, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, log, name, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
