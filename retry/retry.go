// Package retry provides retry logic with exponential backoff for transient errors.
package retry

import (
	"context"
	"errors"
	"time"

	ai "github.com/zPy52/taichat"
)

// Do executes fn with retry logic. Only errors categorized as transient
// are retried; anything else is returned immediately. Context
// cancellation is respected during backoff waits.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !ai.IsTransient(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			delay := cfg.Delay(attempt)
			if hinted := retryAfter(err); hinted > delay {
				delay = hinted
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}

// DoValue is like Do for functions that return a value.
func DoValue[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// retryAfter extracts the server-suggested delay, if the error carries one.
func retryAfter(err error) time.Duration {
	var ce *ai.Error
	if errors.As(err, &ce) {
		return ce.RetryDelay
	}
	return 0
}
