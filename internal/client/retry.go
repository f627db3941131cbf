package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"leo/internal/logging"
)

// maxBackoff caps the delay between retries.
const maxBackoff = 60 * time.Second

// retryWithBackoff runs fn once plus up to maxRetries retries, backing
// off exponentially with jitter between attempts. Only transient errors
// are retried; permanent failures return immediately.
func retryWithBackoff[T any](ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logging.Info("retrying request", "attempt", attempt, "delay", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			backoff = nextBackoff(backoff)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return zero, err
		}
		logging.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// nextBackoff doubles the delay with 0.5..1.0 jitter, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	jitter := 0.5 + rand.Float64()*0.5
	next := time.Duration(float64(current) * 2 * jitter)
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}
