package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how Do repeats a failing call.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff defaults to DefaultBackoff.
	Backoff Backoff
	// Breaker, when set, is consulted once before the first attempt and
	// informed of every attempt's outcome.
	Breaker *Breaker
	// OnRetry is called before sleeping ahead of each retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do calls fn until it succeeds, returns a Permanent error, the context is
// done or MaxRetries retries have failed. The attempt passed to fn starts
// at 1.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if p.Breaker != nil && !p.Breaker.Allow() {
		return ErrCircuitOpen
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff.NextInterval(attempt)
			if p.OnRetry != nil {
				p.OnRetry(attempt, lastErr, delay)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := fn(ctx, attempt+1)
		if p.Breaker != nil {
			if err == nil {
				p.Breaker.RecordSuccess()
			} else {
				p.Breaker.RecordFailure()
			}
		}
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxRetries+1, lastErr)
}
