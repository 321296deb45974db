package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy wraps provider calls in bounded attempts with exponential
// backoff and a per-attempt timeout. Upstream flakiness is expected; a single
// best-effort call is not enough, but generation must still fail fast.
type RetryPolicy struct {
	Attempts       int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is used when a policy field is left at its zero value.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:       3,
	AttemptTimeout: 5 * time.Second,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

func (p RetryPolicy) normalised() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = DefaultRetryPolicy.AttemptTimeout
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultRetryPolicy.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultRetryPolicy.MaxBackoff
	}
	return p
}

// Do runs op until it succeeds, the attempts are exhausted, or the parent
// context is cancelled. Each attempt runs under its own timeout.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	policy := p.normalised()

	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		err := op(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("provider call aborted: %w", errors.Join(ctx.Err(), lastErr))
		}
		if attempt == policy.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("provider call aborted: %w", errors.Join(ctx.Err(), lastErr))
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return fmt.Errorf("provider call failed after %d attempts: %w", policy.Attempts, lastErr)
}
