// Package retry implements bounded exponential backoff for the pipeline's
// network boundaries (embedding and skill-extraction backends).
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy configures retry behavior. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// Multiplier scales the delay after each attempt.
	Multiplier float64
}

// DefaultPolicy suits short HTTP calls against hosted models.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or the context
// ends. The last error is returned wrapped with the attempt count.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier <= 1 {
		policy.Multiplier = 2.0
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == policy.MaxAttempts {
			break
		}

		if delay > policy.MaxDelay && policy.MaxDelay > 0 {
			delay = policy.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
	}

	return fmt.Errorf("after %d attempts: %w", policy.MaxAttempts, lastErr)
}
