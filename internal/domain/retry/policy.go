// Package retry defines fixed-delay retry policies.
package retry

import (
	"context"
	"time"
)

// Unlimited disables the retry cap.
const Unlimited = -1

// Policy defines a retry strategy with the same delay before every retry.
type Policy struct {
	MaxRetries int           `json:"max_retries"` // Unlimited for no cap
	Delay      time.Duration `json:"delay"`
}

// ReconnectPolicy returns the fixed-delay policy used for the live channel.
// A maxRetries of zero or below means retry forever.
func ReconnectPolicy(delay time.Duration, maxRetries int) Policy {
	if maxRetries <= 0 {
		maxRetries = Unlimited
	}
	return Policy{MaxRetries: maxRetries, Delay: delay}
}

// SingleRetryPolicy retries exactly once after delay.
func SingleRetryPolicy(delay time.Duration) Policy {
	return Policy{MaxRetries: 1, Delay: delay}
}

// CalculateDelay returns the wait before retry number attempt (1-based).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 || p.Delay < 0 {
		return 0
	}
	return p.Delay
}

// ShouldRetry reports whether another attempt is allowed after `attempt`
// retries have already been made.
func (p *Policy) ShouldRetry(attempt int) bool {
	if p.MaxRetries == Unlimited {
		return true
	}
	return attempt < p.MaxRetries
}

// IsUnlimited reports whether the policy has no retry cap.
func (p *Policy) IsUnlimited() bool {
	return p.MaxRetries == Unlimited
}

// Wait blocks for delay or until ctx is done.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context, attempt int) error

// Executor provides retry execution functionality.
type Executor struct {
	policy    Policy
	retryable func(error) bool
}

// NewExecutor creates a new retry executor with the given policy. When
// retryable is nil every error is retried.
func NewExecutor(policy Policy, retryable func(error) bool) *Executor {
	return &Executor{policy: policy, retryable: retryable}
}

// Execute runs the function with retries according to the policy.
func (e *Executor) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if e.retryable != nil && !e.retryable(err) {
			return err
		}
		if !e.policy.ShouldRetry(attempt) {
			break
		}

		if err := Wait(ctx, e.policy.CalculateDelay(attempt+1)); err != nil {
			return err
		}
	}

	return lastErr
}
