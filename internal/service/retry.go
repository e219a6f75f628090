package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// RetryPolicy is an exponential backoff schedule for collaborator calls.
// Only errors that core.IsRetryable accepts are attempted again.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// JitterFactor spreads each delay by up to ±factor of its value.
	JitterFactor float64
	Multiplier   float64
}

// RetryPolicyOption configures a retry policy.
type RetryPolicyOption func(*RetryPolicy)

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func(ctx context.Context) error

// RetryNotifyFunc observes a failed attempt before the policy sleeps.
type RetryNotifyFunc func(attempt int, err error, delay time.Duration)

// DefaultRetryPolicy allows three attempts starting at one second.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     20 * time.Second,
		JitterFactor: 0.2,
		Multiplier:   2,
	}
}

func WithMaxAttempts(n int) RetryPolicyOption {
	return func(p *RetryPolicy) { p.MaxAttempts = n }
}

func WithBaseDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) { p.BaseDelay = d }
}

func WithMaxDelay(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) { p.MaxDelay = d }
}

func WithJitter(factor float64) RetryPolicyOption {
	return func(p *RetryPolicy) { p.JitterFactor = factor }
}

// NewRetryPolicy applies opts over DefaultRetryPolicy. At least one attempt
// is always made.
func NewRetryPolicy(opts ...RetryPolicyOption) *RetryPolicy {
	p := DefaultRetryPolicy()
	for _, opt := range opts {
		opt(p)
	}
	p.MaxAttempts = max(p.MaxAttempts, 1)
	p.JitterFactor = min(max(p.JitterFactor, 0), 1)
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Execute runs fn under the policy.
func (p *RetryPolicy) Execute(ctx context.Context, fn RetryableFunc) error {
	return p.ExecuteWithNotify(ctx, fn, nil)
}

// ExecuteWithNotify runs fn until it succeeds, returns a permanent error,
// or the attempt budget runs out. notify may be nil.
func (p *RetryPolicy) ExecuteWithNotify(ctx context.Context, fn RetryableFunc, notify RetryNotifyFunc) error {
	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(ctx); err == nil || !core.IsRetryable(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return &RetryExhaustedError{Attempts: attempt, LastErr: err}
		}

		delay := p.CalculateDelay(attempt)
		if notify != nil {
			notify(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// CalculateDelay is the jittered wait after the given failed attempt.
func (p *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	d := p.CalculateDelayNoJitter(attempt)
	if p.JitterFactor == 0 || d <= 0 {
		return d
	}
	spread := float64(d) * p.JitterFactor
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// CalculateDelayNoJitter doubles (by Multiplier) from BaseDelay, capped at MaxDelay.
func (p *RetryPolicy) CalculateDelayNoJitter(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryExhaustedError wraps the last failure once the budget is spent.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// IsRetryExhausted reports whether err came from a spent retry budget.
func IsRetryExhausted(err error) bool {
	var target *RetryExhaustedError
	return errors.As(err, &target)
}
