package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

// CallPolicy bounds every external call: each attempt gets its own timeout
// and retryable failures are retried under the retry budget.
type CallPolicy struct {
	Timeout time.Duration
	Retry   *RetryPolicy
	Notify  RetryNotifyFunc
}

// DefaultCallPolicy returns a policy with a 90s timeout and the default retry budget.
func DefaultCallPolicy() CallPolicy {
	return CallPolicy{
		Timeout: 90 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// WithNotify returns a copy of p that reports retries to fn.
func (p CallPolicy) WithNotify(fn RetryNotifyFunc) CallPolicy {
	p.Notify = fn
	return p
}

// Call runs fn under the policy. An attempt that hits its own deadline fails
// with a retryable timeout error; cancellation of ctx stops immediately.
func Call[T any](ctx context.Context, p CallPolicy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	retry := p.Retry
	if retry == nil {
		retry = NewRetryPolicy(WithMaxAttempts(1))
	}

	err := retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		v, err := fn(attemptCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return core.ErrTimeout(fmt.Sprintf("%s exceeded %s", name, p.Timeout)).WithCause(err)
			}
			return err
		}
		result = v
		return nil
	}, p.Notify)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
