package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
)

func TestRetryPolicy_Execute_Success(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3))
	callCount := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v, want nil", err)
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

func TestRetryPolicy_Execute_SuccessAfterRetry(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3), WithBaseDelay(time.Millisecond))
	callCount := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		if callCount < 3 {
			return core.ErrGenerationFailed("empty completion")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v, want nil", err)
	}
	if callCount != 3 {
		t.Errorf("callCount = %d, want 3", callCount)
	}
}

func TestRetryPolicy_Execute_NonRetryable(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(3))
	callCount := 0
	want := core.ErrValidation("INVALID", "not retryable")
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		callCount++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Execute() error = %v, want %v", err, want)
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

func TestRetryPolicy_Execute_Exhausted(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(2), WithBaseDelay(time.Millisecond))
	var notified int
	err := policy.ExecuteWithNotify(context.Background(), func(ctx context.Context) error {
		return core.ErrRetrievalFailed("search down")
	}, func(attempt int, err error, delay time.Duration) {
		notified++
	})
	if !IsRetryExhausted(err) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if !errors.Is(err, core.ErrRetrieval) {
		t.Errorf("expected exhausted error to wrap retrieval error")
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}
}

func TestRetryPolicy_Execute_ContextCancelled(t *testing.T) {
	policy := NewRetryPolicy(WithMaxAttempts(5), WithBaseDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := policy.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		calls++
		return core.ErrTimeout("slow")
	}, func(int, error, time.Duration) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_CalculateDelayNoJitter(t *testing.T) {
	policy := NewRetryPolicy(WithBaseDelay(time.Second), WithMaxDelay(3*time.Second))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := policy.CalculateDelayNoJitter(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCall_AttemptTimeoutIsRetryable(t *testing.T) {
	policy := CallPolicy{
		Timeout: 10 * time.Millisecond,
		Retry:   NewRetryPolicy(WithMaxAttempts(2), WithBaseDelay(time.Millisecond)),
	}
	attempts := 0
	got, err := Call(context.Background(), policy, "search", func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "ok" || attempts != 2 {
		t.Errorf("got %q after %d attempts", got, attempts)
	}
}

func TestCall_TimeoutExhaustsBudget(t *testing.T) {
	policy := CallPolicy{
		Timeout: 5 * time.Millisecond,
		Retry:   NewRetryPolicy(WithMaxAttempts(2), WithBaseDelay(time.Millisecond)),
	}
	_, err := Call(context.Background(), policy, "search", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !core.IsCategory(err, core.ErrCatTimeout) {
		t.Errorf("expected timeout category, got %v", err)
	}
}

func TestCall_NilRetryRunsOnce(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), CallPolicy{}, "gen", func(ctx context.Context) (int, error) {
		calls++
		return 0, core.ErrGenerationFailed("bad")
	})
	if err == nil || calls != 1 {
		t.Errorf("expected one failing call, got calls=%d err=%v", calls, err)
	}
}
