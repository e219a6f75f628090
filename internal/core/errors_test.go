package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories_Retryable(t *testing.T) {
	if !ErrGenerationFailed("m").Retryable {
		t.Fatalf("generation should be retryable")
	}
	if !ErrRetrievalFailed("m").Retryable {
		t.Fatalf("retrieval should be retryable")
	}
	if ErrSynthesisFailed("m").Retryable {
		t.Fatalf("synthesis should not be retryable")
	}
	if ErrConflict("m").Retryable {
		t.Fatalf("conflict should not be retryable")
	}
	if ErrInterviewAbortedFor("a", nil).Retryable {
		t.Fatalf("aborted interview should not be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
}

func TestSentinelsMatch(t *testing.T) {
	wrapped := fmt.Errorf("resume: %w", ErrConflict("run is not at human_feedback"))
	if !errors.Is(wrapped, ErrStateConflict) {
		t.Fatalf("expected wrapped conflict to match sentinel")
	}
	if errors.Is(wrapped, ErrSynthesis) {
		t.Fatalf("conflict must not match synthesis sentinel")
	}
	if !errors.Is(ErrRunMissing("x"), ErrRunNotFound) {
		t.Fatalf("expected run missing to match sentinel")
	}
	if !errors.Is(ErrNotReady("x", RunStatusRunning), ErrReportNotReady) {
		t.Fatalf("expected not ready to match sentinel")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrGenerationFailed("m"), "GenerationError"},
		{ErrRetrievalFailed("m"), "RetrievalError"},
		{ErrInterviewAbortedFor("a", ErrRetrievalFailed("m")), "InterviewAborted"},
		{ErrSynthesisFailed("m"), "SynthesisError"},
		{ErrConflict("m"), "StateConflict"},
		{ErrTimeout("m"), "Timeout"},
		{ErrValidation("C", "m"), "validation"},
		{errors.New("plain"), "internal"},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
