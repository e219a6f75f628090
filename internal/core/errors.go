package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Provider rate limited
	ErrCatState      ErrorCategory = "state"      // Run not in a usable state
	ErrCatAuth       ErrorCategory = "auth"       // Authentication failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatConflict   ErrorCategory = "conflict"   // Concurrent modification or wrong stage
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
	ErrCatGeneration ErrorCategory = "generation" // Language model failure
	ErrCatRetrieval  ErrorCategory = "retrieval"  // Search provider failure
	ErrCatSynthesis  ErrorCategory = "synthesis"  // Report reduction failure
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error codes.
const (
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeRetrievalFailed  = "RETRIEVAL_FAILED"
	CodeInterviewAborted = "INTERVIEW_ABORTED"
	CodeSynthesisFailed  = "SYNTHESIS_FAILED"
	CodeStateConflict    = "STATE_CONFLICT"
	CodeRunNotFound      = "RUN_NOT_FOUND"
	CodeReportNotReady   = "REPORT_NOT_READY"
	CodeRunExists        = "RUN_EXISTS"
	CodeFinalizeFailed   = "FINALIZE_FAILED"
	CodeStateCorrupted   = "STATE_CORRUPTED"

	CodeEmptyTopic      = "EMPTY_TOPIC"
	CodeInvalidCount    = "INVALID_COUNT"
	CodeInvalidDecision = "INVALID_DECISION"
	CodeInvalidConfig   = "INVALID_CONFIG"
)

// Sentinels for errors.Is. Matching is by category and code.
var (
	ErrGeneration       = &DomainError{Category: ErrCatGeneration, Code: CodeGenerationFailed}
	ErrRetrieval        = &DomainError{Category: ErrCatRetrieval, Code: CodeRetrievalFailed}
	ErrInterviewAborted = &DomainError{Category: ErrCatExecution, Code: CodeInterviewAborted}
	ErrSynthesis        = &DomainError{Category: ErrCatSynthesis, Code: CodeSynthesisFailed}
	ErrStateConflict    = &DomainError{Category: ErrCatConflict, Code: CodeStateConflict}
	ErrRunNotFound      = &DomainError{Category: ErrCatNotFound, Code: CodeRunNotFound}
	ErrReportNotReady   = &DomainError{Category: ErrCatState, Code: CodeReportNotReady}
)

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrGenerationFailed reports a failed or unparsable language model call.
func ErrGenerationFailed(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatGeneration,
		Code:      CodeGenerationFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrRetrievalFailed reports a failed or timed out search call.
func ErrRetrievalFailed(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRetrieval,
		Code:      CodeRetrievalFailed,
		Message:   message,
		Retryable: true,
	}
}

// ErrInterviewAbortedFor marks one interview instance as failed.
func ErrInterviewAbortedFor(analyst string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeInterviewAborted,
		Message:   fmt.Sprintf("interview with %q aborted", analyst),
		Retryable: false,
		Cause:     cause,
		Details:   map[string]interface{}{"analyst": analyst},
	}
}

// ErrSynthesisFailed reports a failed report reduction.
func ErrSynthesisFailed(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatSynthesis,
		Code:      CodeSynthesisFailed,
		Message:   message,
		Retryable: false,
	}
}

// ErrConflict reports a patch against a run that is not at the expected stage.
func ErrConflict(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConflict,
		Code:      CodeStateConflict,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrRunMissing reports an unknown run id.
func ErrRunMissing(runID string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeRunNotFound,
		Message:   fmt.Sprintf("run not found: %s", runID),
		Retryable: false,
	}
}

// ErrNotReady reports that a run has no final report yet.
func ErrNotReady(runID string, status RunStatus) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeReportNotReady,
		Message:   fmt.Sprintf("run %s has no final report (status %s)", runID, status),
		Retryable: false,
		Details:   map[string]interface{}{"status": string(status)},
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// ErrorKind names the pipeline error kind of err, as recorded in RunState.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInterviewAborted):
		return "InterviewAborted"
	case errors.Is(err, ErrStateConflict):
		return "StateConflict"
	case errors.Is(err, ErrSynthesis):
		return "SynthesisError"
	case errors.Is(err, ErrRetrieval):
		return "RetrievalError"
	case errors.Is(err, ErrGeneration):
		return "GenerationError"
	case IsCategory(err, ErrCatTimeout):
		return "Timeout"
	}
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return string(domErr.Category)
	}
	return string(ErrCatInternal)
}
