// Package errors provides the standardized error taxonomy for the loan
// application progression engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeSubmissionBlocked   ErrorCode = "SUBMISSION_BLOCKED"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrCodeVerificationFailed  ErrorCode = "VERIFICATION_FAILED"
	ErrCodeVerificationExpired ErrorCode = "VERIFICATION_EXPIRED"
	ErrCodeIncorrectOTP        ErrorCode = "INCORRECT_OTP"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
)

// WorkflowError is a structured engine error. Reasons is populated only for
// submission-gate rejections, where every blocking step is reported at once.
type WorkflowError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Reasons   []string               `json:"reasons,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("WorkflowError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Constructors
// ==========================

// NewValidationFailed creates a non-retryable field validation error. Handled
// locally at the step; it never drives a retry loop.
func NewValidationFailed(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeValidationFailed,
		Message:   "Step data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionBlocked reports every outstanding mandatory step, not just the
// first, so the caller can surface all remaining work at once.
func NewSubmissionBlocked(reasons []string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeSubmissionBlocked,
		Message:   "Application is not ready for submission",
		Details:   fmt.Sprintf("%d blocking conditions", len(reasons)),
		Retryable: false,
		Reasons:   reasons,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflict creates a non-retryable conflict error, e.g. a second
// verification job of the same kind while one is still pending.
func NewConflict(details string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeConflict,
		Message:   "Operation conflicts with an in-flight one",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewServiceUnavailable creates a retryable collaborator outage error.
// RetryAdvised signals the one-shot automatic re-check policy to the caller.
func NewServiceUnavailable(service string, err error) *WorkflowError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &WorkflowError{
		Code:      ErrCodeServiceUnavailable,
		Message:   fmt.Sprintf("Service '%s' is unavailable", service),
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service, "retryAdvised": true},
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimited creates a retryable rate-limit error carrying the
// collaborator-specified delay.
func NewRateLimited(service string, retryAfter time.Duration) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeRateLimited,
		Message:   fmt.Sprintf("Service '%s' rate limited the request", service),
		Details:   fmt.Sprintf("retry after %s", retryAfter),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service, "retryAfterMs": retryAfter.Milliseconds()},
		Timestamp: time.Now().UTC(),
	}
}

// NewVerificationFailed creates a terminal negative verification outcome.
// Actionable for the user: re-enter details and retry.
func NewVerificationFailed(kind, reason string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeVerificationFailed,
		Message:   fmt.Sprintf("%s verification failed", kind),
		Details:   reason,
		Retryable: false,
		Metadata:  map[string]interface{}{"kind": kind},
		Timestamp: time.Now().UTC(),
	}
}

// NewVerificationExpired creates the "taking longer than expected" outcome,
// reported distinctly from an explicit failure.
func NewVerificationExpired(kind string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeVerificationExpired,
		Message:   fmt.Sprintf("%s verification is taking longer than expected", kind),
		Details:   "polling attempts exhausted without a terminal outcome",
		Retryable: false,
		Metadata:  map[string]interface{}{"kind": kind},
		Timestamp: time.Now().UTC(),
	}
}

// NewIncorrectOTP creates a retryable OTP mismatch. No automatic retry; the
// user must resubmit.
func NewIncorrectOTP() *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeIncorrectOTP,
		Message:   "Incorrect OTP",
		Details:   "the submitted OTP did not match",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransition creates a fatal illegal state-machine transition error.
// Never retried, never swallowed.
func NewInvalidTransition(from, to string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Illegal application state transition",
		Details:   fmt.Sprintf("%s -> %s", from, to),
		Retryable: false,
		Metadata:  map[string]interface{}{"from": from, "to": to},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFound creates a non-retryable missing resource error.
func NewNotFound(resource, id string) *WorkflowError {
	return &WorkflowError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   id,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeout creates a retryable external-call timeout error. A call without
// a response within its budget is never a silent hang.
func NewTimeout(service string, err error) *WorkflowError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &WorkflowError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timed out", service),
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Inspection Helpers
// ==========================

// CodeOf extracts the workflow error code, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// IsCode reports whether err carries the given workflow error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err may be retried. Foreign errors are treated
// as non-retryable.
func IsRetryable(err error) bool {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// GetRetryCount returns the bounded retry budget per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeServiceUnavailable:
		return 3
	case ErrCodeTimeout:
		return 2
	case ErrCodeRateLimited:
		return 1
	default:
		return 0
	}
}
