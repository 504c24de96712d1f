// internal/models/verification.go
package models

import "time"

// VerificationKind identifies an asynchronous third-party verification flow.
type VerificationKind string

const (
	VerificationBank     VerificationKind = "bank"
	VerificationBureau   VerificationKind = "bureau"
	VerificationIdentity VerificationKind = "identity"
)

// Valid reports whether the kind is one the orchestrator knows how to drive.
func (k VerificationKind) Valid() bool {
	switch k {
	case VerificationBank, VerificationBureau, VerificationIdentity:
		return true
	}
	return false
}

// JobState is the lifecycle state of a verification job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	// JobExpired means polling attempts ran out without a terminal answer.
	// Distinct from JobFailed so callers can say "check back later" instead
	// of "re-enter your details".
	JobExpired JobState = "expired"
)

// Terminal reports whether the state admits no further polling.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobExpired
}

// VerificationJob tracks one polled external verification. At most one
// non-terminal job per (applicationID, kind) may exist at a time.
type VerificationJob struct {
	ID                string           `json:"id"`
	ApplicationID     string           `json:"applicationId"`
	Kind              VerificationKind `json:"kind"`
	ExternalRequestID string           `json:"externalRequestId"`
	// SessionID is set only for identity jobs; the OTP sub-flow is keyed by it.
	SessionID     string        `json:"sessionId,omitempty"`
	State         JobState      `json:"state"`
	Attempts      int           `json:"attempts"`
	MaxAttempts   int           `json:"maxAttempts"`
	PollInterval  time.Duration `json:"pollIntervalMs"`
	FailureReason string        `json:"failureReason,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CompletionSnapshot is the evaluator's output: per-step completeness plus
// the aggregate percentage over mandatory applicable steps. Always recomputed
// from fresh reads, never stored as the source of truth.
type CompletionSnapshot struct {
	ProductCode string          `json:"productCode"`
	Steps       map[string]bool `json:"steps"`
	Aggregate   int             `json:"aggregate"`
	EvaluatedAt time.Time       `json:"evaluatedAt"`
}
