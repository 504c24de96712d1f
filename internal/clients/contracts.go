// Package clients defines the collaborator contracts the engine consumes and
// their HTTP implementations. The engine never implements these services; it
// only coordinates calls to them.
package clients

import (
	"context"

	"loan-workflow/internal/models"
)

// VerificationStatus is the collaborator-reported status of an asynchronous
// verification request.
type VerificationStatus string

const (
	StatusCheckPending VerificationStatus = "pending"
	StatusCheckSuccess VerificationStatus = "success"
	StatusCheckFailed  VerificationStatus = "failed"
)

// StatusResult is the polled answer from a verification collaborator.
type StatusResult struct {
	Status VerificationStatus `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

// ApplicationService owns the application record.
type ApplicationService interface {
	Get(ctx context.Context, id string) (*models.Application, error)
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	// Submit requests the draft->submitted transition server-side. The
	// idempotency key makes a retried submit have exactly one effect.
	Submit(ctx context.Context, id, idempotencyKey string) (models.ApplicationStatus, error)
}

// ApplicantService owns the applicant record.
type ApplicantService interface {
	Get(ctx context.Context, id string) (*models.Applicant, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// PropertyService owns the optional property record of secured products.
type PropertyService interface {
	Get(ctx context.Context, applicationID string) (*models.PropertyRecord, error)
	CreateOrUpdate(ctx context.Context, applicationID string, record *models.PropertyRecord) error
}

// DocumentService owns the document checklist.
type DocumentService interface {
	GetChecklist(ctx context.Context, applicationID string) ([]models.ChecklistItem, error)
	Upload(ctx context.Context, applicationID, code string, content []byte) error
}

// BankVerifier drives bank account ownership verification.
type BankVerifier interface {
	// VerifyName is the synchronous name-match check.
	VerifyName(ctx context.Context, account, ifsc, holderName string) (bool, error)
	// PennyDrop starts the asynchronous small-transaction check.
	PennyDrop(ctx context.Context, account, ifsc string, amount float64) (requestID string, err error)
	Status(ctx context.Context, requestID string) (StatusResult, error)
}

// BureauReport is the polled credit-bureau answer.
type BureauReport struct {
	Status VerificationStatus `json:"status"`
	Score  int                `json:"score,omitempty"`
	Reason string             `json:"reason,omitempty"`
}

// BureauClient drives the credit-bureau pull.
type BureauClient interface {
	Pull(ctx context.Context, pan, dob, mobile string) (requestID string, err error)
	Report(ctx context.Context, requestID string) (BureauReport, error)
}

// EKYCClient drives identity verification with a human-in-the-loop OTP.
type EKYCClient interface {
	Start(ctx context.Context, applicantID, idNumber, mobile string) (sessionID string, err error)
	// SubmitOTP returns verified=false without error for an incorrect OTP;
	// the caller surfaces it as a retryable outcome.
	SubmitOTP(ctx context.Context, sessionID, otp string) (verified bool, err error)
	Status(ctx context.Context, sessionID string) (StatusResult, error)
}
