// internal/models/application.go
package models

import "time"

// ApplicationStatus is the authoritative lifecycle state of a loan application.
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusDisbursed   ApplicationStatus = "disbursed"
)

// Terminal reports whether the status allows no engine-driven progression
// other than its single legal next step.
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusDisbursed:
		return true
	}
	return false
}

// Product codes recognised by the step registry.
const (
	ProductHomeLoan        = "HOME_LOAN"
	ProductLoanAgainstProp = "LAP"
	ProductPersonalLoan    = "PERSONAL_LOAN"
	ProductBusinessLoan    = "BUSINESS_LOAN"
)

// ProductRequiresProperty reports whether the product is secured against a
// property record. Unknown product codes are treated as unsecured.
func ProductRequiresProperty(code string) bool {
	switch code {
	case ProductHomeLoan, ProductLoanAgainstProp:
		return true
	}
	return false
}

// Application is the engine's read-mostly projection of the record owned by
// the application service.
type Application struct {
	ID              string            `json:"id"`
	ApplicantID     string            `json:"applicantId"`
	ProductCode     string            `json:"productCode"`
	RequestedAmount float64           `json:"requestedAmount"`
	TenureMonths    int               `json:"tenureMonths"`
	Channel         string            `json:"channel"`
	Status          ApplicationStatus `json:"status"`
	AssignedTo      string            `json:"assignedTo,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}
