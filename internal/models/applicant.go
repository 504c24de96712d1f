// internal/models/applicant.go
package models

// Address is a postal address captured on the personal step.
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Complete reports whether the address has every field the personal step requires.
func (a Address) Complete() bool {
	return a.Line1 != "" && a.City != "" && a.State != "" && a.Pincode != ""
}

// Employment types captured on the employment step.
const (
	EmploymentSalaried     = "salaried"
	EmploymentSelfEmployed = "self_employed"
)

type Employment struct {
	Type           string  `json:"type"`
	Employer       string  `json:"employer,omitempty"`
	MonthlyIncome  float64 `json:"monthlyIncome,omitempty"`
	BusinessName   string  `json:"businessName,omitempty"`
	AnnualTurnover float64 `json:"annualTurnover,omitempty"`
}

// BankDetails holds the account used for the penny-drop verification and
// eventual disbursement.
type BankDetails struct {
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	HolderName    string `json:"holderName"`
}

// Applicant is the engine's projection of the applicant service's record.
// Mutated only through explicit step-save operations; the engine reads it
// fresh before every completeness evaluation.
type Applicant struct {
	ID          string      `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName,omitempty"`
	Mobile      string      `json:"mobile"`
	Email       string      `json:"email,omitempty"`
	PAN         string      `json:"pan"`
	DateOfBirth string      `json:"dateOfBirth"`
	Address     Address     `json:"address"`
	Employment  Employment  `json:"employment"`
	Bank        BankDetails `json:"bank"`
}
