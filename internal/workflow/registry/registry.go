// Package registry defines the ordered, product-conditional step graph of a
// loan application. Steps are declarative data: adding or removing one never
// requires consumer changes, consumers iterate the sequence generically.
package registry

import "loan-workflow/internal/models"

// Step ids, in display order.
const (
	StepPersonal   = "personal"
	StepEmployment = "employment"
	StepProperty   = "property"
	StepBank       = "bank"
	StepDocuments  = "documents"
	StepReview     = "review"
)

// Inputs is the full set of snapshots a completeness predicate may consult.
// Predicates must be total: missing optional data yields false, never a panic.
type Inputs struct {
	Application   *models.Application
	Applicant     *models.Applicant
	Property      *models.PropertyRecord
	Checklist     []models.ChecklistItem
	Verifications map[models.VerificationKind]models.JobState
}

// Step is one registry entry. Applicable and Complete are pure; applicability
// of a step never depends on another step's completeness.
type Step struct {
	ID         string
	Order      int
	Label      string
	Mandatory  bool
	Applicable func(app *models.Application) bool
	Complete   func(in Inputs) bool
}

// Registry holds the ordered step definitions.
type Registry struct {
	steps []Step
}

func always(_ *models.Application) bool { return true }

func requiresProperty(app *models.Application) bool {
	if app == nil {
		return false
	}
	return models.ProductRequiresProperty(app.ProductCode)
}

// New builds the registry. The property step applies only to secured
// products; the review step applies always but is never mandatory, it is the
// read-only summary of the others.
func New() *Registry {
	steps := []Step{
		{
			ID:         StepPersonal,
			Order:      1,
			Label:      "Personal Details",
			Mandatory:  true,
			Applicable: always,
			Complete:   personalComplete,
		},
		{
			ID:         StepEmployment,
			Order:      2,
			Label:      "Employment & Income",
			Mandatory:  true,
			Applicable: always,
			Complete:   employmentComplete,
		},
		{
			ID:         StepProperty,
			Order:      3,
			Label:      "Property Details",
			Mandatory:  true,
			Applicable: requiresProperty,
			Complete:   propertyComplete,
		},
		{
			ID:         StepBank,
			Order:      4,
			Label:      "Bank Details",
			Mandatory:  true,
			Applicable: always,
			Complete:   bankComplete,
		},
		{
			ID:         StepDocuments,
			Order:      5,
			Label:      "Documents",
			Mandatory:  true,
			Applicable: always,
			Complete:   documentsComplete,
		},
	}

	// Review completes when every other applicable mandatory step does.
	data := make([]Step, len(steps))
	copy(data, steps)
	steps = append(steps, Step{
		ID:         StepReview,
		Order:      6,
		Label:      "Review & Submit",
		Mandatory:  false,
		Applicable: always,
		Complete: func(in Inputs) bool {
			for _, s := range data {
				if !s.Mandatory || !s.Applicable(in.Application) {
					continue
				}
				if !s.Complete(in) {
					return false
				}
			}
			return true
		},
	})

	return &Registry{steps: steps}
}

// ListSteps returns the ordered steps applicable to the application.
func (r *Registry) ListSteps(app *models.Application) []Step {
	out := make([]Step, 0, len(r.steps))
	for _, s := range r.steps {
		if s.Applicable(app) {
			out = append(out, s)
		}
	}
	return out
}

// MandatorySteps returns the applicable steps whose completion gates
// submission.
func (r *Registry) MandatorySteps(app *models.Application) []Step {
	out := make([]Step, 0, len(r.steps))
	for _, s := range r.steps {
		if s.Mandatory && s.Applicable(app) {
			out = append(out, s)
		}
	}
	return out
}

// ==========================
// Completeness predicates
// ==========================

func personalComplete(in Inputs) bool {
	a := in.Applicant
	if a == nil {
		return false
	}
	return a.FirstName != "" &&
		a.Mobile != "" &&
		a.PAN != "" &&
		a.DateOfBirth != "" &&
		a.Address.Complete()
}

func employmentComplete(in Inputs) bool {
	a := in.Applicant
	if a == nil {
		return false
	}
	switch a.Employment.Type {
	case models.EmploymentSalaried:
		return a.Employment.Employer != "" && a.Employment.MonthlyIncome > 0
	case models.EmploymentSelfEmployed:
		return a.Employment.BusinessName != "" && a.Employment.AnnualTurnover > 0
	}
	return false
}

func propertyComplete(in Inputs) bool {
	p := in.Property
	if p == nil {
		return false
	}
	return p.Address.Complete() && p.PropertyType != "" && p.EstimatedValue > 0
}

func bankComplete(in Inputs) bool {
	a := in.Applicant
	if a == nil {
		return false
	}
	detailsPresent := a.Bank.AccountNumber != "" && a.Bank.IFSC != "" && a.Bank.HolderName != ""
	return detailsPresent && in.Verifications[models.VerificationBank] == models.JobSucceeded
}

func documentsComplete(in Inputs) bool {
	if len(in.Checklist) == 0 {
		return false
	}
	for _, item := range in.Checklist {
		if item.Mandatory && !item.Uploaded {
			return false
		}
	}
	return true
}
