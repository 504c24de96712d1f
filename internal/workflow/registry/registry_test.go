package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workflow/internal/models"
)

func testApp(product string) *models.Application {
	return &models.Application{
		ID:          "app-1",
		ApplicantID: "applicant-1",
		ProductCode: product,
		Status:      models.StatusDraft,
	}
}

func TestListSteps_PropertyOnlyForSecuredProducts(t *testing.T) {
	tests := []struct {
		name        string
		product     string
		wantProp    bool
		wantOrdered []string
	}{
		{
			name:        "home loan includes property",
			product:     models.ProductHomeLoan,
			wantProp:    true,
			wantOrdered: []string{StepPersonal, StepEmployment, StepProperty, StepBank, StepDocuments, StepReview},
		},
		{
			name:        "LAP includes property",
			product:     models.ProductLoanAgainstProp,
			wantProp:    true,
			wantOrdered: []string{StepPersonal, StepEmployment, StepProperty, StepBank, StepDocuments, StepReview},
		},
		{
			name:        "personal loan excludes property",
			product:     models.ProductPersonalLoan,
			wantProp:    false,
			wantOrdered: []string{StepPersonal, StepEmployment, StepBank, StepDocuments, StepReview},
		},
		{
			name:        "unknown product treated as unsecured",
			product:     "GOLD_LOAN",
			wantProp:    false,
			wantOrdered: []string{StepPersonal, StepEmployment, StepBank, StepDocuments, StepReview},
		},
	}

	reg := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := reg.ListSteps(testApp(tt.product))

			ids := make([]string, 0, len(steps))
			for _, s := range steps {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantOrdered, ids)

			gotProp := false
			for _, s := range reg.MandatorySteps(testApp(tt.product)) {
				if s.ID == StepProperty {
					gotProp = true
				}
			}
			assert.Equal(t, tt.wantProp, gotProp)
		})
	}
}

func TestMandatorySteps_ReviewNeverMandatory(t *testing.T) {
	reg := New()
	for _, s := range reg.MandatorySteps(testApp(models.ProductHomeLoan)) {
		assert.NotEqual(t, StepReview, s.ID)
	}
}

func completeApplicant() *models.Applicant {
	return &models.Applicant{
		ID:          "applicant-1",
		FirstName:   "Asha",
		Mobile:      "9876543210",
		PAN:         "ABCDE1234F",
		DateOfBirth: "1990-04-12",
		Address: models.Address{
			Line1:   "14 MG Road",
			City:    "Bengaluru",
			State:   "KA",
			Pincode: "560001",
		},
		Employment: models.Employment{
			Type:          models.EmploymentSalaried,
			Employer:      "Acme Ltd",
			MonthlyIncome: 95000,
		},
		Bank: models.BankDetails{
			AccountNumber: "00123456789",
			IFSC:          "HDFC0000123",
			HolderName:    "Asha K",
		},
	}
}

func TestStepPredicates_TotalOnMissingData(t *testing.T) {
	reg := New()
	app := testApp(models.ProductHomeLoan)

	// Empty inputs must evaluate, never panic, and every step is incomplete.
	in := Inputs{Application: app}
	for _, s := range reg.ListSteps(app) {
		assert.False(t, s.Complete(in), "step %s should be incomplete on empty inputs", s.ID)
	}
}

func TestStepPredicates(t *testing.T) {
	app := testApp(models.ProductHomeLoan)

	baseChecklist := []models.ChecklistItem{
		{Code: "PAN_CARD", Mandatory: true, Uploaded: true},
		{Code: "SALARY_SLIP", Mandatory: true, Uploaded: true},
		{Code: "PHOTO", Mandatory: false, Uploaded: false},
	}
	property := &models.PropertyRecord{
		ApplicationID:  app.ID,
		Address:        models.Address{Line1: "Plot 7", City: "Bengaluru", State: "KA", Pincode: "560002"},
		PropertyType:   "apartment",
		EstimatedValue: 7500000,
	}

	tests := []struct {
		name   string
		stepID string
		mutate func(in *Inputs)
		want   bool
	}{
		{"personal complete", StepPersonal, nil, true},
		{"personal missing mobile", StepPersonal, func(in *Inputs) { in.Applicant.Mobile = "" }, false},
		{"personal missing pincode", StepPersonal, func(in *Inputs) { in.Applicant.Address.Pincode = "" }, false},
		{"employment salaried complete", StepEmployment, nil, true},
		{"employment salaried no income", StepEmployment, func(in *Inputs) { in.Applicant.Employment.MonthlyIncome = 0 }, false},
		{"employment self employed", StepEmployment, func(in *Inputs) {
			in.Applicant.Employment = models.Employment{
				Type: models.EmploymentSelfEmployed, BusinessName: "Asha Traders", AnnualTurnover: 2400000,
			}
		}, true},
		{"employment unknown type", StepEmployment, func(in *Inputs) { in.Applicant.Employment.Type = "retired" }, false},
		{"property complete", StepProperty, nil, true},
		{"property nil record", StepProperty, func(in *Inputs) { in.Property = nil }, false},
		{"property zero value", StepProperty, func(in *Inputs) { in.Property.EstimatedValue = 0 }, false},
		{"bank verified", StepBank, nil, true},
		{"bank details present but unverified", StepBank, func(in *Inputs) {
			in.Verifications[models.VerificationBank] = models.JobPending
		}, false},
		{"bank verification expired", StepBank, func(in *Inputs) {
			in.Verifications[models.VerificationBank] = models.JobExpired
		}, false},
		{"documents all mandatory uploaded", StepDocuments, nil, true},
		{"documents one mandatory missing", StepDocuments, func(in *Inputs) {
			in.Checklist[1].Uploaded = false
		}, false},
		{"documents empty checklist", StepDocuments, func(in *Inputs) { in.Checklist = nil }, false},
		{"review complete when all others are", StepReview, nil, true},
		{"review incomplete when any other is", StepReview, func(in *Inputs) { in.Applicant.FirstName = "" }, false},
	}

	reg := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checklist := make([]models.ChecklistItem, len(baseChecklist))
			copy(checklist, baseChecklist)
			prop := *property
			in := Inputs{
				Application: app,
				Applicant:   completeApplicant(),
				Property:    &prop,
				Checklist:   checklist,
				Verifications: map[models.VerificationKind]models.JobState{
					models.VerificationBank: models.JobSucceeded,
				},
			}
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			var step *Step
			for _, s := range reg.ListSteps(app) {
				if s.ID == tt.stepID {
					step = &s
					break
				}
			}
			require.NotNil(t, step)
			assert.Equal(t, tt.want, step.Complete(in))
		})
	}
}
