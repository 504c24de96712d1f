package statemachine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workflow/internal/common/database"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/evaluator"
	"loan-workflow/internal/workflow/gate"
	"loan-workflow/internal/workflow/registry"
)

// ==========================
// Fakes
// ==========================

type fakeApps struct {
	mu          sync.Mutex
	app         *models.Application
	submitCalls int
	updateCalls int
}

func (f *fakeApps) Get(_ context.Context, id string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.app == nil || f.app.ID != id {
		return nil, wferr.NewNotFound("application", id)
	}
	clone := *f.app
	return &clone, nil
}

func (f *fakeApps) Create(_ context.Context, app *models.Application) (*models.Application, error) {
	return app, nil
}

func (f *fakeApps) Update(_ context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	f.app.Status = app.Status
	return nil
}

func (f *fakeApps) Submit(_ context.Context, _, _ string) (models.ApplicationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.app.Status = models.StatusSubmitted
	return models.StatusSubmitted, nil
}

type fakeApplicantSvc struct{ applicant *models.Applicant }

func (f *fakeApplicantSvc) Get(_ context.Context, _ string) (*models.Applicant, error) {
	return f.applicant, nil
}
func (f *fakeApplicantSvc) Update(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}

type fakePropertySvc struct{}

func (f *fakePropertySvc) Get(_ context.Context, id string) (*models.PropertyRecord, error) {
	return nil, wferr.NewNotFound("property", id)
}
func (f *fakePropertySvc) CreateOrUpdate(_ context.Context, _ string, _ *models.PropertyRecord) error {
	return nil
}

type fakeDocumentSvc struct{ items []models.ChecklistItem }

func (f *fakeDocumentSvc) GetChecklist(_ context.Context, _ string) ([]models.ChecklistItem, error) {
	return f.items, nil
}
func (f *fakeDocumentSvc) Upload(_ context.Context, _, _ string, _ []byte) error { return nil }

type fakeVerificationReader struct {
	states map[models.VerificationKind]models.JobState
}

func (f *fakeVerificationReader) States(_ context.Context, _ string) (map[models.VerificationKind]models.JobState, error) {
	return f.states, nil
}

type auditRow struct {
	applicationID string
	from, to      models.ApplicationStatus
	origin        string
}

type fakeAudit struct {
	mu   sync.Mutex
	rows []auditRow
}

func (f *fakeAudit) RecordTransition(_ context.Context, applicationID string, from, to models.ApplicationStatus, origin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, auditRow{applicationID, from, to, origin})
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) NotifyTransition(_ context.Context, _ *models.Application, _, _ models.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

// ==========================
// Fixtures
// ==========================

func completeApplicant() *models.Applicant {
	return &models.Applicant{
		ID: "applicant-1", FirstName: "Asha", Mobile: "9876543210",
		PAN: "ABCDE1234F", DateOfBirth: "1990-04-12",
		Address:    models.Address{Line1: "14 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"},
		Employment: models.Employment{Type: models.EmploymentSalaried, Employer: "Acme Ltd", MonthlyIncome: 95000},
		Bank:       models.BankDetails{AccountNumber: "00123456789", IFSC: "HDFC0000123", HolderName: "Asha K"},
	}
}

type machineFixture struct {
	machine  *Machine
	apps     *fakeApps
	audit    *fakeAudit
	notifier *fakeNotifier
}

func newMachineFixture(t *testing.T, status models.ApplicationStatus, complete bool) *machineFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := &database.RedisClient{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rdb.Close() })

	apps := &fakeApps{app: &models.Application{
		ID: "app-1", ApplicantID: "applicant-1",
		ProductCode: models.ProductPersonalLoan, Status: status,
	}}

	verifications := &fakeVerificationReader{states: map[models.VerificationKind]models.JobState{}}
	checklist := []models.ChecklistItem{{Code: "PAN_CARD", Mandatory: true, Uploaded: false}}
	if complete {
		verifications.states[models.VerificationBank] = models.JobSucceeded
		checklist[0].Uploaded = true
	}

	reg := registry.New()
	loader := evaluator.NewLoader(
		reg,
		apps,
		&fakeApplicantSvc{applicant: completeApplicant()},
		&fakePropertySvc{},
		&fakeDocumentSvc{items: checklist},
		verifications,
		logger.NewTestLogger(t),
	)

	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	machine := NewMachine(
		apps,
		gate.New(reg, gate.DefaultThreshold),
		loader,
		rdb,
		audit,
		notifier,
		time.Minute,
		logger.NewTestLogger(t),
	)
	return &machineFixture{machine: machine, apps: apps, audit: audit, notifier: notifier}
}

// ==========================
// Transition graph
// ==========================

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.ApplicationStatus
		to   models.ApplicationStatus
		want bool
	}{
		{"draft to submitted", models.StatusDraft, models.StatusSubmitted, true},
		{"submitted to under review", models.StatusSubmitted, models.StatusUnderReview, true},
		{"under review to approved", models.StatusUnderReview, models.StatusApproved, true},
		{"under review to rejected", models.StatusUnderReview, models.StatusRejected, true},
		{"approved to disbursed", models.StatusApproved, models.StatusDisbursed, true},
		{"return to draft from submitted", models.StatusSubmitted, models.StatusDraft, true},
		{"return to draft from under review", models.StatusUnderReview, models.StatusDraft, true},
		{"no return to draft once approved", models.StatusApproved, models.StatusDraft, false},
		{"no return to draft once rejected", models.StatusRejected, models.StatusDraft, false},
		{"no return to draft once disbursed", models.StatusDisbursed, models.StatusDraft, false},
		{"draft cannot skip to approved", models.StatusDraft, models.StatusApproved, false},
		{"rejected is terminal", models.StatusRejected, models.StatusUnderReview, false},
		{"disbursed is terminal", models.StatusDisbursed, models.StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

// ==========================
// Submission
// ==========================

func TestSubmit_Success(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, true)

	status, err := fx.machine.Submit(context.Background(), "app-1", "key-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, status)
	assert.Equal(t, 1, fx.apps.submitCalls)
	require.Len(t, fx.audit.rows, 1)
	assert.Equal(t, auditRow{"app-1", models.StatusDraft, models.StatusSubmitted, "submit"}, fx.audit.rows[0])
	assert.Equal(t, 1, fx.notifier.calls)
}

func TestSubmit_BlockedByGate(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, false)

	_, err := fx.machine.Submit(context.Background(), "app-1", "key-1")

	require.Error(t, err)
	var we *wferr.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, wferr.ErrCodeSubmissionBlocked, we.Code)
	assert.Contains(t, we.Reasons, "bank")
	assert.Contains(t, we.Reasons, "documents")
	assert.Contains(t, we.Reasons, gate.ReasonCompleteness)
	assert.NotContains(t, we.Reasons, "property")
	assert.Equal(t, 0, fx.apps.submitCalls)
}

func TestSubmit_RequiresIdempotencyKey(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, true)

	_, err := fx.machine.Submit(context.Background(), "app-1", "")

	assert.True(t, wferr.IsCode(err, wferr.ErrCodeValidationFailed))
}

func TestSubmit_RepeatKeyReplaysOutcome(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, true)

	first, err := fx.machine.Submit(context.Background(), "app-1", "key-1")
	require.NoError(t, err)

	// The application is already submitted, so the short-circuit answers
	// before the ledger is consulted. Force the draft state back to prove
	// the replay path alone prevents a second transition.
	fx.apps.mu.Lock()
	fx.apps.app.Status = models.StatusDraft
	fx.apps.mu.Unlock()

	second, err := fx.machine.Submit(context.Background(), "app-1", "key-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fx.apps.submitCalls)
}

func TestSubmit_AlreadySubmittedIsNoOp(t *testing.T) {
	fx := newMachineFixture(t, models.StatusSubmitted, true)

	status, err := fx.machine.Submit(context.Background(), "app-1", "key-2")

	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, status)
	assert.Equal(t, 0, fx.apps.submitCalls)
}

func TestSubmit_FromTerminalStateRejected(t *testing.T) {
	fx := newMachineFixture(t, models.StatusRejected, true)

	_, err := fx.machine.Submit(context.Background(), "app-1", "key-1")

	assert.True(t, wferr.IsCode(err, wferr.ErrCodeInvalidTransition))
}

func TestSubmit_ConcurrentSameKeyCollapsesToOneTransition(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, true)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.machine.Submit(context.Background(), "app-1", "key-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, 1, fx.apps.submitCalls)
}

// ==========================
// Transition and remote events
// ==========================

func TestTransition_HappyPathToDisbursal(t *testing.T) {
	fx := newMachineFixture(t, models.StatusSubmitted, true)
	ctx := context.Background()

	for _, to := range []models.ApplicationStatus{
		models.StatusUnderReview, models.StatusApproved, models.StatusDisbursed,
	} {
		status, err := fx.machine.Transition(ctx, "app-1", to)
		require.NoError(t, err)
		assert.Equal(t, to, status)
	}
	assert.Len(t, fx.audit.rows, 3)
}

func TestTransition_SameStatusIsNoOp(t *testing.T) {
	fx := newMachineFixture(t, models.StatusUnderReview, true)

	status, err := fx.machine.Transition(context.Background(), "app-1", models.StatusUnderReview)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, status)
	assert.Equal(t, 0, fx.apps.updateCalls)
	assert.Empty(t, fx.audit.rows)
}

func TestTransition_ReturnToDraftForCorrection(t *testing.T) {
	fx := newMachineFixture(t, models.StatusUnderReview, true)

	status, err := fx.machine.Transition(context.Background(), "app-1", models.StatusDraft)

	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, status)
}

func TestTransition_TerminalStatesRejectReturns(t *testing.T) {
	for _, from := range []models.ApplicationStatus{
		models.StatusApproved, models.StatusRejected, models.StatusDisbursed,
	} {
		fx := newMachineFixture(t, from, true)

		_, err := fx.machine.Transition(context.Background(), "app-1", models.StatusDraft)

		assert.True(t, wferr.IsCode(err, wferr.ErrCodeInvalidTransition), "from %s", from)
	}
}

func TestTransition_SubmissionMustUseSubmit(t *testing.T) {
	fx := newMachineFixture(t, models.StatusDraft, true)

	_, err := fx.machine.Transition(context.Background(), "app-1", models.StatusSubmitted)

	assert.True(t, wferr.IsCode(err, wferr.ErrCodeValidationFailed))
	assert.Equal(t, 0, fx.apps.updateCalls)
}

func TestApplyRemoteStatus_LegalAdvanceCommits(t *testing.T) {
	fx := newMachineFixture(t, models.StatusSubmitted, true)

	status, err := fx.machine.ApplyRemoteStatus(context.Background(), "app-1", models.StatusUnderReview)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, status)
	require.Len(t, fx.audit.rows, 1)
	assert.Equal(t, "remote-event", fx.audit.rows[0].origin)
}

func TestApplyRemoteStatus_StaleHintIgnored(t *testing.T) {
	fx := newMachineFixture(t, models.StatusUnderReview, true)

	status, err := fx.machine.ApplyRemoteStatus(context.Background(), "app-1", models.StatusSubmitted)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, status, "a stale hint must not downgrade the application")
	assert.Equal(t, 0, fx.apps.updateCalls)
	assert.Empty(t, fx.audit.rows)
}
