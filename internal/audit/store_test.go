package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workflow/internal/common/database"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(&database.PostgresClient{DB: db}), mock
}

func TestRecordTransition(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO application_transitions").
		WithArgs(sqlmock.AnyArg(), "app-1", "draft", "submitted", "submit", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordTransition(context.Background(), "app-1", models.StatusDraft, models.StatusSubmitted, "submit")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransition_DatabaseDown(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO application_transitions").
		WillReturnError(errors.New("connection refused"))

	err := store.RecordTransition(context.Background(), "app-1", models.StatusDraft, models.StatusSubmitted, "submit")

	assert.True(t, wferr.IsCode(err, wferr.ErrCodeServiceUnavailable))
}

func TestRecordVerification(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO verification_outcomes").
		WithArgs(sqlmock.AnyArg(), "app-1", "bank", "failed", 4, "name mismatch", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordVerification(context.Background(), &models.VerificationJob{
		ApplicationID: "app-1",
		Kind:          models.VerificationBank,
		State:         models.JobFailed,
		Attempts:      4,
		FailureReason: "name mismatch",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "application_id", "from_status", "to_status", "origin", "occurred_at"}).
		AddRow("t1", "app-1", "draft", "submitted", "submit", now.Add(-2*time.Hour)).
		AddRow("t2", "app-1", "submitted", "under_review", "remote-event", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, application_id, from_status, to_status, origin, occurred_at").
		WithArgs("app-1").
		WillReturnRows(rows)

	history, err := store.History(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusDraft, history[0].FromStatus)
	assert.Equal(t, models.StatusSubmitted, history[0].ToStatus)
	assert.Equal(t, "remote-event", history[1].Origin)
	assert.NoError(t, mock.ExpectationsWereMet())
}
