// Package audit persists the transition and verification history of an
// application. The log is append-only; nothing in the engine ever updates
// or deletes a row.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loan-workflow/internal/common/database"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/models"
)

// TransitionRecord is one committed state change.
type TransitionRecord struct {
	ID            string                   `json:"id"`
	ApplicationID string                   `json:"applicationId"`
	FromStatus    models.ApplicationStatus `json:"fromStatus"`
	ToStatus      models.ApplicationStatus `json:"toStatus"`
	Origin        string                   `json:"origin"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

// VerificationRecord is one terminal verification outcome.
type VerificationRecord struct {
	ID            string                  `json:"id"`
	ApplicationID string                  `json:"applicationId"`
	Kind          models.VerificationKind `json:"kind"`
	State         models.JobState         `json:"state"`
	Attempts      int                     `json:"attempts"`
	Reason        string                  `json:"reason,omitempty"`
	OccurredAt    time.Time               `json:"occurredAt"`
}

const (
	insertTransitionSQL = `INSERT INTO application_transitions
		(id, application_id, from_status, to_status, origin, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertVerificationSQL = `INSERT INTO verification_outcomes
		(id, application_id, kind, state, attempts, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectHistorySQL = `SELECT id, application_id, from_status, to_status, origin, occurred_at
		FROM application_transitions
		WHERE application_id = $1
		ORDER BY occurred_at ASC`
)

// Store is the Postgres-backed audit log.
type Store struct {
	db *database.PostgresClient
}

func NewStore(db *database.PostgresClient) *Store {
	return &Store{db: db}
}

// RecordTransition appends one state change row.
func (s *Store) RecordTransition(ctx context.Context, applicationID string, from, to models.ApplicationStatus, origin string) error {
	_, err := s.db.Exec(ctx, insertTransitionSQL,
		uuid.NewString(), applicationID, string(from), string(to), origin, time.Now().UTC())
	if err != nil {
		return wferr.NewServiceUnavailable("postgres", err)
	}
	return nil
}

// RecordVerification appends one terminal verification outcome row.
func (s *Store) RecordVerification(ctx context.Context, job *models.VerificationJob) error {
	_, err := s.db.Exec(ctx, insertVerificationSQL,
		uuid.NewString(), job.ApplicationID, string(job.Kind), string(job.State),
		job.Attempts, job.FailureReason, time.Now().UTC())
	if err != nil {
		return wferr.NewServiceUnavailable("postgres", err)
	}
	return nil
}

// History returns the transition rows of an application, oldest first.
func (s *Store) History(ctx context.Context, applicationID string) ([]TransitionRecord, error) {
	rows, err := s.db.Query(ctx, selectHistorySQL, applicationID)
	if err != nil {
		return nil, wferr.NewServiceUnavailable("postgres", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var from, to string
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &from, &to, &rec.Origin, &rec.OccurredAt); err != nil {
			return nil, wferr.NewServiceUnavailable("postgres", err)
		}
		rec.FromStatus = models.ApplicationStatus(from)
		rec.ToStatus = models.ApplicationStatus(to)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wferr.NewServiceUnavailable("postgres", err)
	}
	return out, nil
}
