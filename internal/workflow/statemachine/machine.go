package statemachine

import (
	"context"
	"fmt"
	"time"

	"loan-workflow/internal/clients"
	"loan-workflow/internal/common/database"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/common/metrics"
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/evaluator"
	"loan-workflow/internal/workflow/gate"
)

// submissionPending marks an in-flight reservation before the outcome status
// is recorded under the same key.
const submissionPending = "__pending__"

// AuditLog appends committed transitions to durable storage.
type AuditLog interface {
	RecordTransition(ctx context.Context, applicationID string, from, to models.ApplicationStatus, origin string) error
}

// Notifier informs the applicant of a committed transition. Delivery is best
// effort; failures never roll a transition back.
type Notifier interface {
	NotifyTransition(ctx context.Context, app *models.Application, from, to models.ApplicationStatus) error
}

// Machine coordinates lifecycle changes against the owning application
// service. It holds no application state of its own.
type Machine struct {
	applications   clients.ApplicationService
	gate           *gate.Gate
	loader         *evaluator.Loader
	redis          *database.RedisClient
	audit          AuditLog
	notifier       Notifier
	idempotencyTTL time.Duration
	logger         logger.Logger
}

func NewMachine(
	applications clients.ApplicationService,
	g *gate.Gate,
	loader *evaluator.Loader,
	redis *database.RedisClient,
	audit AuditLog,
	notifier Notifier,
	idempotencyTTL time.Duration,
	log logger.Logger,
) *Machine {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &Machine{
		applications:   applications,
		gate:           g,
		loader:         loader,
		redis:          redis,
		audit:          audit,
		notifier:       notifier,
		idempotencyTTL: idempotencyTTL,
		logger:         log.WithFields(map[string]interface{}{"component": "state-machine"}),
	}
}

func submissionKey(applicationID, idempotencyKey string) string {
	return fmt.Sprintf("submission:%s:%s", applicationID, idempotencyKey)
}

// Submit drives draft -> submitted. The gate is checked against a freshly
// loaded snapshot, never a cached one. A repeated (applicationID, key) pair
// replays the recorded outcome; concurrent duplicates collapse to one
// transition via the SetNX reservation.
func (m *Machine) Submit(ctx context.Context, applicationID, idempotencyKey string) (models.ApplicationStatus, error) {
	if idempotencyKey == "" {
		metrics.SubmissionAttempts.WithLabelValues("rejected").Inc()
		return "", wferr.NewValidationFailed("idempotency key is required")
	}

	app, err := m.applications.Get(ctx, applicationID)
	if err != nil {
		return "", err
	}

	switch app.Status {
	case models.StatusDraft:
		// proceed
	case models.StatusSubmitted:
		// Submitting twice is a no-op, not an error.
		metrics.SubmissionAttempts.WithLabelValues("duplicate").Inc()
		return models.StatusSubmitted, nil
	default:
		metrics.SubmissionAttempts.WithLabelValues("rejected").Inc()
		return "", wferr.NewInvalidTransition(string(app.Status), string(models.StatusSubmitted))
	}

	snap, err := m.loader.Snapshot(ctx, applicationID)
	if err != nil {
		return "", err
	}
	if decision := m.gate.CanSubmit(app, &snap); !decision.Allowed {
		m.logger.Info("submission blocked", map[string]interface{}{
			"application_id": applicationID,
			"aggregate":      snap.Aggregate,
			"reasons":        decision.Reasons,
		})
		metrics.SubmissionAttempts.WithLabelValues("blocked").Inc()
		return "", wferr.NewSubmissionBlocked(decision.Reasons)
	}

	key := submissionKey(applicationID, idempotencyKey)
	won, err := m.redis.SetNX(ctx, key, submissionPending, m.idempotencyTTL)
	if err != nil {
		return "", wferr.NewServiceUnavailable("redis", err)
	}
	if !won {
		return m.replaySubmission(ctx, applicationID, key)
	}

	status, err := m.applications.Submit(ctx, applicationID, idempotencyKey)
	if err != nil {
		// Release the reservation so a later retry with the same key can
		// attempt the transition again.
		if delErr := m.redis.Del(ctx, key); delErr != nil {
			m.logger.Warn("failed to release submission reservation", map[string]interface{}{
				"key": key, "error": delErr.Error(),
			})
		}
		metrics.SubmissionAttempts.WithLabelValues("error").Inc()
		return "", err
	}

	if err := m.redis.Set(ctx, key, string(status), m.idempotencyTTL); err != nil {
		m.logger.Warn("failed to record submission outcome", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}

	m.commitEffects(ctx, app, models.StatusDraft, status, "submit")
	metrics.SubmissionAttempts.WithLabelValues("accepted").Inc()
	return status, nil
}

// replaySubmission handles a losing duplicate: the recorded outcome is
// returned when present; while the winner is still in flight, the current
// status is returned without a second transition.
func (m *Machine) replaySubmission(ctx context.Context, applicationID, key string) (models.ApplicationStatus, error) {
	metrics.SubmissionAttempts.WithLabelValues("duplicate").Inc()

	recorded, err := m.redis.Get(ctx, key)
	if err == nil && recorded != submissionPending {
		return models.ApplicationStatus(recorded), nil
	}

	app, err := m.applications.Get(ctx, applicationID)
	if err != nil {
		return "", err
	}
	return app.Status, nil
}

// Transition moves the application along one legal edge. A same-status
// request is a no-op; draft -> submitted must go through Submit so the gate
// and idempotency ledger apply.
func (m *Machine) Transition(ctx context.Context, applicationID string, to models.ApplicationStatus) (models.ApplicationStatus, error) {
	app, err := m.applications.Get(ctx, applicationID)
	if err != nil {
		return "", err
	}
	from := app.Status

	if from == to {
		return from, nil
	}
	if !CanTransition(from, to) {
		return "", wferr.NewInvalidTransition(string(from), string(to))
	}
	if from == models.StatusDraft && to == models.StatusSubmitted {
		return "", wferr.NewValidationFailed("submission requires an idempotency key; use Submit")
	}

	app.Status = to
	if err := m.applications.Update(ctx, app); err != nil {
		return "", err
	}

	m.commitEffects(ctx, app, from, to, "transition")
	return to, nil
}

// ApplyRemoteStatus ingests a pushed status event. The reported status is a
// hint: the authoritative record is re-read first, and a hint that does not
// advance the application along a legal edge is ignored rather than applied.
func (m *Machine) ApplyRemoteStatus(ctx context.Context, applicationID string, reported models.ApplicationStatus) (models.ApplicationStatus, error) {
	app, err := m.applications.Get(ctx, applicationID)
	if err != nil {
		return "", err
	}

	if app.Status == reported {
		return app.Status, nil
	}
	if !CanTransition(app.Status, reported) {
		m.logger.Warn("ignoring stale status event", map[string]interface{}{
			"application_id": applicationID,
			"current":        string(app.Status),
			"reported":       string(reported),
		})
		return app.Status, nil
	}

	from := app.Status
	app.Status = reported
	if err := m.applications.Update(ctx, app); err != nil {
		return "", err
	}

	m.commitEffects(ctx, app, from, reported, "remote-event")
	return reported, nil
}

// commitEffects runs the post-commit side effects. None of them can undo the
// transition, so failures are logged and swallowed.
func (m *Machine) commitEffects(ctx context.Context, app *models.Application, from, to models.ApplicationStatus, origin string) {
	metrics.StateTransitions.WithLabelValues(string(from), string(to)).Inc()

	if m.audit != nil {
		if err := m.audit.RecordTransition(ctx, app.ID, from, to, origin); err != nil {
			m.logger.Error("failed to append transition audit row", map[string]interface{}{
				"application_id": app.ID, "from": string(from), "to": string(to), "error": err.Error(),
			})
		}
	}
	if m.notifier != nil {
		if err := m.notifier.NotifyTransition(ctx, app, from, to); err != nil {
			m.logger.Warn("transition notification failed", map[string]interface{}{
				"application_id": app.ID, "to": string(to), "error": err.Error(),
			})
		}
	}

	m.logger.Info("application transition committed", map[string]interface{}{
		"application_id": app.ID,
		"from":           string(from),
		"to":             string(to),
		"origin":         origin,
	})
}
