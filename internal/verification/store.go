package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loan-workflow/internal/common/database"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/models"
)

const (
	jobKeyPrefix    = "verification:"
	pendingGuardFmt = "verification-pending:%s:%s"
)

func jobKey(applicationID string, kind models.VerificationKind) string {
	return fmt.Sprintf("%s%s:%s", jobKeyPrefix, applicationID, kind)
}

func guardKey(applicationID string, kind models.VerificationKind) string {
	return fmt.Sprintf(pendingGuardFmt, applicationID, kind)
}

// Store persists verification jobs in Redis. A per-(application, kind)
// SetNX guard enforces the single non-terminal job invariant without a
// read-modify-write race.
type Store struct {
	redis *database.RedisClient
	// jobTTL bounds how long a record is kept at all, including terminal
	// results shown back to the user.
	jobTTL time.Duration
}

func NewStore(redis *database.RedisClient, jobTTL time.Duration) *Store {
	if jobTTL <= 0 {
		jobTTL = 24 * time.Hour
	}
	return &Store{redis: redis, jobTTL: jobTTL}
}

// Create claims the pending slot for the job's (application, kind) pair and
// persists it. A second non-terminal job for the same pair is a conflict.
func (s *Store) Create(ctx context.Context, job *models.VerificationJob) error {
	claimed, err := s.redis.SetNX(ctx, guardKey(job.ApplicationID, job.Kind), job.ID, s.jobTTL)
	if err != nil {
		return wferr.NewServiceUnavailable("redis", err)
	}
	if !claimed {
		return wferr.NewConflict(fmt.Sprintf("a %s verification is already in progress", job.Kind))
	}
	return s.write(ctx, job)
}

// Update persists the job; reaching a terminal state releases the pending
// guard so a fresh attempt can start.
func (s *Store) Update(ctx context.Context, job *models.VerificationJob) error {
	if err := s.write(ctx, job); err != nil {
		return err
	}
	if job.State.Terminal() {
		if err := s.redis.Del(ctx, guardKey(job.ApplicationID, job.Kind)); err != nil {
			return wferr.NewServiceUnavailable("redis", err)
		}
	}
	return nil
}

// Delete removes the job and its guard. Used to roll back a job whose
// external kickoff call failed.
func (s *Store) Delete(ctx context.Context, applicationID string, kind models.VerificationKind) error {
	if err := s.redis.Del(ctx, jobKey(applicationID, kind), guardKey(applicationID, kind)); err != nil {
		return wferr.NewServiceUnavailable("redis", err)
	}
	return nil
}

// Get returns the stored job for the pair, or NOT_FOUND.
func (s *Store) Get(ctx context.Context, applicationID string, kind models.VerificationKind) (*models.VerificationJob, error) {
	raw, err := s.redis.Get(ctx, jobKey(applicationID, kind))
	if err == redis.Nil {
		return nil, wferr.NewNotFound("verification job", fmt.Sprintf("%s/%s", applicationID, kind))
	}
	if err != nil {
		return nil, wferr.NewServiceUnavailable("redis", err)
	}
	var job models.VerificationJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, wferr.NewValidationFailed(fmt.Sprintf("corrupt verification job record: %v", err))
	}
	return &job, nil
}

// States returns the per-kind job state for an application. Kinds without a
// job are simply absent; the evaluator treats absence as not verified.
func (s *Store) States(ctx context.Context, applicationID string) (map[models.VerificationKind]models.JobState, error) {
	out := make(map[models.VerificationKind]models.JobState, 3)
	for _, kind := range []models.VerificationKind{
		models.VerificationBank, models.VerificationBureau, models.VerificationIdentity,
	} {
		job, err := s.Get(ctx, applicationID, kind)
		if err != nil {
			if wferr.IsCode(err, wferr.ErrCodeNotFound) {
				continue
			}
			return nil, err
		}
		out[kind] = job.State
	}
	return out, nil
}

// ListPending returns every stored non-terminal job. Only the sweeper walks
// the whole keyspace; per-request paths always address a single key.
func (s *Store) ListPending(ctx context.Context) ([]*models.VerificationJob, error) {
	keys, err := s.redis.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return nil, wferr.NewServiceUnavailable("redis", err)
	}

	var out []*models.VerificationJob
	for _, key := range keys {
		raw, err := s.redis.Get(ctx, key)
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, wferr.NewServiceUnavailable("redis", err)
		}
		var job models.VerificationJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// A corrupt record must not wedge the sweep.
			continue
		}
		if !job.State.Terminal() {
			out = append(out, &job)
		}
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, job *models.VerificationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return wferr.NewValidationFailed(fmt.Sprintf("marshal verification job: %v", err))
	}
	if err := s.redis.Set(ctx, jobKey(job.ApplicationID, job.Kind), string(raw), s.jobTTL); err != nil {
		return wferr.NewServiceUnavailable("redis", err)
	}
	return nil
}
