// Package verification drives the asynchronous third-party checks: bank
// account penny-drop, credit bureau pull, and e-KYC with OTP. Jobs are
// persisted in Redis and polled by per-job goroutines on an injectable
// clock.
package verification

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"loan-workflow/internal/clients"
	"loan-workflow/internal/common/config"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/common/metrics"
	"loan-workflow/internal/common/observability"
	"loan-workflow/internal/models"
)

// pennyDropAmount is the token amount used to prove account ownership.
const pennyDropAmount = 1.0

// TerminalFunc is invoked after a job reaches a terminal state, typically to
// recompute the completeness snapshot.
type TerminalFunc func(ctx context.Context, job *models.VerificationJob)

// Orchestrator owns the verification job lifecycle: kickoff, polling,
// resume after restart, cancellation, and OTP submission.
type Orchestrator struct {
	store        *Store
	applications clients.ApplicationService
	applicants   clients.ApplicantService
	bank         clients.BankVerifier
	bureau       clients.BureauClient
	ekyc         clients.EKYCClient
	cfg          config.VerificationConfig
	clock        Clock
	onTerminal   TerminalFunc
	obs          *observability.Observability
	logger       logger.Logger

	rootCtx  context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	watchers map[string]*watcher
}

// watcher identifies one polling goroutine. The token makes detach safe
// against a poller that was canceled and replaced under the same key; done
// lets Cancel wait for the goroutine to actually exit.
type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOrchestrator(
	store *Store,
	applications clients.ApplicationService,
	applicants clients.ApplicantService,
	bank clients.BankVerifier,
	bureau clients.BureauClient,
	ekyc clients.EKYCClient,
	cfg config.VerificationConfig,
	clock Clock,
	onTerminal TerminalFunc,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	if clock == nil {
		clock = NewClock()
	}
	rootCtx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:        store,
		applications: applications,
		applicants:   applicants,
		bank:         bank,
		bureau:       bureau,
		ekyc:         ekyc,
		cfg:          cfg,
		clock:        clock,
		onTerminal:   onTerminal,
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "verification-orchestrator"}),
		rootCtx:      rootCtx,
		shutdown:     cancel,
		watchers:     make(map[string]*watcher),
	}
}

func watcherKey(applicationID string, kind models.VerificationKind) string {
	return applicationID + ":" + string(kind)
}

func (o *Orchestrator) kindConfig(kind models.VerificationKind) config.VerificationKindConfig {
	switch kind {
	case models.VerificationBureau:
		return o.cfg.Bureau
	case models.VerificationIdentity:
		return o.cfg.Identity
	default:
		return o.cfg.Bank
	}
}

// StartJob kicks off a verification of the given kind. The pending-slot
// claim in the store makes a duplicate start a CONFLICT; the external
// kickoff call happens only after the slot is held, and a kickoff failure
// releases it again.
func (o *Orchestrator) StartJob(ctx context.Context, applicationID string, kind models.VerificationKind) (*models.VerificationJob, error) {
	if !kind.Valid() {
		return nil, wferr.NewValidationFailed(fmt.Sprintf("unknown verification kind %q", kind))
	}

	app, err := o.applications.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	applicant, err := o.applicants.Get(ctx, app.ApplicantID)
	if err != nil {
		return nil, err
	}

	kindCfg := o.kindConfig(kind)
	now := o.clock.Now()
	job := &models.VerificationJob{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Kind:          kind,
		State:         models.JobPending,
		MaxAttempts:   kindCfg.MaxAttempts,
		PollInterval:  kindCfg.Interval(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.store.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := o.kickoff(ctx, job, applicant); err != nil {
		o.rollback(applicationID, kind, "kickoff failure")
		return nil, err
	}

	if err := o.store.Update(ctx, job); err != nil {
		o.rollback(applicationID, kind, "job write failure")
		return nil, err
	}

	metrics.VerificationJobsStarted.WithLabelValues(string(kind)).Inc()
	o.watch(job)
	// The poller owns job from here; the caller gets a detached copy.
	out := *job
	return &out, nil
}

// rollback releases the pending-slot claim after a failed start. It uses the
// root context: the request context may already be dead, and a leaked claim
// would lock the kind out until the sweep's TTL elapses.
func (o *Orchestrator) rollback(applicationID string, kind models.VerificationKind, cause string) {
	if err := o.store.Delete(o.rootCtx, applicationID, kind); err != nil {
		o.logger.Error("failed to roll back job after "+cause, map[string]interface{}{
			"application_id": applicationID, "kind": string(kind), "error": err.Error(),
		})
	}
}

func (o *Orchestrator) kickoff(ctx context.Context, job *models.VerificationJob, applicant *models.Applicant) error {
	switch job.Kind {
	case models.VerificationBank:
		requestID, err := o.bank.PennyDrop(ctx, applicant.Bank.AccountNumber, applicant.Bank.IFSC, pennyDropAmount)
		if err != nil {
			return err
		}
		job.ExternalRequestID = requestID
	case models.VerificationBureau:
		requestID, err := o.bureau.Pull(ctx, applicant.PAN, applicant.DateOfBirth, applicant.Mobile)
		if err != nil {
			return err
		}
		job.ExternalRequestID = requestID
	case models.VerificationIdentity:
		sessionID, err := o.ekyc.Start(ctx, applicant.ID, applicant.PAN, applicant.Mobile)
		if err != nil {
			return err
		}
		job.SessionID = sessionID
		job.ExternalRequestID = sessionID
	}
	return nil
}

// Status returns the stored job for the pair.
func (o *Orchestrator) Status(ctx context.Context, applicationID string, kind models.VerificationKind) (*models.VerificationJob, error) {
	if !kind.Valid() {
		return nil, wferr.NewValidationFailed(fmt.Sprintf("unknown verification kind %q", kind))
	}
	return o.store.Get(ctx, applicationID, kind)
}

// Resume re-attaches a poller to an existing non-terminal job, e.g. when the
// user returns to the screen. It never starts a duplicate: an already-watched
// or terminal job is returned as-is.
func (o *Orchestrator) Resume(ctx context.Context, applicationID string, kind models.VerificationKind) (*models.VerificationJob, error) {
	job, err := o.store.Get(ctx, applicationID, kind)
	if err != nil {
		return nil, err
	}
	if job.State.Terminal() {
		return job, nil
	}
	o.watch(job)
	out := *job
	return &out, nil
}

// Cancel stops the polling goroutine for the pair. Job state is untouched;
// the job can be resumed later.
func (o *Orchestrator) Cancel(applicationID string, kind models.VerificationKind) bool {
	o.mu.Lock()
	key := watcherKey(applicationID, kind)
	w, ok := o.watchers[key]
	if ok {
		w.cancel()
		delete(o.watchers, key)
	}
	o.mu.Unlock()
	if !ok {
		return false
	}
	<-w.done
	return true
}

// SubmitOTP forwards the user's OTP for the identity job. An incorrect OTP
// is a retryable outcome and leaves the job pending; a verified one
// completes the job immediately instead of waiting for the next poll.
func (o *Orchestrator) SubmitOTP(ctx context.Context, applicationID, otp string) error {
	job, err := o.store.Get(ctx, applicationID, models.VerificationIdentity)
	if err != nil {
		return err
	}
	if job.State.Terminal() {
		return wferr.NewConflict(fmt.Sprintf("identity verification already %s", job.State))
	}

	verified, err := o.ekyc.SubmitOTP(ctx, job.SessionID, otp)
	if err != nil {
		return err
	}
	if !verified {
		return wferr.NewIncorrectOTP()
	}

	o.Cancel(applicationID, models.VerificationIdentity)
	o.finish(ctx, job, models.JobSucceeded, "")
	return nil
}

// SweepExpired expires still-pending jobs older than the configured TTL.
// It covers jobs orphaned by a process restart mid-poll; wired to the cron
// schedule in main.
func (o *Orchestrator) SweepExpired(ctx context.Context) (int, error) {
	jobs, err := o.store.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := o.clock.Now().Add(-o.cfg.TTL())
	swept := 0
	for _, job := range jobs {
		if !job.CreatedAt.Before(cutoff) {
			continue
		}
		if o.watched(job.ApplicationID, job.Kind) {
			// A live poller owns this job; expiry is its call to make.
			continue
		}
		o.finish(ctx, job, models.JobExpired, "orphaned by restart")
		swept++
	}
	if swept > 0 {
		o.logger.Info("swept orphaned verification jobs", map[string]interface{}{"count": swept})
	}
	return swept, nil
}

// Shutdown stops every poller and waits for them to exit.
func (o *Orchestrator) Shutdown() {
	o.shutdown()
	o.wg.Wait()
}

// ==========================
// Polling
// ==========================

// watch starts the polling goroutine for the job unless one is already
// attached.
func (o *Orchestrator) watch(job *models.VerificationJob) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := watcherKey(job.ApplicationID, job.Kind)
	if _, ok := o.watchers[key]; ok {
		return
	}

	ctx, cancel := context.WithCancel(o.rootCtx)
	w := &watcher{cancel: cancel, done: make(chan struct{})}
	o.watchers[key] = w

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(w.done)
		defer o.detach(key, w)
		o.poll(ctx, job)
	}()
}

func (o *Orchestrator) watched(applicationID string, kind models.VerificationKind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.watchers[watcherKey(applicationID, kind)]
	return ok
}

// detach removes the entry only if it still belongs to this poller; a
// canceled poller must not evict its replacement.
func (o *Orchestrator) detach(key string, w *watcher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.watchers[key] == w {
		delete(o.watchers, key)
	}
}

// poll repeatedly checks the collaborator until a terminal answer or the
// attempt budget runs out. A pending answer past maxAttempts is expired, not
// failed: the check may still conclude upstream, the user is told to check
// back later.
func (o *Orchestrator) poll(ctx context.Context, job *models.VerificationJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(job.PollInterval):
		}
		// A tick may race cancellation; cancellation wins.
		select {
		case <-ctx.Done():
			return
		default:
		}

		job.Attempts++
		start := o.clock.Now()
		state, reason := o.check(ctx, job)
		if o.obs != nil {
			o.obs.RecordPoll(ctx, string(job.Kind), string(state))
			o.obs.RecordPollDuration(ctx, o.clock.Now().Sub(start), string(job.Kind))
		}
		metrics.VerificationPolls.WithLabelValues(string(job.Kind), string(state)).Inc()

		if state.Terminal() {
			o.finish(ctx, job, state, reason)
			return
		}

		if job.Attempts >= job.MaxAttempts {
			o.finish(ctx, job, models.JobExpired, "polling attempts exhausted")
			return
		}

		job.UpdatedAt = o.clock.Now()
		if err := o.store.Update(ctx, job); err != nil {
			o.logger.Warn("failed to persist poll progress", map[string]interface{}{
				"application_id": job.ApplicationID, "kind": string(job.Kind), "error": err.Error(),
			})
		}
	}
}

// check asks the collaborator once. Transport-level failures (timeouts,
// outages, rate limits) are indeterminate: they consume an attempt but do
// not fail the job.
func (o *Orchestrator) check(ctx context.Context, job *models.VerificationJob) (models.JobState, string) {
	var (
		status clients.VerificationStatus
		reason string
		err    error
	)

	switch job.Kind {
	case models.VerificationBank:
		var res clients.StatusResult
		res, err = o.bank.Status(ctx, job.ExternalRequestID)
		status, reason = res.Status, res.Reason
	case models.VerificationBureau:
		var rep clients.BureauReport
		rep, err = o.bureau.Report(ctx, job.ExternalRequestID)
		status, reason = rep.Status, rep.Reason
	case models.VerificationIdentity:
		var res clients.StatusResult
		res, err = o.ekyc.Status(ctx, job.SessionID)
		status, reason = res.Status, res.Reason
	}

	if err != nil {
		o.logger.Warn("verification poll errored", map[string]interface{}{
			"application_id": job.ApplicationID,
			"kind":           string(job.Kind),
			"attempt":        job.Attempts,
			"error":          err.Error(),
		})
		return models.JobPending, ""
	}

	switch status {
	case clients.StatusCheckSuccess:
		return models.JobSucceeded, ""
	case clients.StatusCheckFailed:
		return models.JobFailed, reason
	default:
		return models.JobPending, ""
	}
}

// finish commits the terminal state and fires the recompute callback. It
// uses the root context so a canceled request cannot lose the outcome.
func (o *Orchestrator) finish(_ context.Context, job *models.VerificationJob, state models.JobState, reason string) {
	job.State = state
	job.FailureReason = reason
	job.UpdatedAt = o.clock.Now()

	if err := o.store.Update(o.rootCtx, job); err != nil {
		o.logger.Error("failed to persist terminal verification state", map[string]interface{}{
			"application_id": job.ApplicationID, "kind": string(job.Kind), "state": string(state), "error": err.Error(),
		})
	}
	metrics.VerificationJobsFinished.WithLabelValues(string(job.Kind), string(state)).Inc()

	o.logger.Info("verification finished", map[string]interface{}{
		"application_id": job.ApplicationID,
		"kind":           string(job.Kind),
		"state":          string(state),
		"attempts":       job.Attempts,
	})

	if o.onTerminal != nil {
		o.onTerminal(o.rootCtx, job)
	}
}
