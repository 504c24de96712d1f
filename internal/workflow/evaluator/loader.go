// internal/workflow/evaluator/loader.go
package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"loan-workflow/internal/clients"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/registry"
)

// VerificationReader exposes the terminal/pending state of verification jobs
// to the evaluator. Implemented by the verification store.
type VerificationReader interface {
	States(ctx context.Context, applicationID string) (map[models.VerificationKind]models.JobState, error)
}

// Loader refetches every record the evaluator consumes and evaluates them.
// It exists so UI-visible checkmarks always match a fresh recomputation; any
// cached completeness flag is a hint only.
type Loader struct {
	registry      *registry.Registry
	applications  clients.ApplicationService
	applicants    clients.ApplicantService
	properties    clients.PropertyService
	documents     clients.DocumentService
	verifications VerificationReader
	logger        logger.Logger
}

func NewLoader(
	reg *registry.Registry,
	applications clients.ApplicationService,
	applicants clients.ApplicantService,
	properties clients.PropertyService,
	documents clients.DocumentService,
	verifications VerificationReader,
	log logger.Logger,
) *Loader {
	return &Loader{
		registry:      reg,
		applications:  applications,
		applicants:    applicants,
		properties:    properties,
		documents:     documents,
		verifications: verifications,
		logger:        log.WithFields(map[string]interface{}{"component": "snapshot-loader"}),
	}
}

// Load fetches all evaluator inputs for the application. The reads are
// independent and fan out concurrently; the property read is issued only for
// secured products and its absence is tolerated.
func (l *Loader) Load(ctx context.Context, applicationID string) (registry.Inputs, error) {
	app, err := l.applications.Get(ctx, applicationID)
	if err != nil {
		return registry.Inputs{}, err
	}

	in := registry.Inputs{Application: app}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		applicant, err := l.applicants.Get(gctx, app.ApplicantID)
		if err != nil {
			return err
		}
		in.Applicant = applicant
		return nil
	})

	g.Go(func() error {
		checklist, err := l.documents.GetChecklist(gctx, app.ID)
		if err != nil {
			return err
		}
		in.Checklist = checklist
		return nil
	})

	g.Go(func() error {
		states, err := l.verifications.States(gctx, app.ID)
		if err != nil {
			return err
		}
		in.Verifications = states
		return nil
	})

	if models.ProductRequiresProperty(app.ProductCode) {
		g.Go(func() error {
			property, err := l.properties.Get(gctx, app.ID)
			if err != nil {
				if wferr.IsCode(err, wferr.ErrCodeNotFound) {
					// Missing record just means the step is incomplete.
					return nil
				}
				return err
			}
			in.Property = property
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return registry.Inputs{}, err
	}
	return in, nil
}

// Snapshot loads fresh inputs and evaluates them in one call.
func (l *Loader) Snapshot(ctx context.Context, applicationID string) (models.CompletionSnapshot, error) {
	in, err := l.Load(ctx, applicationID)
	if err != nil {
		return models.CompletionSnapshot{}, err
	}
	return Evaluate(l.registry, in), nil
}

// Inputs re-exports the loaded inputs alongside the snapshot for callers that
// need both without a second round of reads.
func (l *Loader) InputsAndSnapshot(ctx context.Context, applicationID string) (registry.Inputs, models.CompletionSnapshot, error) {
	in, err := l.Load(ctx, applicationID)
	if err != nil {
		return registry.Inputs{}, models.CompletionSnapshot{}, err
	}
	return in, Evaluate(l.registry, in), nil
}
