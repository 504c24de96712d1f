// Package evaluator computes per-step completeness and the aggregate
// percentage from fresh collaborator snapshots. The snapshot is always
// derived, never stored as the source of truth.
package evaluator

import (
	"time"

	"loan-workflow/internal/common/metrics"
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/registry"
)

// Evaluate computes the completion snapshot for the inputs. Deterministic and
// total: missing optional data yields an incomplete step, never an error.
// The aggregate counts only mandatory steps applicable to the current
// product, so a product change mid-flow changes the denominator; callers must
// re-evaluate rather than reuse an old snapshot.
func Evaluate(reg *registry.Registry, in registry.Inputs) models.CompletionSnapshot {
	started := time.Now()

	snap := models.CompletionSnapshot{
		Steps:       make(map[string]bool),
		EvaluatedAt: started.UTC(),
	}
	if in.Application != nil {
		snap.ProductCode = in.Application.ProductCode
	}
	if in.Verifications == nil {
		in.Verifications = map[models.VerificationKind]models.JobState{}
	}

	mandatory, complete := 0, 0
	for _, step := range reg.ListSteps(in.Application) {
		done := step.Complete(in)
		snap.Steps[step.ID] = done
		if step.Mandatory {
			mandatory++
			if done {
				complete++
			}
		}
	}

	if mandatory > 0 {
		snap.Aggregate = complete * 100 / mandatory
	}

	metrics.EvaluationDuration.Observe(time.Since(started).Seconds())
	return snap
}
