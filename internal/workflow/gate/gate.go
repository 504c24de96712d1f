// Package gate decides whether an application is ready for submission.
package gate

import (
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/registry"
)

// ReasonCompleteness is reported when the aggregate score is below the
// configured threshold, independent of which steps are missing.
const ReasonCompleteness = "completeness"

// DefaultThreshold is the minimum aggregate score required to submit.
const DefaultThreshold = 80

// Decision is the outcome of a submission check. Reasons is empty when
// Allowed is true; otherwise it names every blocking condition.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons,omitempty"`
}

type Gate struct {
	reg       *registry.Registry
	threshold int
}

func New(reg *registry.Registry, threshold int) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{reg: reg, threshold: threshold}
}

// CanSubmit checks every mandatory applicable step against the snapshot
// and the aggregate score against the threshold. It is a pure function of
// its inputs; callers are expected to pass a freshly evaluated snapshot.
func (g *Gate) CanSubmit(app *models.Application, snap *models.CompletionSnapshot) Decision {
	reasons := make([]string, 0, 4)

	// MandatorySteps is already in display order, so reasons line up with
	// what the navigator shows.
	for _, step := range g.reg.MandatorySteps(app) {
		if !snap.Steps[step.ID] {
			reasons = append(reasons, step.ID)
		}
	}

	if snap.Aggregate < g.threshold {
		reasons = append(reasons, ReasonCompleteness)
	}

	if len(reasons) > 0 {
		return Decision{Allowed: false, Reasons: reasons}
	}
	return Decision{Allowed: true}
}

// Threshold exposes the configured minimum aggregate, mainly for surfacing
// in API responses alongside a blocked decision.
func (g *Gate) Threshold() int {
	return g.threshold
}
