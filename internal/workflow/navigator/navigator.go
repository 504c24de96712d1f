// Package navigator projects the registry and a completeness snapshot into
// the ordered step plan a client renders. It is a pure view; it stores no
// progress of its own.
package navigator

import (
	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/registry"
)

// StepState is one row of the rendered plan.
type StepState struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Order    int    `json:"order"`
	Complete bool   `json:"complete"`
	Locked   bool   `json:"locked"`
	Current  bool   `json:"current"`
}

type Navigator struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Navigator {
	return &Navigator{reg: reg}
}

// Plan returns the applicable steps in display order. Current is the first
// incomplete applicable step, or review when everything else is done. All
// steps are locked once the application leaves draft; review stays a
// read-only summary either way.
func (n *Navigator) Plan(app *models.Application, snap *models.CompletionSnapshot) []StepState {
	locked := app.Status != models.StatusDraft
	steps := n.reg.ListSteps(app)

	out := make([]StepState, 0, len(steps))
	currentSet := false
	for _, s := range steps {
		state := StepState{
			ID:       s.ID,
			Label:    s.Label,
			Order:    s.Order,
			Complete: snap.Steps[s.ID],
			Locked:   locked,
		}
		if !currentSet && !state.Complete && s.ID != registry.StepReview {
			state.Current = true
			currentSet = true
		}
		out = append(out, state)
	}

	// Everything done: the review summary is where the user lands.
	if !currentSet {
		for i := range out {
			if out[i].ID == registry.StepReview {
				out[i].Current = true
				break
			}
		}
	}
	return out
}
