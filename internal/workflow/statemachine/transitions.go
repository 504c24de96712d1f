// Package statemachine owns the application lifecycle: the legal transition
// graph, gated idempotent submission, and commit side effects (audit,
// notification, metrics).
package statemachine

import "loan-workflow/internal/models"

// legal maps each status to the statuses it may move to. Terminal-adjacent
// states keep a single forward edge; return-to-draft is allowed only while
// the application is still in review.
var legal = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusDraft:       {models.StatusSubmitted},
	models.StatusSubmitted:   {models.StatusUnderReview, models.StatusDraft},
	models.StatusUnderReview: {models.StatusApproved, models.StatusRejected, models.StatusDraft},
	models.StatusApproved:    {models.StatusDisbursed},
	models.StatusRejected:    {},
	models.StatusDisbursed:   {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, next := range legal[from] {
		if next == to {
			return true
		}
	}
	return false
}
