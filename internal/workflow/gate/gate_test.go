package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loan-workflow/internal/models"
	"loan-workflow/internal/workflow/registry"
)

func snapshotFor(product string, steps map[string]bool) *models.CompletionSnapshot {
	complete, total := 0, 0
	reg := registry.New()
	app := &models.Application{ProductCode: product}
	for _, s := range reg.MandatorySteps(app) {
		total++
		if steps[s.ID] {
			complete++
		}
	}
	aggregate := 0
	if total > 0 {
		aggregate = complete * 100 / total
	}
	return &models.CompletionSnapshot{
		ProductCode: product,
		Steps:       steps,
		Aggregate:   aggregate,
		EvaluatedAt: time.Now(),
	}
}

func TestCanSubmit_AllCompleteAllowed(t *testing.T) {
	g := New(registry.New(), DefaultThreshold)
	app := &models.Application{ProductCode: models.ProductHomeLoan}
	snap := snapshotFor(models.ProductHomeLoan, map[string]bool{
		"personal": true, "employment": true, "property": true, "bank": true, "documents": true,
	})

	d := g.CanSubmit(app, snap)

	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reasons)
}

func TestCanSubmit_ListsEveryIncompleteMandatoryStep(t *testing.T) {
	g := New(registry.New(), DefaultThreshold)
	app := &models.Application{ProductCode: models.ProductHomeLoan}
	snap := snapshotFor(models.ProductHomeLoan, map[string]bool{
		"personal": true, "employment": true,
	})

	d := g.CanSubmit(app, snap)

	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"property", "bank", "documents", ReasonCompleteness}, d.Reasons)
}

func TestCanSubmit_IncompleteDocumentsBlocks(t *testing.T) {
	// Four of five mandatory steps done: aggregate is 80, at threshold, so
	// only the step itself blocks.
	g := New(registry.New(), DefaultThreshold)
	app := &models.Application{ProductCode: models.ProductHomeLoan}
	snap := snapshotFor(models.ProductHomeLoan, map[string]bool{
		"personal": true, "employment": true, "property": true, "bank": true,
	})

	d := g.CanSubmit(app, snap)

	assert.False(t, d.Allowed)
	assert.Equal(t, []string{"documents"}, d.Reasons)
	assert.Equal(t, 80, snap.Aggregate)
}

func TestCanSubmit_PropertyNeverBlocksUnsecured(t *testing.T) {
	g := New(registry.New(), DefaultThreshold)
	app := &models.Application{ProductCode: models.ProductPersonalLoan}
	snap := snapshotFor(models.ProductPersonalLoan, map[string]bool{
		"personal": true, "employment": true,
	})

	d := g.CanSubmit(app, snap)

	assert.False(t, d.Allowed)
	assert.NotContains(t, d.Reasons, "property")
	assert.Contains(t, d.Reasons, "bank")
	assert.Contains(t, d.Reasons, "documents")
}

func TestCanSubmit_ThresholdFallsBackToDefault(t *testing.T) {
	g := New(registry.New(), 0)
	assert.Equal(t, DefaultThreshold, g.Threshold())
}

func TestCanSubmit_CustomThreshold(t *testing.T) {
	// With the bar raised to 100, a step at 80 fails on completeness alone.
	g := New(registry.New(), 100)
	app := &models.Application{ProductCode: models.ProductHomeLoan}
	snap := snapshotFor(models.ProductHomeLoan, map[string]bool{
		"personal": true, "employment": true, "property": true, "bank": true,
	})

	d := g.CanSubmit(app, snap)

	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reasons, ReasonCompleteness)
}
