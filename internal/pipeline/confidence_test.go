package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/model"
)

func classifiedRecord(category model.Category, confidence float64) *model.Record {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	rec.ExtractedText = "text"
	rec.Classification = &model.Classification{
		Category:   category,
		Confidence: confidence,
		Source:     "model",
	}
	return rec
}

func TestConfidenceRouting(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       model.Route
	}{
		{"well above high", 0.95, model.RouteAutoProcess},
		{"at high threshold", 0.8, model.RouteAutoProcess},
		{"between thresholds", 0.7, model.RouteHumanReview},
		{"at low threshold", 0.6, model.RouteHumanReview},
		{"below low", 0.59, model.RouteRejected},
		{"zero", 0.0, model.RouteRejected},
	}

	stage := &confidenceStage{high: 0.8, low: 0.6}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := classifiedRecord(model.CategoryRDL, tt.confidence)
			require.NoError(t, stage.Run(context.Background(), rec))
			require.NotNil(t, rec.Routing)
			assert.Equal(t, tt.want, rec.Routing.Route)
		})
	}
}

func TestConfidenceDecisionFlags(t *testing.T) {
	stage := &confidenceStage{high: 0.8, low: 0.6}

	t.Run("auto process", func(t *testing.T) {
		rec := classifiedRecord(model.CategoryRDL, 0.9)
		require.NoError(t, stage.Run(context.Background(), rec))
		assert.True(t, rec.Routing.AutoProcessed)
		assert.False(t, rec.Routing.RequiresReview)
		assert.False(t, rec.Routing.Rejected)
		assert.False(t, rec.Routing.Discarded)
	})

	t.Run("human review", func(t *testing.T) {
		rec := classifiedRecord(model.CategoryRDL, 0.7)
		require.NoError(t, stage.Run(context.Background(), rec))
		assert.True(t, rec.Routing.RequiresReview)
		assert.False(t, rec.Routing.AutoProcessed)
		assert.False(t, rec.Routing.Discarded)
	})

	t.Run("rejected is discarded", func(t *testing.T) {
		rec := classifiedRecord(model.CategoryRDL, 0.2)
		require.NoError(t, stage.Run(context.Background(), rec))
		assert.True(t, rec.Routing.Rejected)
		assert.True(t, rec.Routing.Discarded)
		assert.Contains(t, rec.Routing.Reason, "discarded")
	})
}

func TestConfidenceValidate(t *testing.T) {
	stage := &confidenceStage{high: 0.8, low: 0.6}

	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	assert.False(t, stage.Validate(rec), "missing classification")

	rec.Classification = &model.Classification{Category: model.CategoryUnknown}
	assert.False(t, stage.Validate(rec), "unknown category")

	rec.Classification.Category = model.CategoryOther
	assert.True(t, stage.Validate(rec))
}
