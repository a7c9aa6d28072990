package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/router"
)

func TestRouteStageValidate(t *testing.T) {
	s := &routeStage{}

	rec := model.NewRecord("run-1", "/tmp/claim.pdf", "claim.pdf")
	assert.False(t, s.Validate(rec))

	rec.Routing = &model.RoutingDecision{Route: model.RouteAutoProcess}
	assert.False(t, s.Validate(rec))

	rec.Resolution = &model.Resolution{VeteranName: "John_Smith"}
	assert.True(t, s.Validate(rec))

	rec.SourcePath = ""
	assert.False(t, s.Validate(rec))
}

func TestRouteStagePlaces(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(t.TempDir(), "claim.pdf")
	require.NoError(t, os.WriteFile(source, []byte("%PDF"), 0o644))

	s := &routeStage{router: router.New(base, 0.8, 0.6)}

	rec := model.NewRecord("run-1", source, "claim.pdf")
	rec.Classification = &model.Classification{Category: model.CategoryRDL, Confidence: 0.92}
	rec.Routing = &model.RoutingDecision{Route: model.RouteAutoProcess}
	rec.Resolution = &model.Resolution{VeteranName: "John_Smith"}

	require.NoError(t, s.Run(context.Background(), rec))
	require.NotNil(t, rec.Placement)
	assert.Contains(t, rec.Placement.FinalPath, filepath.Join("John_Smith_docs", "RDL"))
	assert.FileExists(t, rec.Placement.FinalPath)
	assert.NoFileExists(t, source)
}

func TestRouteStagePlaceFailure(t *testing.T) {
	s := &routeStage{router: router.New(t.TempDir(), 0.8, 0.6)}

	rec := model.NewRecord("run-1", filepath.Join(t.TempDir(), "missing.pdf"), "missing.pdf")
	rec.Classification = &model.Classification{Category: model.CategoryRDL, Confidence: 0.92}
	rec.Routing = &model.RoutingDecision{Route: model.RouteAutoProcess}
	rec.Resolution = &model.Resolution{VeteranName: "John_Smith"}

	err := s.Run(context.Background(), rec)
	assert.ErrorContains(t, err, "place document")
}
