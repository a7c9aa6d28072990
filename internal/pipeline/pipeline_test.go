package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/config"
	"github.com/vetdocs/triage/internal/identity"
	"github.com/vetdocs/triage/internal/llm"
	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/ocr"
	"github.com/vetdocs/triage/internal/resilience"
	"github.com/vetdocs/triage/internal/router"
)

func testConfig(baseDir string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{TimeoutSecs: 5, MaxTokens: 500},
		Pipeline: config.PipelineConfig{
			HighConfidenceThreshold: 0.8,
			LowConfidenceThreshold:  0.6,
			MaxClassifyChars:        4000,
		},
		Router: config.RouterConfig{BaseDir: baseDir},
	}
}

func newTestPipeline(t *testing.T, st *mockStore, gen llm.TextGenerator, extractor ocr.Extractor) (*Pipeline, string) {
	t.Helper()
	baseDir := t.TempDir()
	cfg := testConfig(baseDir)
	fileRouter := router.New(baseDir, cfg.Pipeline.HighConfidenceThreshold, cfg.Pipeline.LowConfidenceThreshold)
	return New(cfg, st, gen, extractor, identity.NewRegistry(), fileRouter), baseDir
}

func permissiveRunExpectations(st *mockStore) {
	st.On("CreateRun", mock.Anything, mock.Anything).Return(&model.Run{ID: "run-1", Status: model.RunStatusQueued}, nil)
	st.On("UpdateRunStatus", mock.Anything, "run-1", mock.Anything).Return(nil)
	st.On("CreateStage", mock.Anything, "run-1", mock.Anything).Return(&model.RunStage{ID: "stage-1"}, nil)
	st.On("CompleteStage", mock.Anything, "stage-1", mock.Anything).Return(nil)
	st.On("SaveExtractedData", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	st.On("RegisterIdentity", mock.Anything, mock.Anything).Return(nil)
}

func TestPipelineRunComplete(t *testing.T) {
	src := filepath.Join(t.TempDir(), "John_Smith_claim.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	st := &mockStore{}
	permissiveRunExpectations(st)

	var saved *model.RunResult
	st.On("UpdateRunResult", mock.Anything, "run-1", mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(2).(*model.RunResult)
	}).Return(nil)

	gen := &stubGenerator{resp: `{"category": "rdl", "confidence": 92, "reasoning": "finality language"}`}
	extractor := &stubExtractor{text: "Dear John Smith,\nService connection is granted for tinnitus."}

	p, baseDir := newTestPipeline(t, st, gen, extractor)
	rec, err := p.Run(context.Background(), src)
	require.NoError(t, err)

	require.NotNil(t, rec.Placement)
	assert.Equal(t, model.CategoryRDL, rec.Category())
	assert.Equal(t, "John_Smith", rec.Resolution.VeteranName)
	assert.Equal(t, model.RouteAutoProcess, rec.Routing.Route)
	assert.FileExists(t, rec.Placement.FinalPath)
	assert.Contains(t, rec.Placement.FinalPath, filepath.Join(baseDir, "John_Smith_docs", "RDL"))
	assert.NoFileExists(t, src)

	require.NotNil(t, saved)
	assert.Empty(t, saved.FailedStage)
	assert.Equal(t, model.CategoryRDL, saved.Category)
	assert.Len(t, saved.Stages, 6)

	st.AssertNotCalled(t, "EnqueueDead", mock.Anything, mock.Anything)
}

func TestPipelineHaltsAfterFailedStage(t *testing.T) {
	st := &mockStore{}
	permissiveRunExpectations(st)

	var saved *model.RunResult
	st.On("UpdateRunResult", mock.Anything, "run-1", mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(2).(*model.RunResult)
	}).Return(nil)

	var dead resilience.DeadDocument
	st.On("EnqueueDead", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		dead = args.Get(1).(resilience.DeadDocument)
	}).Return(nil)

	gen := &stubGenerator{}
	extractor := &stubExtractor{}

	p, _ := newTestPipeline(t, st, gen, extractor)

	// Source file does not exist, so the ocr stage fails validation.
	rec, err := p.Run(context.Background(), "/nonexistent/doc.pdf")
	require.NoError(t, err)

	assert.Equal(t, model.StageStateFailed, rec.Statuses[StageOCR].State)
	assert.Nil(t, rec.Classification, "later stages must not run after a failure")
	assert.Nil(t, rec.Placement)
	assert.Equal(t, 0, gen.calls)

	require.NotNil(t, saved)
	assert.Equal(t, StageOCR, saved.FailedStage)
	assert.Len(t, saved.Stages, 1)

	assert.Equal(t, "doc.pdf", dead.Filename)
	assert.Equal(t, StageOCR, dead.FailedStage)
	assert.Equal(t, 3, dead.MaxRetries)
}

func TestPipelineRejectedStillPlaced(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))

	st := &mockStore{}
	permissiveRunExpectations(st)
	st.On("UpdateRunResult", mock.Anything, "run-1", mock.Anything).Return(nil)

	// Backend down: fallback scores nothing, confidence 0, route rejected.
	gen := &stubGenerator{resp: "garbage"}
	extractor := &stubExtractor{text: "illegible scan output"}

	p, _ := newTestPipeline(t, st, gen, extractor)
	rec, err := p.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, model.RouteRejected, rec.Routing.Route)
	assert.True(t, rec.Routing.Discarded)
	require.NotNil(t, rec.Placement)
	assert.Contains(t, rec.Placement.NewFilename, "low_confidence")
	assert.Contains(t, rec.Placement.FinalPath, identity.UnknownVeteran)
}

func TestSeedIdentities(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "Jane_Doe_docs"), 0o755))

	st := &mockStore{}
	st.On("ListIdentities", mock.Anything).Return([]string{"John_Smith"}, nil)

	cfg := testConfig(baseDir)
	fileRouter := router.New(baseDir, 0.8, 0.6)
	p := New(cfg, st, &stubGenerator{}, &stubExtractor{}, identity.NewRegistry(), fileRouter)

	require.NoError(t, p.SeedIdentities(context.Background(), fileRouter))
	assert.ElementsMatch(t, []string{"John_Smith", "Jane_Doe"}, p.registry.Known())
}
