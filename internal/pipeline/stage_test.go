package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/vetdocs/triage/internal/model"
)

// fakeStage is a configurable Stage for orchestration tests.
type fakeStage struct {
	name     string
	valid    bool
	runErr   error
	panicMsg string
	ran      bool
}

func (f *fakeStage) Name() string                    { return f.name }
func (f *fakeStage) Validate(rec *model.Record) bool { return f.valid }
func (f *fakeStage) Run(ctx context.Context, rec *model.Record) error {
	f.ran = true
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.runErr
}

func TestExecuteSuccess(t *testing.T) {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	st := &fakeStage{name: "classification", valid: true}

	execute(context.Background(), st, rec)

	assert.True(t, st.ran)
	assert.Equal(t, model.StageStateSuccess, rec.Statuses["classification"].State)
}

func TestExecuteValidationFailure(t *testing.T) {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	st := &fakeStage{name: "classification", valid: false}

	execute(context.Background(), st, rec)

	assert.False(t, st.ran, "Run must not be called when validation fails")
	status := rec.Statuses["classification"]
	assert.Equal(t, model.StageStateFailed, status.State)
	assert.Contains(t, status.Error, "invalid input")
}

func TestExecuteRunError(t *testing.T) {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	st := &fakeStage{name: "routing", valid: true, runErr: eris.New("disk full")}

	execute(context.Background(), st, rec)

	status := rec.Statuses["routing"]
	assert.Equal(t, model.StageStateFailed, status.State)
	assert.Contains(t, status.Error, "disk full")
}

func TestExecuteRecoversPanic(t *testing.T) {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	st := &fakeStage{name: "data_extraction", valid: true, panicMsg: "boom"}

	assert.NotPanics(t, func() {
		execute(context.Background(), st, rec)
	})
	status := rec.Statuses["data_extraction"]
	assert.Equal(t, model.StageStateFailed, status.State)
	assert.Contains(t, status.Error, "boom")
}

func TestExecutePreservesSelfRecordedState(t *testing.T) {
	rec := model.NewRecord("run-1", "/tmp/doc.pdf", "doc.pdf")
	rec.ExtractedText = "already present"
	st := &ocrStage{}

	execute(context.Background(), st, rec)

	assert.Equal(t, model.StageStateSkipped, rec.Statuses[StageOCR].State)
}

func TestStageOrder(t *testing.T) {
	assert.Equal(t, []string{
		StageOCR, StageClassify, StageExtract, StageConfidence, StageResolve, StageRoute,
	}, StageOrder())
}
