package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/model"
)

// stubExtractor returns canned text or an error.
type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestOCRStageExtracts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	ex := &stubExtractor{text: "extracted content"}
	stage := &ocrStage{extractor: ex}
	rec := model.NewRecord("run-1", path, "doc.pdf")

	require.NoError(t, stage.Run(context.Background(), rec))
	assert.Equal(t, "extracted content", rec.ExtractedText)
	assert.Equal(t, len("extracted content"), rec.TextLength)
	assert.Equal(t, 1, ex.calls)
}

func TestOCRStageSkipsPrepopulatedText(t *testing.T) {
	ex := &stubExtractor{}
	stage := &ocrStage{extractor: ex}

	rec := model.NewRecord("run-1", "", "doc.pdf")
	rec.ExtractedText = "submitted directly"

	require.NoError(t, stage.Run(context.Background(), rec))
	assert.Equal(t, 0, ex.calls)
	assert.Equal(t, model.StageStateSkipped, rec.Statuses[StageOCR].State)
	assert.Equal(t, len("submitted directly"), rec.TextLength)
}

func TestOCRStageUnsupportedExtension(t *testing.T) {
	stage := &ocrStage{extractor: &stubExtractor{}}
	rec := model.NewRecord("run-1", "/tmp/archive.zip", "archive.zip")

	err := stage.Run(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestOCRStageValidate(t *testing.T) {
	stage := &ocrStage{extractor: &stubExtractor{}}

	t.Run("missing file", func(t *testing.T) {
		rec := model.NewRecord("run-1", "/nonexistent/doc.pdf", "doc.pdf")
		assert.False(t, stage.Validate(rec))
	})

	t.Run("no source path", func(t *testing.T) {
		rec := model.NewRecord("run-1", "", "doc.pdf")
		assert.False(t, stage.Validate(rec))
	})

	t.Run("prepopulated text", func(t *testing.T) {
		rec := model.NewRecord("run-1", "", "doc.pdf")
		rec.ExtractedText = "text"
		assert.True(t, stage.Validate(rec))
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.pdf")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		rec := model.NewRecord("run-1", path, "doc.pdf")
		assert.True(t, stage.Validate(rec))
	})
}
