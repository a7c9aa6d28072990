package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/ocr"
)

// ocrStage extracts text from the source file. Skipped when the record
// arrives with text already populated (e.g. API callers that submit text
// directly).
type ocrStage struct {
	extractor ocr.Extractor
}

func (s *ocrStage) Name() string { return StageOCR }

func (s *ocrStage) Validate(rec *model.Record) bool {
	if strings.TrimSpace(rec.ExtractedText) != "" {
		return true
	}
	if rec.SourcePath == "" {
		return false
	}
	_, err := os.Stat(rec.SourcePath)
	return err == nil
}

func (s *ocrStage) Run(ctx context.Context, rec *model.Record) error {
	if strings.TrimSpace(rec.ExtractedText) != "" {
		rec.TextLength = len(rec.ExtractedText)
		rec.SetStageStatus(StageOCR, model.StageStateSkipped, "")
		return nil
	}

	if !ocr.SupportedExt(rec.SourcePath) {
		return eris.Errorf("unsupported file type: %s", rec.SourcePath)
	}

	text, err := s.extractor.ExtractText(ctx, rec.SourcePath)
	if err != nil {
		return eris.Wrap(err, "extract text")
	}

	rec.ExtractedText = text
	rec.TextLength = len(text)
	return nil
}
