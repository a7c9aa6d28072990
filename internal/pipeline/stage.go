// Package pipeline runs a document through the fixed stage sequence:
// ocr, classification, data extraction, confidence routing, name resolution,
// file routing. Stages record their outcome on the shared record; the
// orchestrator halts after the first failed stage and never panics out to
// the caller.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/model"
)

// Stage names in execution order.
const (
	StageOCR        = "ocr"
	StageClassify   = "classification"
	StageExtract    = "data_extraction"
	StageConfidence = "confidence"
	StageResolve    = "name_resolution"
	StageRoute      = "routing"
)

// StageOrder returns the fixed execution order.
func StageOrder() []string {
	return []string{StageOCR, StageClassify, StageExtract, StageConfidence, StageResolve, StageRoute}
}

// Stage is one step of the pipeline. Validate gates execution; Run mutates
// the record in place and returns an error only for failures that should
// halt the pipeline.
type Stage interface {
	Name() string
	Validate(rec *model.Record) bool
	Run(ctx context.Context, rec *model.Record) error
}

// execute runs one stage with validation, panic recovery, and status
// bookkeeping. A validation failure or error is recorded as a failed status
// on the record, never raised. Returns the stage duration.
func execute(ctx context.Context, st Stage, rec *model.Record) time.Duration {
	name := st.Name()
	log := zap.L().With(zap.String("stage", name), zap.String("document", rec.OriginalFilename))

	start := time.Now()
	err := func() (runErr error) {
		defer func() {
			if r := recover(); r != nil {
				runErr = eris.Errorf("panic: %v", r)
			}
		}()
		if !st.Validate(rec) {
			return eris.Errorf("invalid input for stage %s", name)
		}
		log.Info("stage starting")
		return st.Run(ctx, rec)
	}()
	duration := time.Since(start)

	if err != nil {
		rec.SetStageStatus(name, model.StageStateFailed, err.Error())
		log.Error("stage failed", zap.Duration("duration", duration), zap.Error(err))
		return duration
	}

	// A stage may record its own terminal state (e.g. skipped).
	if _, ok := rec.Statuses[name]; !ok {
		rec.SetStageStatus(name, model.StageStateSuccess, "")
	}
	log.Info("stage complete", zap.Duration("duration", duration))
	return duration
}
