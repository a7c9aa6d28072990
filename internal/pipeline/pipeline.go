package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/config"
	"github.com/vetdocs/triage/internal/identity"
	"github.com/vetdocs/triage/internal/llm"
	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/ocr"
	"github.com/vetdocs/triage/internal/resilience"
	"github.com/vetdocs/triage/internal/router"
	"github.com/vetdocs/triage/internal/store"
)

// Pipeline orchestrates the document triage stages.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	stages   []Stage
	registry *identity.Registry
}

// New creates a Pipeline with all dependencies. The circuit breaker is
// shared across documents so a dead backend flips every classification to
// the fallback scorer instead of hammering the API.
func New(
	cfg *config.Config,
	st store.Store,
	gen llm.TextGenerator,
	extractor ocr.Extractor,
	registry *identity.Registry,
	fileRouter *router.Router,
) *Pipeline {
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())

	return &Pipeline{
		cfg:      cfg,
		store:    st,
		registry: registry,
		stages: []Stage{
			&ocrStage{extractor: extractor},
			&classifyStage{
				gen:      gen,
				breaker:  breaker,
				llmCfg:   cfg.LLM,
				model:    cfg.Anthropic.Model,
				maxChars: cfg.Pipeline.MaxClassifyChars,
			},
			&extractStage{store: st},
			&confidenceStage{
				high: cfg.Pipeline.HighConfidenceThreshold,
				low:  cfg.Pipeline.LowConfidenceThreshold,
			},
			&resolveStage{registry: registry, store: st},
			&routeStage{router: fileRouter},
		},
	}
}

// SeedIdentities loads known veteran names from the store and from existing
// veteran folders so grouping survives restarts.
func (p *Pipeline) SeedIdentities(ctx context.Context, fileRouter *router.Router) error {
	names, err := p.store.ListIdentities(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: list identities")
	}
	p.registry.Seed(names)

	folders, err := fileRouter.ListVeteranFolders()
	if err != nil {
		return eris.Wrap(err, "pipeline: list veteran folders")
	}
	p.registry.Seed(folders)

	zap.L().Info("identity registry seeded",
		zap.Int("from_store", len(names)),
		zap.Int("from_folders", len(folders)))
	return nil
}

// Run processes a single document through all stages. Stage failures are
// recorded on the returned record; the error return covers only run
// bookkeeping problems.
func (p *Pipeline) Run(ctx context.Context, sourcePath string) (*model.Record, error) {
	filename := filepath.Base(sourcePath)
	log := zap.L().With(zap.String("document", filename))
	log.Info("pipeline: starting")

	run, err := p.store.CreateRun(ctx, filename)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	rec := model.NewRecord(run.ID, sourcePath, filename)

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	var stageResults []model.StageResult
	for _, st := range p.stages {
		switch st.Name() {
		case StageOCR:
			setStatus(model.RunStatusExtracting)
		case StageClassify:
			setStatus(model.RunStatusClassifying)
		case StageConfidence:
			setStatus(model.RunStatusRouting)
		}

		row, rowErr := p.store.CreateStage(ctx, run.ID, st.Name())
		if rowErr != nil {
			log.Warn("pipeline: failed to create stage row", zap.String("stage", st.Name()), zap.Error(rowErr))
		}

		duration := execute(ctx, st, rec)

		status := rec.Statuses[st.Name()]
		result := &model.StageResult{
			Name:     st.Name(),
			Status:   stageExecStatus(status.State),
			Duration: duration.Milliseconds(),
			Error:    status.Error,
		}
		stageResults = append(stageResults, *result)

		if row != nil {
			_ = p.store.CompleteStage(ctx, row.ID, result)
		}

		if status.State == model.StageStateFailed {
			log.Error("pipeline: halting after failed stage", zap.String("stage", st.Name()))
			break
		}
	}

	result := p.buildResult(rec, stageResults)
	if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}

	if result.FailedStage != "" {
		p.enqueueDead(ctx, rec, result)
	} else {
		log.Info("pipeline: complete",
			zap.String("category", string(result.Category)),
			zap.Float64("confidence", result.Confidence),
			zap.String("route", string(result.Route)),
			zap.String("veteran", result.VeteranName))
	}

	return rec, nil
}

func (p *Pipeline) buildResult(rec *model.Record, stages []model.StageResult) *model.RunResult {
	result := &model.RunResult{
		Category:   rec.Category(),
		Confidence: rec.Confidence(),
		Stages:     stages,
	}
	if rec.Routing != nil {
		result.Route = rec.Routing.Route
	}
	if rec.Resolution != nil {
		result.VeteranName = rec.Resolution.VeteranName
	}
	if rec.Placement != nil {
		result.FinalPath = rec.Placement.FinalPath
	}
	if failed := rec.FailedStage(StageOrder()); failed != "" {
		result.FailedStage = failed
		result.Error = rec.Statuses[failed].Error
	}
	return result
}

func (p *Pipeline) enqueueDead(ctx context.Context, rec *model.Record, result *model.RunResult) {
	now := time.Now().UTC()
	doc := resilience.DeadDocument{
		ID:           uuid.New().String(),
		RunID:        rec.ID,
		Filename:     rec.OriginalFilename,
		SourcePath:   rec.SourcePath,
		FailedStage:  result.FailedStage,
		Error:        result.Error,
		ErrorType:    resilience.ClassifyError(eris.New(result.Error)),
		MaxRetries:   3,
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := p.store.EnqueueDead(ctx, doc); err != nil {
		zap.L().Warn("pipeline: failed to enqueue dead document",
			zap.String("document", rec.OriginalFilename), zap.Error(err))
	}
}

func stageExecStatus(state model.StageState) model.StageExecStatus {
	switch state {
	case model.StageStateFailed:
		return model.StageExecFailed
	case model.StageStateSkipped:
		return model.StageExecSkipped
	default:
		return model.StageExecComplete
	}
}
