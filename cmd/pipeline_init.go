package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/identity"
	"github.com/vetdocs/triage/internal/llm"
	"github.com/vetdocs/triage/internal/ocr"
	"github.com/vetdocs/triage/internal/pipeline"
	"github.com/vetdocs/triage/internal/router"
	"github.com/vetdocs/triage/internal/store"
)

// pipelineEnv holds the initialized store, router, and pipeline needed by
// the process/serve/retry commands.
type pipelineEnv struct {
	Store    store.Store
	Router   *router.Router
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// initPipeline sets up the store, OCR backend, classification backend, and
// identity registry, then builds the Pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	gen, err := llm.NewGenerator(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	registry := identity.NewRegistry()
	fileRouter := router.New(cfg.Router.BaseDir, cfg.Pipeline.HighConfidenceThreshold, cfg.Pipeline.LowConfidenceThreshold)

	p := pipeline.New(cfg, st, gen, extractor, registry, fileRouter)

	if err := p.SeedIdentities(ctx, fileRouter); err != nil {
		zap.L().Warn("seeding identities failed, grouping starts cold", zap.Error(err))
	}

	return &pipelineEnv{
		Store:    st,
		Router:   fileRouter,
		Pipeline: p,
	}, nil
}
