package store

import (
	"context"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/resilience"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the triage pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, filename string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error

	// Extracted data, keyed by the sanitized source filename
	SaveExtractedData(ctx context.Context, key string, extraction *model.Extraction) error
	GetExtractedData(ctx context.Context, key string) (*model.Extraction, error)

	// Veteran identities
	RegisterIdentity(ctx context.Context, name string) error
	ListIdentities(ctx context.Context) ([]string, error)

	// Dead letter queue
	EnqueueDead(ctx context.Context, doc resilience.DeadDocument) error
	ListDead(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DeadDocument, error)
	RemoveDead(ctx context.Context, id string) error
	CountDead(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
