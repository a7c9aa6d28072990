package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/resilience"
	"github.com/vetdocs/triage/internal/store"
)

// mockStore is a testify mock of store.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, filename string) (*model.Run, error) {
	args := m.Called(ctx, filename)
	if run, ok := args.Get(0).(*model.Run); ok {
		return run, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return m.Called(ctx, runID, status).Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	return m.Called(ctx, runID, result).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if run, ok := args.Get(0).(*model.Run); ok {
		return run, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if runs, ok := args.Get(0).([]model.Run); ok {
		return runs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CreateStage(ctx context.Context, runID, name string) (*model.RunStage, error) {
	args := m.Called(ctx, runID, name)
	if stage, ok := args.Get(0).(*model.RunStage); ok {
		return stage, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	return m.Called(ctx, stageID, result).Error(0)
}

func (m *mockStore) SaveExtractedData(ctx context.Context, key string, extraction *model.Extraction) error {
	return m.Called(ctx, key, extraction).Error(0)
}

func (m *mockStore) GetExtractedData(ctx context.Context, key string) (*model.Extraction, error) {
	args := m.Called(ctx, key)
	if ex, ok := args.Get(0).(*model.Extraction); ok {
		return ex, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) RegisterIdentity(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockStore) ListIdentities(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if names, ok := args.Get(0).([]string); ok {
		return names, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) EnqueueDead(ctx context.Context, doc resilience.DeadDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockStore) ListDead(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DeadDocument, error) {
	args := m.Called(ctx, filter)
	if docs, ok := args.Get(0).([]resilience.DeadDocument); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) RemoveDead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CountDead(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
