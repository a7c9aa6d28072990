package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vetdocs/triage/internal/db"
	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS extracted_data (
	key          TEXT PRIMARY KEY,
	extraction   JSONB NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS identities (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dead_documents (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id         TEXT,
	filename       TEXT NOT NULL,
	source_path    TEXT NOT NULL,
	failed_stage   TEXT,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id);
CREATE INDEX IF NOT EXISTS idx_dead_documents_error_type ON dead_documents(error_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) CreateRun(ctx context.Context, filename string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, filename, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, filename, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Filename:  filename,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	status := model.RunStatusComplete
	if result.FailedStage != "" {
		status = model.RunStatusFailed
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var resultNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Filename, &r.Status, &resultNull, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if resultNull != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(*resultNull, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Filename != "" {
		query += fmt.Sprintf(` AND filename = $%d`, argIdx)
		args = append(args, filter.Filename)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var resultNull *[]byte

		if err := rows.Scan(&r.ID, &r.Filename, &r.Status, &resultNull, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if resultNull != nil {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal(*resultNull, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.StageExecRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert stage for run %s", runID)
	}

	return &model.RunStage{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.StageExecRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE run_stages SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete stage %s", stageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("stage not found: %s", stageID)
	}
	return nil
}

func (s *PostgresStore) SaveExtractedData(ctx context.Context, key string, extraction *model.Extraction) error {
	data, err := json.Marshal(extraction)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal extraction")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO extracted_data (key, extraction, extracted_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET extraction = $2, extracted_at = $3`,
		key, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save extracted data %s", key)
}

func (s *PostgresStore) GetExtractedData(ctx context.Context, key string) (*model.Extraction, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT extraction FROM extracted_data WHERE key = $1`,
		key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get extracted data %s", key)
	}

	var ex model.Extraction
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal extraction")
	}
	return &ex, nil
}

func (s *PostgresStore) RegisterIdentity(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identities (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: register identity %s", name)
}

// SeedIdentities bulk-loads names via COPY. Used by backfills where the
// one-row-at-a-time RegisterIdentity would be too slow.
func (s *PostgresStore) SeedIdentities(ctx context.Context, names []string) (int64, error) {
	rows := make([][]any, 0, len(names))
	for _, name := range names {
		rows = append(rows, []any{name})
	}
	return db.CopyFrom(ctx, s.pool, "identities", []string{"name"}, rows)
}

func (s *PostgresStore) ListIdentities(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM identities ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list identities")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan identity")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: list identities iterate")
}

func (s *PostgresStore) EnqueueDead(ctx context.Context, doc resilience.DeadDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_documents
		 (id, run_id, filename, source_path, failed_stage, error, error_type, retry_count, max_retries, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   error = $6, error_type = $7, failed_stage = $5, retry_count = $8, last_failed_at = $11`,
		doc.ID, doc.RunID, doc.Filename, doc.SourcePath, doc.FailedStage,
		doc.Error, doc.ErrorType, doc.RetryCount, doc.MaxRetries,
		doc.CreatedAt, doc.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dead document")
}

func (s *PostgresStore) ListDead(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DeadDocument, error) {
	query := `SELECT id, run_id, filename, source_path, failed_stage, error, error_type, retry_count, max_retries, created_at, last_failed_at
	          FROM dead_documents WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}
	query += ` ORDER BY last_failed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dead documents")
	}
	defer rows.Close()

	var docs []resilience.DeadDocument
	for rows.Next() {
		var d resilience.DeadDocument
		var runID, failedStage *string
		if err := rows.Scan(&d.ID, &runID, &d.Filename, &d.SourcePath, &failedStage,
			&d.Error, &d.ErrorType, &d.RetryCount, &d.MaxRetries,
			&d.CreatedAt, &d.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dead document")
		}
		if runID != nil {
			d.RunID = *runID
		}
		if failedStage != nil {
			d.FailedStage = *failedStage
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list dead documents iterate")
}

func (s *PostgresStore) RemoveDead(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM dead_documents WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dead document")
}

func (s *PostgresStore) CountDead(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM dead_documents`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dead documents")
}
