package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS extracted_data (
	key          TEXT PRIMARY KEY,
	extraction   TEXT NOT NULL,
	extracted_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS identities (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dead_documents (
	id             TEXT PRIMARY KEY,
	run_id         TEXT,
	filename       TEXT NOT NULL,
	source_path    TEXT NOT NULL,
	failed_stage   TEXT,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id);
CREATE INDEX IF NOT EXISTS idx_dead_documents_error_type ON dead_documents(error_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, filename string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, filename, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, filename, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Filename:  filename,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	status := model.RunStatusComplete
	if result.FailedStage != "" {
		status = model.RunStatusFailed
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Filename != "" {
		query += ` AND filename = ?`
		args = append(args, filter.Filename)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.StageExecRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert stage for run %s", runID)
	}

	return &model.RunStage{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.StageExecRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stage result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_stages SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete stage %s", stageID)
	}
	return checkRowsAffected(res, "stage", stageID)
}

func (s *SQLiteStore) SaveExtractedData(ctx context.Context, key string, extraction *model.Extraction) error {
	data, err := json.Marshal(extraction)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal extraction")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extracted_data (key, extraction, extracted_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET extraction = excluded.extraction, extracted_at = excluded.extracted_at`,
		key, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save extracted data %s", key)
}

func (s *SQLiteStore) GetExtractedData(ctx context.Context, key string) (*model.Extraction, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT extraction FROM extracted_data WHERE key = ?`,
		key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get extracted data %s", key)
	}

	var ex model.Extraction
	if err := json.Unmarshal([]byte(data), &ex); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal extraction")
	}
	return &ex, nil
}

func (s *SQLiteStore) RegisterIdentity(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: register identity %s", name)
}

func (s *SQLiteStore) ListIdentities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM identities ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list identities")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan identity")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list identities iterate")
}

func (s *SQLiteStore) EnqueueDead(ctx context.Context, doc resilience.DeadDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_documents
		 (id, run_id, filename, source_path, failed_stage, error, error_type, retry_count, max_retries, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type, failed_stage = excluded.failed_stage,
		   retry_count = excluded.retry_count, last_failed_at = excluded.last_failed_at`,
		doc.ID, doc.RunID, doc.Filename, doc.SourcePath, doc.FailedStage,
		doc.Error, doc.ErrorType, doc.RetryCount, doc.MaxRetries,
		doc.CreatedAt, doc.LastFailedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue dead document")
}

func (s *SQLiteStore) ListDead(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DeadDocument, error) {
	query := `SELECT id, run_id, filename, source_path, failed_stage, error, error_type, retry_count, max_retries, created_at, last_failed_at
	          FROM dead_documents WHERE 1=1`
	var args []any

	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	query += ` ORDER BY last_failed_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dead documents")
	}
	defer rows.Close()

	var docs []resilience.DeadDocument
	for rows.Next() {
		var d resilience.DeadDocument
		var runID, failedStage sql.NullString
		if err := rows.Scan(&d.ID, &runID, &d.Filename, &d.SourcePath, &failedStage,
			&d.Error, &d.ErrorType, &d.RetryCount, &d.MaxRetries,
			&d.CreatedAt, &d.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dead document")
		}
		d.RunID = runID.String
		d.FailedStage = failedStage.String
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list dead documents iterate")
}

func (s *SQLiteStore) RemoveDead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_documents WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dead document")
}

func (s *SQLiteStore) CountDead(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_documents`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dead documents")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Filename, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
