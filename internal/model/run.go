package model

import "time"

// RunStatus represents the current state of a document processing run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusExtracting  RunStatus = "extracting_text"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusRouting     RunStatus = "routing"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run represents a single pipeline run for one input document.
type Run struct {
	ID        string     `json:"id"`
	Filename  string     `json:"filename"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Category    Category      `json:"category"`
	Confidence  float64       `json:"confidence"`
	Route       Route         `json:"route"`
	VeteranName string        `json:"veteran_name"`
	FinalPath   string        `json:"final_path,omitempty"`
	Stages      []StageResult `json:"stages"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// StageExecStatus represents the current state of a pipeline stage.
type StageExecStatus string

const (
	StageExecRunning  StageExecStatus = "running"
	StageExecComplete StageExecStatus = "complete"
	StageExecFailed   StageExecStatus = "failed"
	StageExecSkipped  StageExecStatus = "skipped"
)

// RunStage represents one stage execution within a run.
type RunStage struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Name      string          `json:"name"`
	Status    StageExecStatus `json:"status"`
	Result    *StageResult    `json:"result,omitempty"`
	StartedAt time.Time       `json:"started_at"`
}

// StageResult holds the outcome of a single stage execution.
type StageResult struct {
	Name     string          `json:"name"`
	Status   StageExecStatus `json:"status"`
	Duration int64           `json:"duration_ms"`
	Error    string          `json:"error,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}
