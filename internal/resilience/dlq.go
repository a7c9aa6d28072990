package resilience

import "time"

// DeadDocument represents a document whose pipeline run failed at a stage
// boundary. Entries live in the store and can be reprocessed once the
// underlying condition clears.
type DeadDocument struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Filename     string    `json:"filename"`
	SourcePath   string    `json:"source_path,omitempty"`
	FailedStage  string    `json:"failed_stage"`
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (d *DeadDocument) CanRetry() bool {
	return d.RetryCount < d.MaxRetries
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Limit     int    `json:"limit,omitempty"`
}
