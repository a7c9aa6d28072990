package model

import "time"

// StageState is the terminal status a stage leaves on a record.
type StageState string

const (
	StageStateSuccess StageState = "success"
	StageStateFailed  StageState = "failed"
	StageStateSkipped StageState = "skipped"
)

// StageStatus records how a single stage finished for one document.
type StageStatus struct {
	State StageState `json:"state"`
	Error string     `json:"error,omitempty"`
}

// Record is the accumulator threaded through the pipeline. Each stage fills
// in its own result slot and never touches the slots of other stages; a nil
// slot means the stage has not run. Stage statuses are additive and a failed
// status stops the orchestrator from invoking later stages.
type Record struct {
	ID               string    `json:"id"`
	SourcePath       string    `json:"source_path,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	ReceivedAt       time.Time `json:"received_at"`

	ExtractedText string `json:"extracted_text,omitempty"`
	TextLength    int    `json:"text_length"`

	Classification *Classification  `json:"classification,omitempty"`
	Extraction     *Extraction      `json:"extraction,omitempty"`
	Routing        *RoutingDecision `json:"routing,omitempty"`
	Resolution     *Resolution      `json:"resolution,omitempty"`
	Placement      *Placement       `json:"placement,omitempty"`

	Statuses map[string]StageStatus `json:"statuses"`
}

// NewRecord creates a Record for a single input document.
func NewRecord(id, sourcePath, originalFilename string) *Record {
	return &Record{
		ID:               id,
		SourcePath:       sourcePath,
		OriginalFilename: originalFilename,
		ReceivedAt:       time.Now().UTC(),
		Statuses:         make(map[string]StageStatus),
	}
}

// SetStageStatus records the terminal state of a stage.
func (r *Record) SetStageStatus(stage string, state StageState, errMsg string) {
	if r.Statuses == nil {
		r.Statuses = make(map[string]StageStatus)
	}
	r.Statuses[stage] = StageStatus{State: state, Error: errMsg}
}

// StageFailed returns true if the named stage recorded a failure.
func (r *Record) StageFailed(stage string) bool {
	return r.Statuses[stage].State == StageStateFailed
}

// FailedStage returns the name of the first failed stage in the given order,
// or "" when none failed.
func (r *Record) FailedStage(order []string) string {
	for _, name := range order {
		if r.StageFailed(name) {
			return name
		}
	}
	return ""
}

// Category returns the classified category, or CategoryUnknown before the
// classifier stage has run.
func (r *Record) Category() Category {
	if r.Classification == nil {
		return CategoryUnknown
	}
	return r.Classification.Category
}

// Confidence returns the normalized classifier confidence, 0.0 before the
// classifier stage has run.
func (r *Record) Confidence() float64 {
	if r.Classification == nil {
		return 0.0
	}
	return r.Classification.Confidence
}

// Resolution holds the name-resolution stage output.
type Resolution struct {
	VeteranName string `json:"veteran_name"` // sanitized grouping identity
	RawName     string `json:"raw_name,omitempty"`
	NameSource  string `json:"name_source"` // primary_name, names, form_field, filename, fallback
	Grouped     bool   `json:"grouped"`     // matched a previously known identity
}

// Placement holds the file-routing stage output.
type Placement struct {
	FinalPath      string `json:"final_path"`
	FinalDirectory string `json:"final_directory"`
	NewFilename    string `json:"new_filename"`
}
