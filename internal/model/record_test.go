package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordStageStatuses(t *testing.T) {
	r := NewRecord("run-1", "/tmp/claim.pdf", "claim.pdf")

	r.SetStageStatus("ocr", StageStateSuccess, "")
	r.SetStageStatus("classification", StageStateFailed, "backend down")

	assert.False(t, r.StageFailed("ocr"))
	assert.True(t, r.StageFailed("classification"))
	assert.False(t, r.StageFailed("routing"))
}

func TestRecordFailedStage(t *testing.T) {
	order := []string{"ocr", "classification", "routing"}

	r := NewRecord("run-1", "", "claim.pdf")
	assert.Empty(t, r.FailedStage(order))

	r.SetStageStatus("classification", StageStateFailed, "boom")
	r.SetStageStatus("routing", StageStateFailed, "boom")
	assert.Equal(t, "classification", r.FailedStage(order))
}

func TestRecordSetStageStatusNilMap(t *testing.T) {
	r := &Record{}
	r.SetStageStatus("ocr", StageStateSkipped, "")
	assert.Equal(t, StageStateSkipped, r.Statuses["ocr"].State)
}

func TestRecordCategoryAndConfidence(t *testing.T) {
	r := NewRecord("run-1", "", "claim.pdf")
	assert.Equal(t, CategoryUnknown, r.Category())
	assert.Zero(t, r.Confidence())

	r.Classification = &Classification{Category: CategoryRDL, Confidence: 0.92}
	assert.Equal(t, CategoryRDL, r.Category())
	assert.Equal(t, 0.92, r.Confidence())
}

func TestExtractionFields(t *testing.T) {
	var nilEx *Extraction
	assert.Empty(t, nilEx.Field("veteran_name"))

	e := &Extraction{}
	assert.Empty(t, e.Field("veteran_name"))

	assert.True(t, e.SetField("veteran_name", "John Smith"))
	assert.False(t, e.SetField("veteran_name", "Jane Doe"))
	assert.Equal(t, "John Smith", e.Field("veteran_name"))
}
