package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetdocs/triage/internal/model"
)

func TestCollectDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_claim.pdf", "a_scan.png", "notes.txt", "ignore.docx", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	paths, err := collectDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_scan.png"),
		filepath.Join(dir, "b_claim.pdf"),
		filepath.Join(dir, "notes.txt"),
	}, paths)
}

func TestCollectDocumentsMissingDir(t *testing.T) {
	_, err := collectDocuments(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "read dir")
}

func TestVeteranOf(t *testing.T) {
	rec := model.NewRecord("run-1", "", "claim.pdf")
	assert.Empty(t, veteranOf(rec))

	rec.Resolution = &model.Resolution{VeteranName: "John_Smith"}
	assert.Equal(t, "John_Smith", veteranOf(rec))
}
