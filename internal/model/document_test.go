package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
		ok   bool
	}{
		{"rdl", CategoryRDL, true},
		{"RDL", CategoryRDL, true},
		{"Rating Decision Letter", CategoryRDL, true},
		{"rating decision sheet", CategoryRDS, true},
		{"rating claim statement", CategoryRCS, true},
		{"medical evidence", CategoryMedicalEvidence, true},
		{"medical_evidence", CategoryMedicalEvidence, true},
		{"MedicalEvidence", CategoryMedicalEvidence, true},
		{"VA Forms", CategoryVAForms, true},
		{"va form", CategoryVAForms, true},
		{"lay statement", CategoryLayStatement, true},
		{"personal information", CategoryPersonalInfo, true},
		{"other", CategoryOther, true},
		{"  rdl  ", CategoryRDL, true},
		{"mystery document", "", false},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeCategory(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range CategoriesByPriority() {
		assert.True(t, ValidCategory(c), string(c))
	}
	assert.False(t, ValidCategory(CategoryUnknown))
	assert.False(t, ValidCategory(Category("garbage")))
}

func TestCategoriesByPriorityOrder(t *testing.T) {
	got := CategoriesByPriority()
	require.Len(t, got, 8)
	assert.Equal(t, CategoryRDL, got[0])
	assert.Equal(t, CategoryRDS, got[1])
	assert.Equal(t, CategoryRCS, got[2])
	assert.Equal(t, CategoryOther, got[7])
}

func TestDirectoryName(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryRDL, "RDL"},
		{CategoryRDS, "RDS"},
		{CategoryRCS, "RCS"},
		{CategoryMedicalEvidence, "Medical_Evidence"},
		{CategoryVAForms, "VA_Forms"},
		{CategoryLayStatement, "Lay_Statements"},
		{CategoryPersonalInfo, "Personal_Info"},
		{CategoryOther, "Other"},
		{CategoryUnknown, "Other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.category.DirectoryName(), string(tt.category))
	}
}
