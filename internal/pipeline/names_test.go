package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"dear salutation",
			"Dear John Smith,\nWe have reviewed your claim.",
			[]string{"John Smith"},
		},
		{
			"claimant label",
			"Claimant: Jane Doe\nFile reviewed on 2024-01-01.",
			[]string{"Jane Doe"},
		},
		{
			"lay statement opener",
			"I, Robert Jones, served in the Army from 2001 to 2005.",
			[]string{"Robert Jones"},
		},
		{
			"my name is",
			"My name is Mary Ann Walker and I am writing this statement.",
			[]string{"Mary Ann Walker"},
		},
		{
			"ssn adjacency",
			"James Brown, SSN 123-45-6789",
			[]string{"James Brown"},
		},
		{
			"last comma first",
			"VETERAN NAME: SMITH, John Michael",
			[]string{"John Michael Smith", "John Smith"},
		},
		{
			"duplicates collapsed",
			"Dear John Smith,\nStatement of John Smith follows.",
			[]string{"John Smith"},
		},
		{
			"no names",
			"This document contains no personal identifiers.",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractNames(tt.text))
		})
	}
}

func TestExtractNamesTrimsNoise(t *testing.T) {
	names := extractNames("Examination of: John Smith Medical Record 12345")
	assert.Equal(t, []string{"John Smith"}, names)
}

func TestTitleWords(t *testing.T) {
	assert.Equal(t, "Smith", titleWords("SMITH"))
	assert.Equal(t, "Van Der Berg", titleWords("VAN DER BERG"))
}
