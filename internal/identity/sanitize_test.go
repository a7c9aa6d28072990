package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "John Smith", "John_Smith"},
		{"last comma first", "SMITH, JOHN", "John_Smith"},
		{"honorific", "Dr. Jane Doe", "Jane_Doe"},
		{"hyphen", "Jean-Luc Picard", "Jean_Luc_Picard"},
		{"apostrophe", "Sean O'Connor", "Sean_O_Connor"},
		{"suffix dot dropped", "John Smith Jr.", "John_Smith_Jr"},
		{"extra whitespace", "  John   Smith  ", "John_Smith"},
		{"empty", "", UnknownVeteran},
		{"single char", "J", UnknownVeteran},
		{"leading digit", "1John", UnknownVeteran},
		{"punctuation only", "...", UnknownVeteran},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeDeterministic(t *testing.T) {
	first := Sanitize("SMITH, JOHN")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Sanitize("SMITH, JOHN"))
	}
}
