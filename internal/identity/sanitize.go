package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownVeteran is the fallback folder name when no valid human name can be
// resolved for a document.
const UnknownVeteran = "Unknown_Veteran"

var titleCaser = cases.Title(language.English)

// Sanitize converts a raw name into a filesystem-safe token: honorifics
// stripped, "Last, First" flipped and title-cased, spaces and punctuation
// collapsed to single underscores. Falls back to UnknownVeteran when the
// result is degenerate.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownVeteran
	}

	name = stripHonorific(name)

	if idx := strings.Index(name, ","); idx >= 0 {
		last := titleCaser.String(strings.TrimSpace(name[:idx]))
		first := titleCaser.String(strings.TrimSpace(name[idx+1:]))
		name = first + " " + last
	}

	var sb strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '\'':
			sb.WriteRune('_')
		}
		// Dots and any other punctuation dropped.
	}

	sanitized := sb.String()
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if len(sanitized) < 2 {
		return UnknownVeteran
	}
	if unicode.IsDigit(rune(sanitized[0])) {
		return UnknownVeteran
	}
	return sanitized
}
