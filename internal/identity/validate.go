// Package identity validates, normalizes, and groups veteran names so that
// every document for the same person lands in the same folder.
package identity

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// honorifics stripped before word counting and sanitization.
var honorifics = []string{"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Lt.", "Col.", "Maj.", "Sgt.", "Cpl."}

// rejectPatterns match form-field artifacts and OCR noise that frequently
// show up where a name should be. Applied to the uppercased candidate.
var rejectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(VETERAN|NAME|FULL|FIRST|LAST|MIDDLE)$`),
	regexp.MustCompile(`^(CLAIMANT|PATIENT|SERVICE|MEMBER)$`),
	regexp.MustCompile(`^(FILE|CLAIM|CASE|DOC|DOCUMENT)$`),
	regexp.MustCompile(`^(TEMP|UPLOAD|TEST|EXAMPLE|SAMPLE)$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`[0-9]{3,}`),
	regexp.MustCompile(`[@#$%^&*()]`),
	regexp.MustCompile(`(\.PDF|\.DOC|\.TXT)$`),
}

// nameWordPattern accepts standard name tokens plus apostrophes (O'Connor),
// hyphens (Jean-Luc), and trailing periods (Jr.).
var nameWordPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z'.\-]*[A-Za-z.]?$`)

// IsValidHumanName reports whether the candidate looks like an actual person's
// name rather than a form label or filename fragment.
func IsValidHumanName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 50 {
		return false
	}

	clean := stripHonorific(name)
	clean = flipLastFirst(clean)

	words := strings.Fields(clean)
	if len(words) < 2 {
		return false
	}

	upper := strings.ToUpper(name)
	for _, re := range rejectPatterns {
		if re.MatchString(upper) {
			return false
		}
	}

	for _, word := range words {
		if !nameWordPattern.MatchString(word) {
			return false
		}
	}

	// Mostly letters once whitespace is removed.
	var letters, total int
	for _, r := range clean {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total > 0 && float64(letters)/float64(total) < 0.8 {
		return false
	}

	return true
}

func stripHonorific(name string) string {
	for _, title := range honorifics {
		if strings.HasPrefix(name, title) {
			return strings.TrimSpace(name[len(title):])
		}
	}
	return name
}

// flipLastFirst converts "Smith, John" into "John Smith".
func flipLastFirst(name string) string {
	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		return first + " " + last
	}
	return name
}

var filenameSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(temp|upload|file|document|doc|pdf)`),
	regexp.MustCompile(`^\d+`),
	regexp.MustCompile(`^(rdl|rcs|rds|medical|va|form)`),
}

var filenameNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z][a-z]+_[A-Z][a-z]+)`),
	regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)`),
}

// FromFilename extracts a candidate name from a filename like
// "John_Smith_claim.pdf". Returns "" when the filename is clearly not
// name-bearing (scanner output, category prefixes, numeric IDs).
func FromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	lower := strings.ToLower(base)
	for _, re := range filenameSkipPatterns {
		if re.MatchString(lower) {
			return ""
		}
	}

	for _, re := range filenameNamePatterns {
		if m := re.FindString(base); m != "" {
			return strings.ReplaceAll(m, "_", " ")
		}
	}
	return ""
}
