package pipeline

import (
	"regexp"
	"strings"
)

// namePart matches a capitalized full name like "John Smith" or
// "Mary Ann Walker".
const namePart = `[A-Z][a-z]+(?:\s+[A-Z][a-z]*)*\s+[A-Z][a-z]+`

// Contextual name patterns keyed to the phrasing of each document family:
// decision letters ("Dear ..."), claim correspondence ("Claimant: ..."),
// medical records ("Patient: ..."), lay statements ("I, ..., served"), and
// generic markers (SSN/DOB adjacency). Matched in order; duplicates dropped.
var contextNamePatterns = compileAll(
	`VETERAN'?S?\s+(?:FULL\s+)?NAME[:\s]*(`+namePart+`)`,
	`Dear\s+(`+namePart+`)`,
	`Veteran:\s*(`+namePart+`)`,
	`This\s+letter\s+is\s+to\s+inform\s+(`+namePart+`)`,
	`We\s+have\s+(?:granted|denied).*?(`+namePart+`)`,
	`Claimant[:\s]*(`+namePart+`)`,
	`Service\s+Member[:\s]*(`+namePart+`)`,
	`File\s+(?:of|for)[:\s]*(`+namePart+`)`,
	`VA\s+File\s+Number.*?(`+namePart+`)`,
	`Your\s+claim.*?(`+namePart+`)`,
	`Patient[:\s]*(`+namePart+`)`,
	`Patient\s+Name[:\s]*(`+namePart+`)`,
	`Medical\s+Record\s+for[:\s]*(`+namePart+`)`,
	`Examination\s+of[:\s]*(`+namePart+`)`,
	`FULL\s+NAME[:\s]*(`+namePart+`)`,
	`I,\s+(`+namePart+`),\s+(?:am|was|served)`,
	`My\s+name\s+is\s+(`+namePart+`)`,
	`Statement\s+(?:of|by)\s+(`+namePart+`)`,
	`RE[:\s]*(`+namePart+`)`,
	`(`+namePart+`)\s*,?\s*SSN`,
	`(`+namePart+`)\s*,?\s*DOB`,
)

// lastFirstPatterns capture "LAST, First" shapes; the two groups are
// reassembled as "First Last" with the surname title-cased.
var lastFirstPatterns = compileAll(
	`VETERAN'?S?\s+(?:FULL\s+)?NAME[:\s]*([A-Z]+),\s*([A-Z][a-z]+(?:\s+[A-Z]?[a-z]*)*)`,
	`NAME[:\s]*([A-Z][A-Z\s]+),\s*([A-Z][a-z]+)`,
	`([A-Z][A-Z]+),\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]*)*)`,
)

// nameNoiseSuffix trims trailing field labels captured with a name, like
// "John Smith Medical Record".
var nameNoiseSuffix = regexp.MustCompile(`(?i)\s+(Medical|Record|Number|SSN|DOB|File|Patient).*$`)

var nameStopWords = []string{"veteran", "name", "dear", "patient", "record", "medical"}

// extractNames collects candidate veteran names from the document text in
// first-seen order.
func extractNames(text string) []string {
	var raw []string

	for _, re := range contextNamePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw = append(raw, m[1])
		}
	}

	for _, re := range lastFirstPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			last := strings.TrimSpace(m[1])
			first := strings.TrimSpace(m[2])
			raw = append(raw, first+" "+titleWords(last))
		}
	}

	var names []string
	seen := make(map[string]struct{})
	for _, candidate := range raw {
		name := strings.Join(strings.Fields(candidate), " ")
		name = strings.TrimSpace(nameNoiseSuffix.ReplaceAllString(name, ""))
		if len(strings.Fields(name)) < 2 || len(name) <= 3 {
			continue
		}
		if containsStopWord(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func containsStopWord(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range nameStopWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
