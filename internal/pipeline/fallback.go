package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vetdocs/triage/internal/model"
)

// Keyword patterns per category, matched against lowercased text. Order
// within a category does not matter; every hit counts once.
var fallbackPatterns = map[model.Category][]*regexp.Regexp{
	model.CategoryRDL: compileAll(
		`service connection is granted`, `service connection is denied`,
		`we have granted`, `we have denied`, `this constitutes the rating decision`,
		`decision is final`, `effective date`, `disability rating`, `combined rating`,
		`right to appeal`, `board of veterans.? appeals`, `notice of disagreement`,
	),
	model.CategoryRDS: compileAll(
		`rating decision sheet`, `calculation worksheet`, `rating worksheet`,
		`dc \d{4}`, `diagnostic code \d{4}`, `schedular rating`,
		`38 cfr 4\.\d+`, `rating schedule`, `combined rating.*?formula`,
		`bilateral factor`, `pyramiding`, `tdiu`, `extra.?schedular`,
		`\d{1,3}% \+ \d{1,3}% of \d{1,3}%`, `individual ratings:`,
		`condition.*?dc.*?\d{1,3}%`, `diagnosis.*?rating.*?\d{1,3}%`,
	),
	model.CategoryRCS: compileAll(
		`your claim.*?is.*?under development`, `pending decision`,
		`evidence requested`, `examination scheduled`, `we are processing your claim`,
		`additional evidence needed`, `medical examination required`,
		`please provide`, `submit.*?within.*?days`, `development.*?letter`,
		`dear veteran`, `we are writing`, `contact us if you have questions`,
		`remains under development`, `notify you.*?decision`, `current rating.*?increase`,
		`your.*?claim.*?for.*?(?:increased|additional|disability)`,
		`we will determine.*?(?:rating|increase)`, `requested evidence`,
		`va file number`, `claim number`,
		`end product code`, `development id`,
	),
	model.CategoryMedicalEvidence: compileAll(
		`dr\.`, `\bmd\b`, `\bdo\b`, `license #`, `dea #`, `npi #`,
		`hospital`, `clinic`, `medical center`, `diagnosis`, `icd-10`,
		`cpt codes`, `physical examination`, `assessment and plan`,
		`mri`, `ct scan`, `x-ray`, `laboratory results`,
	),
	model.CategoryLayStatement: compileAll(
		`i served`, `my condition`, `i experienced`, `during my time in`,
		`when i was in`, `during my service`, `i remember`, `my injury`,
		`buddy statement`, `fellow service member`,
	),
	model.CategoryVAForms: compileAll(
		`va form`, `form 21-526ez`, `form 10-10ez`, `dd-214`,
		`21-4142`, `21-0781`, `application for`, `request for`,
	),
	model.CategoryPersonalInfo: compileAll(
		`driver license`, `passport`, `birth certificate`,
		`social security card`, `state id`, `date of birth`,
	),
}

// Calculation markers strongly favor RDS when both RDS and RCS patterns fire.
var calculationIndicators = compileAll(
	`dc \d{4}`, `diagnostic code`, `\d{1,3}%.*?\d{1,3}%`,
	`schedular rating`, `combined rating.*?formula`, `38 cfr`,
)

// Communication markers strongly favor RCS in the same situation.
var communicationIndicators = compileAll(
	`dear`, `we are writing`, `please provide`, `your claim.*?is`,
	`submit.*?within`, `examination scheduled`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// fallbackClassify scores the document with keyword patterns. Confidence is
// capped at 0.70 so fallback results are always below the auto-process
// threshold. Ties between categories resolve to the higher-priority one.
func fallbackClassify(text string) *model.Classification {
	lower := strings.ToLower(text)

	scores := make(map[model.Category]int, len(fallbackPatterns))
	bestMatch := model.CategoryOther
	bestScore := 0

	for _, cat := range model.CategoriesByPriority() {
		score := 0
		for _, re := range fallbackPatterns[cat] {
			if re.MatchString(lower) {
				score++
			}
		}
		scores[cat] = score
		if score > bestScore {
			bestScore = score
			bestMatch = cat
		}
	}

	rdsScore := scores[model.CategoryRDS]
	rcsScore := scores[model.CategoryRCS]

	if rdsScore > 0 && rcsScore > 0 {
		hasCalculations := anyMatch(calculationIndicators, lower)
		hasCommunication := anyMatch(communicationIndicators, lower)

		switch {
		case hasCalculations && !hasCommunication:
			bestMatch = model.CategoryRDS
			bestScore = rdsScore + 2
		case hasCommunication && !hasCalculations:
			bestMatch = model.CategoryRCS
			bestScore = rcsScore + 2
		case rdsScore > rcsScore:
			bestMatch = model.CategoryRDS
		default:
			bestMatch = model.CategoryRCS
		}
	}

	confidence := bestScore * 10
	if confidence > 70 {
		confidence = 70
	}

	return &model.Classification{
		Category:   bestMatch,
		Confidence: float64(confidence) / 100.0,
		Reasoning: fmt.Sprintf("Fallback classification: RDS score=%d, RCS score=%d, chosen=%s (total score: %d)",
			rdsScore, rcsScore, bestMatch, bestScore),
		Source: "fallback",
	}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
