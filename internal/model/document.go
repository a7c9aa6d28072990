package model

import "strings"

// Category represents a classified document category.
type Category string

const (
	CategoryRDL             Category = "rdl"
	CategoryRDS             Category = "rds"
	CategoryRCS             Category = "rcs"
	CategoryMedicalEvidence Category = "medical_evidence"
	CategoryVAForms         Category = "va_forms"
	CategoryLayStatement    Category = "lay_statement"
	CategoryPersonalInfo    Category = "personal_info"
	CategoryOther           Category = "other"

	// CategoryUnknown is the terminal fallback when classification fails
	// entirely. It is never a member of the closed category set.
	CategoryUnknown Category = "unknown"
)

// CategoriesByPriority returns the closed category set in tie-break order:
// when two categories score equally, the earlier one wins.
func CategoriesByPriority() []Category {
	return []Category{
		CategoryRDL,
		CategoryRDS,
		CategoryRCS,
		CategoryMedicalEvidence,
		CategoryVAForms,
		CategoryLayStatement,
		CategoryPersonalInfo,
		CategoryOther,
	}
}

// ValidCategory returns true if c is a member of the closed category set.
func ValidCategory(c Category) bool {
	for _, known := range CategoriesByPriority() {
		if known == c {
			return true
		}
	}
	return false
}

// categoryAliases maps model-reported category spellings to canonical values.
var categoryAliases = map[string]Category{
	"rdl":                    CategoryRDL,
	"rating decision letter": CategoryRDL,
	"rds":                    CategoryRDS,
	"rating decision sheet":  CategoryRDS,
	"rcs":                    CategoryRCS,
	"rating claim statement": CategoryRCS,
	"medical evidence":       CategoryMedicalEvidence,
	"medical_evidence":       CategoryMedicalEvidence,
	"medicalevidence":        CategoryMedicalEvidence,
	"va forms":               CategoryVAForms,
	"va_forms":               CategoryVAForms,
	"vaforms":                CategoryVAForms,
	"va form":                CategoryVAForms,
	"lay statement":          CategoryLayStatement,
	"lay_statement":          CategoryLayStatement,
	"laystatement":           CategoryLayStatement,
	"personal info":          CategoryPersonalInfo,
	"personal_info":          CategoryPersonalInfo,
	"personal information":   CategoryPersonalInfo,
	"personalinfo":           CategoryPersonalInfo,
	"other":                  CategoryOther,
}

// NormalizeCategory resolves a model-reported category string to a member of
// the closed set. Returns ("", false) when the string matches nothing.
func NormalizeCategory(raw string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// DirectoryName maps a category to the folder name used by the file router.
func (c Category) DirectoryName() string {
	switch c {
	case CategoryRDL:
		return "RDL"
	case CategoryRDS:
		return "RDS"
	case CategoryRCS:
		return "RCS"
	case CategoryMedicalEvidence:
		return "Medical_Evidence"
	case CategoryVAForms:
		return "VA_Forms"
	case CategoryLayStatement:
		return "Lay_Statements"
	case CategoryPersonalInfo:
		return "Personal_Info"
	default:
		return "Other"
	}
}

// Classification holds the classifier stage output.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"` // normalized [0,1]
	Reasoning  string   `json:"reasoning"`
	Source     string   `json:"source"` // "model" or "fallback"
}

// Route represents the processing route derived from confidence.
type Route string

const (
	RouteAutoProcess Route = "auto_process"
	RouteHumanReview Route = "human_review"
	RouteRejected    Route = "rejected"
)

// RoutingDecision holds the routing-decision stage output.
type RoutingDecision struct {
	Route          Route  `json:"route"`
	Reason         string `json:"reason"`
	RequiresReview bool   `json:"requires_review"`
	AutoProcessed  bool   `json:"auto_processed"`
	Rejected       bool   `json:"rejected"`
	Discarded      bool   `json:"discarded"`
}
