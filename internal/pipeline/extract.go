package pipeline

import (
	"context"
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/store"
)

//go:embed forms.yaml
var formsYAML []byte

type formTables struct {
	Forms map[string]map[string][]string `yaml:"forms"`
}

// formPatterns holds the compiled per-form field pattern tables. Patterns
// are compiled case-insensitive in yaml order; per field the first pattern
// with a match wins.
var formPatterns map[string]map[string][]*regexp.Regexp

func init() {
	var tables formTables
	if err := yaml.Unmarshal(formsYAML, &tables); err != nil {
		panic("pipeline: invalid forms.yaml: " + err.Error())
	}

	formPatterns = make(map[string]map[string][]*regexp.Regexp, len(tables.Forms))
	for form, fields := range tables.Forms {
		compiled := make(map[string][]*regexp.Regexp, len(fields))
		for field, patterns := range fields {
			res := make([]*regexp.Regexp, len(patterns))
			for i, p := range patterns {
				res[i] = regexp.MustCompile("(?i)" + p)
			}
			compiled[field] = res
		}
		formPatterns[form] = compiled
	}
}

// extractStage pulls structured data out of the document text: general
// contact fields, disability markers, VA form numbers, and form-specific
// fields from the pattern tables. Results are persisted to the store keyed
// by the sanitized filename; persistence failures are logged and non-fatal.
type extractStage struct {
	store store.Store
}

func (s *extractStage) Name() string { return StageExtract }

func (s *extractStage) Validate(rec *model.Record) bool {
	return strings.TrimSpace(rec.ExtractedText) != ""
}

func (s *extractStage) Run(ctx context.Context, rec *model.Record) error {
	text := rec.ExtractedText

	ex := &model.Extraction{
		DocumentType: rec.Category(),
		ExtractedAt:  time.Now().UTC(),
	}

	extractGeneral(text, ex)

	formKey := identifyForm(text, rec.Category())
	if formKey != "" {
		ex.FormKey = formKey
		extractFormFields(text, formKey, ex)
	}

	rec.Extraction = ex

	key := sanitizeDataKey(rec.OriginalFilename)
	if err := s.store.SaveExtractedData(ctx, key, ex); err != nil {
		zap.L().Warn("failed to persist extracted data",
			zap.String("document", rec.OriginalFilename), zap.Error(err))
	}

	zap.L().Info("data extracted",
		zap.String("document", rec.OriginalFilename),
		zap.String("form", formKey),
		zap.Int("names", len(ex.Names)),
		zap.Int("fields", len(ex.Fields)))
	return nil
}

var dataKeyPattern = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func sanitizeDataKey(filename string) string {
	return dataKeyPattern.ReplaceAllString(filename, "_")
}

// identifyForm keys off explicit form markers in the text, falling back to
// the classified document type.
func identifyForm(text string, docType model.Category) string {
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(upper, "21-526EZ") || strings.Contains(upper, "526EZ"):
		return "21-526EZ"
	case strings.Contains(upper, "10-10EZ") || strings.Contains(upper, "10EZ"):
		return "10-10EZ"
	case strings.Contains(upper, "DD-214") || strings.Contains(upper, "DD214"):
		return "DD-214"
	case strings.Contains(upper, "RATING DECISION SHEET"),
		strings.Contains(upper, "DIAGNOSTIC CODE") && strings.Contains(upper, "38 CFR"):
		return "RDS"
	}

	if docType == model.CategoryRDS {
		return "RDS"
	}
	return ""
}

// extractFormFields applies the form's pattern table. The first matching
// pattern's first capture wins per field; single-character values are
// skipped and fields are never overwritten.
func extractFormFields(text, formKey string, ex *model.Extraction) {
	patterns, ok := formPatterns[formKey]
	if !ok {
		return
	}

	for field, res := range patterns {
		for _, re := range res {
			m := re.FindStringSubmatch(text)
			if m == nil || len(m) < 2 {
				continue
			}
			value := strings.TrimSpace(m[1])
			if len(value) > 1 {
				ex.SetField(field, value)
				break
			}
		}
	}
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\b\d{10}\b`),
	}

	ssnPattern = regexp.MustCompile(`(\d{3}-\d{2}-\d{4})`)

	vaFormPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bVA\s*Form\s*(\d{2,4}[A-Z]?)\b`),
		regexp.MustCompile(`(?i)\bForm\s*(\d{2,4}[A-Z]?)\b`),
		regexp.MustCompile(`(?i)\b(\d{2,4}[A-Z]?)\s*form\b`),
	}

	serviceConnectedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`service\s*connected`),
		regexp.MustCompile(`service-connected`),
		regexp.MustCompile(`sc\s*disability`),
	}

	disabilityPercentPattern = regexp.MustCompile(`(\d{1,3})\s*%\s*disability`)
)

var disabilityKeywords = []string{
	"disability", "disabled", "impairment", "condition",
	"service connected", "service-connected", "veteran",
}

func extractGeneral(text string, ex *model.Extraction) {
	ex.Emails = uniqueInOrder(emailPattern.FindAllString(text, -1))
	if len(ex.Emails) > 0 {
		ex.PrimaryEmail = ex.Emails[0]
	}

	var phones []string
	for _, re := range phonePatterns {
		phones = append(phones, re.FindAllString(text, -1)...)
	}
	ex.Phones = uniqueInOrder(phones)
	if len(ex.Phones) > 0 {
		ex.PrimaryPhone = ex.Phones[0]
	}

	ex.Names = extractNames(text)
	if len(ex.Names) > 0 {
		ex.PrimaryName = ex.Names[0]
	}

	if m := ssnPattern.FindStringSubmatch(text); m != nil {
		ex.SSN = m[1]
	}

	var forms []string
	for _, re := range vaFormPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			forms = append(forms, m[1])
		}
	}
	ex.VAForms = uniqueInOrder(forms)
	if len(ex.VAForms) > 0 {
		ex.PrimaryForm = ex.VAForms[0]
	}

	ex.Disability = extractDisability(text)
}

func extractDisability(text string) model.DisabilityInfo {
	lower := strings.ToLower(text)
	var info model.DisabilityInfo

	for _, keyword := range disabilityKeywords {
		if strings.Contains(lower, keyword) {
			info.HasDisabilityMention = true
			break
		}
	}

	for _, re := range serviceConnectedPatterns {
		if re.MatchString(lower) {
			info.ServiceConnected = true
			break
		}
	}

	if m := disabilityPercentPattern.FindStringSubmatch(lower); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			info.Percentage = &pct
		}
	}

	return info
}

func uniqueInOrder(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
