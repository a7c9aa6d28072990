package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/config"
	"github.com/vetdocs/triage/internal/llm"
	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/resilience"
)

// classifyStage determines the document category with the LLM backend and
// falls back to deterministic keyword scoring when the backend or its
// response is unusable. The stage itself never fails: worst case is
// unknown/0.0 from the fallback path.
type classifyStage struct {
	gen      llm.TextGenerator
	breaker  *resilience.CircuitBreaker
	llmCfg   config.LLMConfig
	model    string
	maxChars int
}

func (s *classifyStage) Name() string { return StageClassify }

func (s *classifyStage) Validate(rec *model.Record) bool {
	return strings.TrimSpace(rec.ExtractedText) != ""
}

func (s *classifyStage) Run(ctx context.Context, rec *model.Record) error {
	text := rec.ExtractedText
	maxChars := s.maxChars
	if maxChars <= 0 {
		maxChars = 4000
	}
	if len(text) > maxChars {
		text = text[:maxChars] + "..."
	}

	cls, err := s.classifyWithModel(ctx, text)
	if err != nil {
		zap.L().Warn("classifier backend unavailable, using fallback",
			zap.String("document", rec.OriginalFilename), zap.Error(err))
		cls = fallbackClassify(text)
	}

	rec.Classification = cls
	zap.L().Info("document classified",
		zap.String("document", rec.OriginalFilename),
		zap.String("category", string(cls.Category)),
		zap.Float64("confidence", cls.Confidence),
		zap.String("source", cls.Source))
	return nil
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (s *classifyStage) classifyWithModel(ctx context.Context, text string) (*model.Classification, error) {
	timeout := time.Duration(s.llmCfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := classifyPrompt(text)
	params := llm.GenerateParams{
		Model:       s.model,
		MaxTokens:   s.llmCfg.MaxTokens,
		Temperature: s.llmCfg.Temperature,
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("llm", "classify")

	raw, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
			return s.gen.Generate(ctx, prompt, params)
		})
	})
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &resp); err != nil {
		return nil, eris.Wrap(err, "parse classification response")
	}

	category, ok := model.NormalizeCategory(resp.Category)
	if !ok {
		return nil, eris.Errorf("unrecognized category %q", resp.Category)
	}

	confidence := resp.Confidence / 100.0
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &model.Classification{
		Category:   category,
		Confidence: confidence,
		Reasoning:  resp.Reasoning,
		Source:     "model",
	}, nil
}

// cleanJSON strips markdown code fences and extracts the outermost JSON
// object from a model response.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func classifyPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString(classifyRubric)
	sb.WriteString("\n\nDocument text to classify:\n")
	sb.WriteString(text)
	return sb.String()
}

const classifyRubric = `You are an expert VA document classification system. Classify documents with ULTRA-HIGH precision to minimize false positives.

## DOCUMENT CATEGORIES WITH PRECISE VA-SPECIFIC DEFINITIONS

### 1. RDL (Rating Decision Letter) - FINAL OFFICIAL VA DECISIONS
**MUST HAVE ALL THREE CORE MARKERS:**
- **FINALITY LANGUAGE**: "Service connection IS GRANTED", "Service connection IS DENIED", "We have GRANTED", "We have DENIED", "This constitutes the rating decision", "Decision is final"
- **OFFICIAL VA HEADER**: "Department of Veterans Affairs", "Regional Office", "Veterans Benefits Administration"
- **DECISION SPECIFICS**: "Effective date", "Disability rating", "Combined rating", "Schedular rating"

**ADDITIONAL CONFIRMING INDICATORS:**
- Appeal rights language: "right to appeal", "Board of Veterans' Appeals", "Notice of Disagreement"
- CFR references: "38 CFR", "Code of Federal Regulations"
- VA Form references: "Based on VA Form 21-526EZ"

**CRITICAL EXCLUSIONS:**
- If contains "pending", "under development", "awaiting", "additional evidence needed" -> RCS
- If worksheet/calculation format -> RDS
- If medical provider header -> Medical Evidence

### 2. RCS (Rating Claim Statement) - ACTIVE/PENDING CLAIMS
**MUST HAVE BOTH CORE ELEMENTS:**
- **CLAIM REFERENCE**: "VA File Number", "Claim Number", "C-File", "End Product Code (EP)", "Development ID"
- **ACTIVE STATUS LANGUAGE**: "under development", "pending decision", "evidence requested", "examination scheduled", "we are processing your claim"

**ADDITIONAL CONFIRMING INDICATORS:**
- Development actions: "Additional evidence needed", "Medical examination required"
- Timeline references: "within 60 days", "development period"
- Request language: "Please provide", "Submit additional"
- Communication focus: Letters TO veteran about claim status

**DOCUMENT FORMAT CHARACTERISTICS:**
- Letter format with formal VA correspondence structure
- Communication-focused (informing veteran of status)
- Future-oriented language about what will happen next

**CRITICAL EXCLUSIONS:**
- If contains final decision language -> RDL
- If contains mathematical rating calculations or diagnostic codes -> RDS
- If worksheet/tabular calculation format -> RDS
- If medical provider credentials -> Medical Evidence

### 3. RDS (Rating Decision Sheet) - INTERNAL VA CALCULATION WORKSHEETS
**MUST HAVE WORKSHEET FORMAT PLUS CALCULATION ELEMENTS:**

**REQUIRED FORMAT INDICATORS (Must have worksheet characteristics):**
- **WORKSHEET STRUCTURE**: Tabular layout, calculation grid, or structured data entry format
- **INTERNAL PROCESSING FORMAT**: Not a formal letter to veteran, but internal VA working document
- **CALCULATION FOCUS**: Mathematical computations, rating formulas, percentage breakdowns

**REQUIRED CONTENT MARKERS (Must have at least 2):**
- **DIAGNOSTIC CODES**: "DC 5010", "Diagnostic Code 8045", numbered codes (5000-9999 series)
- **CFR SCHEDULE REFERENCES**: "38 CFR 4.71", "Rating Schedule", "Schedule for Rating Disabilities"
- **RATING CALCULATIONS**: Individual percentages, combined rating formulas, schedular ratings
- **TECHNICAL VA TERMINOLOGY**: "Schedular rating", "Extra-schedular", "TDIU", "Bilateral factor", "Pyramiding"

**ADDITIONAL CONFIRMING INDICATORS:**
- Mathematical calculations: "40% + (70% of 60%) = 82%"
- Medical conditions with codes: "Lumbar spine DC 5010 - 40%"
- Internal processing notes or reviewer comments
- DBQ summary analysis (not the actual DBQ report)
- Rating worksheet headers: "Rating Decision Sheet", "Calculation Worksheet"

**CRITICAL DISTINCTIONS FROM RCS:**
- RDS is CALCULATION-focused (math, percentages, codes)
- RCS is COMMUNICATION-focused (status updates, requests)
- RDS has WORKSHEET format (structured data)
- RCS has LETTER format (narrative communication)
- RDS is INTERNAL processing document
- RCS is EXTERNAL communication to veteran

**CRITICAL EXCLUSIONS:**
- If formal letter header addressing veteran -> RCS or RDL
- If communication about claim status without calculations -> RCS
- If final decision letter with appeal rights -> RDL
- If medical provider credentials and clinical notes -> Medical Evidence

### 4. Medical Evidence - CLINICAL REPORTS FROM LICENSED PROVIDERS
**MUST HAVE PROVIDER CREDENTIALS AND CLINICAL DATA:**
- **PROVIDER IDENTIFICATION**: "Dr.", "MD", "DO", "NP", "PA-C", "License #", "DEA #", "NPI #"
- **MEDICAL FACILITY**: "Hospital", "Clinic", "Medical Center", letterhead with medical facility name
- **CLINICAL TERMINOLOGY**: "Diagnosis", "ICD-10", "CPT codes", "Physical examination", "Assessment and Plan"
- **OBJECTIVE DATA**: Lab values, vital signs, imaging results, test measurements

**SPECIFIC MEDICAL DOCUMENT TYPES:**
- C&P Examination reports (but only if from medical provider, not VA worksheet)
- Hospital discharge summaries
- Radiology reports (MRI, CT, X-ray)
- Laboratory results
- Specialist consultation notes

**CRITICAL EXCLUSIONS:**
- If VA internal worksheet format -> RDS
- If first-person narrative -> Lay Statement
- If VA decision letter -> RDL

### 5. Lay Statement - PERSONAL NARRATIVES
**MUST HAVE FIRST-PERSON NARRATIVE:**
- **PERSONAL PERSPECTIVE**: "I served", "My condition", "I experienced", "During my time in"
- **NARRATIVE STYLE**: Story-telling format, chronological personal account
- **NON-CLINICAL LANGUAGE**: Describes symptoms in lay terms, no medical jargon

**INCLUDES:**
- Veteran personal statements
- Buddy statements from fellow service members
- Family member observations
- Personal impact statements

**CRITICAL EXCLUSIONS:**
- If clinical measurements/diagnosis from provider -> Medical Evidence
- If VA official language -> RDL/RCS
- If technical calculation format -> RDS

### 6. VA Forms - OFFICIAL APPLICATION DOCUMENTS
**MUST HAVE FORM IDENTIFICATION:**
- **FORM NUMBERS**: "VA Form 21-526EZ", "Form 10-10EZ", "DD-214", "21-4142", "21-0781"
- **APPLICATION LANGUAGE**: "Application for", "Request for", form field structure
- **BLANK/FILLED FORMS**: Both completed and blank official VA forms

**CRITICAL EXCLUSIONS:**
- If decision about form -> RDL
- If worksheet analyzing form -> RDS

### 7. Personal Information (Flag for Discard)
- Government ID cards, driver licenses, passports, birth certificates
- Social Security cards, state-issued identification
- Personal financial documents unrelated to VA benefits

### 8. Other
- Unclear/incomplete text
- Multiple categories equally likely
- No clear distinguishing markers
- Confidence below 70%

## CLASSIFICATION HIERARCHY (For Tie-Breaking):
1. RDL (highest priority - final decisions)
2. RDS (technical worksheets)
3. RCS (active claims)
4. Medical Evidence (clinical reports)
5. VA Forms (applications)
6. Lay Statement (narratives)
7. Personal Info (discard)
8. Other (lowest confidence)

## CONFIDENCE SCORING:
- **95-100%**: Perfect match with all required markers, zero ambiguity
- **85-94%**: Strong match with most markers, minimal uncertainty
- **75-84%**: Good match but some ambiguity between categories
- **70-74%**: Weak but acceptable evidence
- **<70%**: Insufficient evidence -> classify as "Other"

## CRITICAL FALSE POSITIVE PREVENTION:

### SPECIFIC RDS vs RCS DECISION RULES:
**IF document contains claim references AND calculation elements:**
1. **CHECK FORMAT**: Is it a worksheet/table OR a formal letter?
   - Worksheet format -> RDS
   - Letter format -> RCS

2. **CHECK PRIMARY PURPOSE**: Is it for calculation OR communication?
   - Mathematical calculations, diagnostic codes, rating formulas -> RDS
   - Status updates, requests, development actions -> RCS

3. **CHECK AUDIENCE**: Is it internal VA processing OR communication to veteran?
   - Internal processing document -> RDS
   - Letter to veteran -> RCS

**EXAMPLES:**
- "Claim #12345 - DC 5010: 40%, DC 9411: 70%, Combined: 82%" -> RDS (calculation focus)
- "Your claim #12345 is under development, please provide additional evidence" -> RCS (communication focus)

### OTHER CRITICAL DISTINCTIONS:
- RDL vs RCS: Look for FINALITY ("granted/denied") vs PENDING ("under development") language
- RDL vs RDS: Look for FORMAL DECISION LETTER vs CALCULATION WORKSHEET format
- RDS vs Medical Evidence: Look for VA INTERNAL ANALYSIS vs CLINICAL PROVIDER REPORT
- Medical vs Lay: Look for PROVIDER CREDENTIALS vs PERSONAL NARRATIVE

## OUTPUT FORMAT:
Return ONLY valid JSON:
{"category": "<exact_category>", "confidence": <0-100>, "reasoning": "Specific markers found and excluded categories explained"}`
