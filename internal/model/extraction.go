package model

import "time"

// DisabilityInfo summarizes disability-related markers found in a document.
type DisabilityInfo struct {
	HasDisabilityMention bool `json:"has_disability_mention"`
	ServiceConnected     bool `json:"service_connected"`
	// Percentage is nil when no disability percentage was found.
	Percentage *int `json:"disability_percentage"`
}

// Extraction holds the field-extraction stage output. Fields is append-only
// per key: the first pattern to match a field wins and later patterns for
// that field are never tried.
type Extraction struct {
	Emails       []string          `json:"emails,omitempty"`
	PrimaryEmail string            `json:"primary_email,omitempty"`
	Phones       []string          `json:"phone_numbers,omitempty"`
	PrimaryPhone string            `json:"primary_phone,omitempty"`
	Names        []string          `json:"names,omitempty"`
	PrimaryName  string            `json:"primary_name,omitempty"`
	SSN          string            `json:"ssn,omitempty"`
	VAForms      []string          `json:"va_forms,omitempty"`
	PrimaryForm  string            `json:"primary_form,omitempty"`
	Disability   DisabilityInfo    `json:"disability_info"`
	FormKey      string            `json:"form_key,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`

	DocumentType Category  `json:"document_type"`
	ExtractedAt  time.Time `json:"extraction_timestamp"`
}

// Field returns a form-specific extracted field value, or "".
func (e *Extraction) Field(name string) string {
	if e == nil || e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}

// SetField stores a form-specific field value unless one is already set.
// Returns true if the value was stored.
func (e *Extraction) SetField(name, value string) bool {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[name]; exists {
		return false
	}
	e.Fields[name] = value
	return true
}
