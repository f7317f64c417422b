// internal/models/application.go
package models

import (
	"fmt"
	"strings"
	"time"

	"citizenship-adjudicator/internal/common/textnorm"
)

// CaseType selects the adjudication policy applied to an application.
type CaseType string

const (
	CaseTypeOrdinary    CaseType = "ordinary"
	CaseTypeProvisional CaseType = "provisional"
)

// ParseCaseType accepts the canonical names and the Portuguese labels used by
// the case management system.
func ParseCaseType(s string) (CaseType, bool) {
	switch textnorm.Fold(s) {
	case "ordinary", "ordinaria":
		return CaseTypeOrdinary, true
	case "provisional", "provisoria":
		return CaseTypeProvisional, true
	default:
		return "", false
	}
}

// Structured field keys returned by ReadFields.
const (
	FieldBirthDate         = "birth_date"
	FieldResidencyStart    = "residency_start_date"
	FieldTermReduction     = "term_reduction"
	FieldBrazilianSpouse   = "brazilian_spouse"
	FieldBrazilianChild    = "brazilian_child"
	FieldCaseType          = "case_type"
	FieldApplicantFullName = "applicant_name"
)

// CaseFacts is what navigation to a case yields.
type CaseFacts struct {
	CaseID    string    `json:"caseId"`
	Type      CaseType  `json:"caseType,omitempty"`
	StartDate time.Time `json:"startDate"`
	Opinion   string    `json:"opinion,omitempty"`
}

// Case is one application under adjudication. It is built once per case and
// not mutated afterwards.
type Case struct {
	ID        string
	Type      CaseType
	StartDate time.Time
	BirthDate *time.Time
	Opinion   string
	Fields    map[string]string
	// Flags are named facts raised by the narrative rule table.
	Flags     map[string]bool
}

// HasFlag reports whether a narrative flag was raised for the case.
func (c *Case) HasFlag(name string) bool {
	return c != nil && c.Flags[name]
}

// Field returns a trimmed structured field value.
func (c *Case) Field(key string) string {
	if c == nil || c.Fields == nil {
		return ""
	}
	return strings.TrimSpace(c.Fields[key])
}

// NormalizeCaseID strips every non-digit character from a raw identifier.
func NormalizeCaseID(raw string) string {
	return textnorm.Digits(raw)
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2006-01-02",
	time.RFC3339,
}

// ParseDate reads the day-first dates used on case forms, plus ISO dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
