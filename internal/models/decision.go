// internal/models/decision.go
package models

// RequirementCode identifies one of the four legal preconditions.
type RequirementCode string

const (
	RequirementCivilCapacity       RequirementCode = "CIVIL_CAPACITY"
	RequirementMinResidency        RequirementCode = "MIN_RESIDENCY"
	RequirementLanguageProficiency RequirementCode = "LANGUAGE_PROFICIENCY"
	RequirementCriminalRecord      RequirementCode = "CRIMINAL_RECORD"
)

// Requirements is the fixed evaluation order.
var Requirements = []RequirementCode{
	RequirementCivilCapacity,
	RequirementMinResidency,
	RequirementLanguageProficiency,
	RequirementCriminalRecord,
}

// Citation is the legal basis quoted when the requirement is not met.
func (c RequirementCode) Citation() string {
	switch c {
	case RequirementCivilCapacity:
		return "Art. 65, inciso I da Lei nº 13.445/2017"
	case RequirementMinResidency:
		return "Art. 65, inciso II da Lei nº 13.445/2017"
	case RequirementLanguageProficiency:
		return "Art. 65, inciso III da Lei nº 13.445/2017"
	case RequirementCriminalRecord:
		return "Art. 65, inciso IV da Lei nº 13.445/2017"
	default:
		return string(c)
	}
}

// ParseRequirementCode validates a requirement name.
func ParseRequirementCode(s string) (RequirementCode, bool) {
	for _, code := range Requirements {
		if string(code) == s {
			return code, true
		}
	}
	return "", false
}

// RequirementResult is the outcome of one requirement for one case.
type RequirementResult struct {
	Code      RequirementCode `json:"code"`
	Satisfied bool            `json:"satisfied"`
	Waived    bool            `json:"waived,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Evidence  *float64        `json:"evidence,omitempty"`
	// CriticalAlert is only set by MIN_RESIDENCY when no residency term
	// could be found anywhere; the case cannot be decided automatically.
	CriticalAlert bool `json:"criticalAlert,omitempty"`
}

// DecisionKind is the closed set of adjudication outcomes.
type DecisionKind string

const (
	DecisionDeferred                DecisionKind = "DEFERRED"
	DecisionApprovedWithReservation DecisionKind = "APPROVED_WITH_RESERVATION"
	DecisionDenied                  DecisionKind = "DENIED"
	DecisionSendToCommittee         DecisionKind = "SEND_TO_COMMITTEE"
	DecisionManualReview            DecisionKind = "MANUAL_REVIEW"
	DecisionAutomaticDenial         DecisionKind = "AUTOMATIC_DENIAL"
	DecisionError                   DecisionKind = "ERROR"
)

var decisionKinds = []DecisionKind{
	DecisionDeferred,
	DecisionApprovedWithReservation,
	DecisionDenied,
	DecisionSendToCommittee,
	DecisionManualReview,
	DecisionAutomaticDenial,
	DecisionError,
}

// ParseDecisionKind validates a decision name.
func ParseDecisionKind(s string) (DecisionKind, bool) {
	for _, k := range decisionKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// DocumentCheck records one supplementary document lookup.
type DocumentCheck struct {
	Name    string `json:"name"`
	Valid   bool   `json:"valid"`
	Penalty int    `json:"penalty"`
	Err     string `json:"error,omitempty"`
}

// Decision is the final classification of a case.
type Decision struct {
	Kind         DecisionKind `json:"kind"`
	Reasons      []string     `json:"reasons"`
	Completeness int          `json:"completeness"`
}
