package requirements

import "citizenship-adjudicator/internal/models"

// ResidencyMode selects how MIN_RESIDENCY is established.
type ResidencyMode string

const (
	// ResidencyYears measures the residency term in years.
	ResidencyYears ResidencyMode = "years"
	// ResidencyBeforeThreshold requires residency to have begun before the
	// applicant turned ten.
	ResidencyBeforeThreshold ResidencyMode = "before_threshold"
)

const residencyThresholdAge = 10

// Policy holds the per-case-type rules of the evaluator.
type Policy struct {
	MinAge              int // 0 disables the lower bound
	MaxAge              int // 0 disables the upper bound
	Residency           ResidencyMode
	RequiredYears       float64
	ReducedYears        float64
	Tolerance           float64
	WaiveLanguage       bool
	WaiveCriminalRecord bool
}

// DefaultPolicies returns the ordinary and provisional naturalisation rules.
func DefaultPolicies() map[models.CaseType]Policy {
	return map[models.CaseType]Policy{
		models.CaseTypeOrdinary: {
			MinAge:        18,
			Residency:     ResidencyYears,
			RequiredYears: 4,
			ReducedYears:  1,
			Tolerance:     0.05,
		},
		models.CaseTypeProvisional: {
			MaxAge:              17,
			Residency:           ResidencyBeforeThreshold,
			WaiveLanguage:       true,
			WaiveCriminalRecord: true,
		},
	}
}
