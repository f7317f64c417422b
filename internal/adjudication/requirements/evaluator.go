// Package requirements evaluates the four legal preconditions of
// naturalisation for a single case.
package requirements

import (
	"context"
	"fmt"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/common/textnorm"
	"citizenship-adjudicator/internal/models"
)

// Evidence is the document view of the case under evaluation.
type Evidence interface {
	CheckDocument(ctx context.Context, name string) (valid bool, text string, err error)
}

// Outcome holds one result per requirement, in models.Requirements order.
type Outcome struct {
	Results []models.RequirementResult
}

// CriticalAlert reports whether any requirement raised a critical alert.
func (o Outcome) CriticalAlert() bool {
	for _, r := range o.Results {
		if r.CriticalAlert {
			return true
		}
	}
	return false
}

// Unsatisfied returns the failed requirements in evaluation order.
func (o Outcome) Unsatisfied() []models.RequirementResult {
	var out []models.RequirementResult
	for _, r := range o.Results {
		if !r.Satisfied {
			out = append(out, r)
		}
	}
	return out
}

// Result returns the result for code.
func (o Outcome) Result(code models.RequirementCode) (models.RequirementResult, bool) {
	for _, r := range o.Results {
		if r.Code == code {
			return r, true
		}
	}
	return models.RequirementResult{}, false
}

type Evaluator struct {
	policies map[models.CaseType]Policy
	logger   logger.Logger
}

func NewEvaluator(policies map[models.CaseType]Policy, log logger.Logger) *Evaluator {
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}
	return &Evaluator{
		policies: policies,
		logger:   log.WithFields(map[string]interface{}{"component": "requirements"}),
	}
}

// Evaluate runs every requirement exactly once. A missing birth date makes
// the case undecidable and is returned as an EXTRACTION_FAILED error.
func (e *Evaluator) Evaluate(ctx context.Context, c *models.Case, ev Evidence) (Outcome, error) {
	policy, ok := e.policies[c.Type]
	if !ok {
		return Outcome{}, apperrors.NewExtractionFailedError(c.ID, models.FieldCaseType,
			fmt.Sprintf("no policy for case type %q", c.Type))
	}
	if c.BirthDate == nil {
		return Outcome{}, apperrors.NewExtractionFailedError(c.ID, models.FieldBirthDate, "birth date not found")
	}

	out := Outcome{Results: []models.RequirementResult{
		e.civilCapacity(c, policy),
		e.minResidency(ctx, c, ev, policy),
		e.languageProficiency(ctx, ev, policy),
		e.criminalRecord(ctx, ev, policy),
	}}

	e.logger.Debug("requirements evaluated", map[string]interface{}{
		"caseId":        c.ID,
		"unsatisfied":   len(out.Unsatisfied()),
		"criticalAlert": out.CriticalAlert(),
	})
	return out, nil
}

func (e *Evaluator) civilCapacity(c *models.Case, p Policy) models.RequirementResult {
	age := AgeAt(*c.BirthDate, c.StartDate)
	value := float64(age)
	res := models.RequirementResult{
		Code:      models.RequirementCivilCapacity,
		Satisfied: true,
		Evidence:  &value,
		Detail:    fmt.Sprintf("age %d at case start", age),
	}
	if p.MinAge > 0 && age < p.MinAge {
		res.Satisfied = false
	}
	if p.MaxAge > 0 && age > p.MaxAge {
		res.Satisfied = false
	}
	if !res.Satisfied {
		res.Reason = models.RequirementCivilCapacity.Citation()
	}
	return res
}

func (e *Evaluator) minResidency(ctx context.Context, c *models.Case, ev Evidence, p Policy) models.RequirementResult {
	res := models.RequirementResult{Code: models.RequirementMinResidency}

	if p.Residency == ResidencyBeforeThreshold {
		if detail, ok := residencyBeforeThreshold(c); ok {
			res.Satisfied = true
			res.Detail = detail
			return res
		}
		res.Reason = models.RequirementMinResidency.Citation()
		res.CriticalAlert = true
		res.Detail = "no statement of residency before age 10"
		return res
	}

	required := p.RequiredYears
	if e.hasReduction(ctx, c, ev) {
		required = p.ReducedYears
	}

	years, source, found := e.residencyYears(ctx, c, ev)
	if !found {
		res.Reason = models.RequirementMinResidency.Citation()
		res.CriticalAlert = true
		res.Detail = "residency term not found"
		return res
	}

	res.Evidence = &years
	res.Detail = fmt.Sprintf("%.2f years from %s, %.0f required", years, source, required)
	res.Satisfied = years >= required-p.Tolerance
	if !res.Satisfied {
		res.Reason = models.RequirementMinResidency.Citation()
	}
	return res
}

// residencyBeforeThreshold tries the narrative flag, then the age at the
// declared residency start, then the applicant's age at case start.
func residencyBeforeThreshold(c *models.Case) (string, bool) {
	if c.HasFlag(models.FlagResidencyBeforeThreshold) {
		return "residency acquired before age 10", true
	}
	if raw := c.Field(models.FieldResidencyStart); raw != "" {
		if since, err := models.ParseDate(raw); err == nil {
			if age := AgeAt(*c.BirthDate, since); age < residencyThresholdAge {
				return fmt.Sprintf("entered at age %d per %s", age, models.FieldResidencyStart), true
			}
		}
	}
	if age := AgeAt(*c.BirthDate, c.StartDate); age < residencyThresholdAge {
		return fmt.Sprintf("applicant aged %d at case start", age), true
	}
	return "", false
}

// hasReduction checks the three statutory grounds for a shorter term. Each
// ground needs both the declared field and its supporting document.
func (e *Evaluator) hasReduction(ctx context.Context, c *models.Case, ev Evidence) bool {
	grounds := []struct {
		field    string
		document string
	}{
		{models.FieldTermReduction, models.DocTermReductionProof},
		{models.FieldBrazilianSpouse, models.DocMarriageCertificate},
		{models.FieldBrazilianChild, models.DocBirthCertificate},
	}
	for _, g := range grounds {
		if !textnorm.Affirmative(c.Field(g.field)) {
			continue
		}
		if valid, _, err := ev.CheckDocument(ctx, g.document); err == nil && valid {
			return true
		}
	}
	return false
}

func (e *Evaluator) residencyYears(ctx context.Context, c *models.Case, ev Evidence) (float64, string, bool) {
	if years, ok := ParseResidencyYears(c.Opinion, c.StartDate); ok {
		return years, "opinion", true
	}
	if raw := c.Field(models.FieldResidencyStart); raw != "" {
		if since, err := models.ParseDate(raw); err == nil {
			return YearsBetween(since, c.StartDate), models.FieldResidencyStart, true
		}
	}
	for _, doc := range []string{models.DocCRNM, models.DocResidencyProof} {
		_, text, err := ev.CheckDocument(ctx, doc)
		if err != nil || text == "" {
			continue
		}
		if years, ok := ParseResidencyYears(text, c.StartDate); ok {
			return years, doc, true
		}
	}
	return 0, "", false
}

func (e *Evaluator) languageProficiency(ctx context.Context, ev Evidence, p Policy) models.RequirementResult {
	return e.documentRequirement(ctx, ev, models.RequirementLanguageProficiency, p.WaiveLanguage,
		models.DocPortugueseProof)
}

func (e *Evaluator) criminalRecord(ctx context.Context, ev Evidence, p Policy) models.RequirementResult {
	return e.documentRequirement(ctx, ev, models.RequirementCriminalRecord, p.WaiveCriminalRecord,
		models.DocCriminalRecordBrazil, models.DocCriminalRecordOrigin)
}

// documentRequirement is satisfied when every listed document validates.
// All documents are looked up even after the first failure so the detail
// names every missing one.
func (e *Evaluator) documentRequirement(ctx context.Context, ev Evidence, code models.RequirementCode, waived bool, docs ...string) models.RequirementResult {
	res := models.RequirementResult{Code: code, Satisfied: true}
	if waived {
		res.Waived = true
		res.Detail = "not applicable to case type"
		return res
	}

	var missing []string
	for _, doc := range docs {
		valid, _, err := ev.CheckDocument(ctx, doc)
		if err != nil || !valid {
			missing = append(missing, doc)
		}
	}
	if len(missing) > 0 {
		res.Satisfied = false
		res.Reason = code.Citation()
		res.Detail = fmt.Sprintf("missing or invalid: %v", missing)
	}
	return res
}
