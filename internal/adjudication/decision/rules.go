package decision

import (
	"fmt"
	"sort"
	"strings"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/textnorm"
	"citizenship-adjudicator/internal/models"
	"citizenship-adjudicator/pkg/registry"
)

// Match is one rule that fired on an opinion.
type Match struct {
	RuleID   string
	Effect   string
	Target   string
	Priority int
	Pattern  string
	Reason   string
}

// Overrides is what the narrative scan found. Terminal is set when a
// manual review, committee or automatic denial rule fired.
type Overrides struct {
	Matches  []Match
	Terminal *Match
	Denials  []string
	Forced   map[models.RequirementCode]string
	Flags    map[string]bool
}

// HasFlag reports whether a flag rule fired.
func (o Overrides) HasFlag(name string) bool {
	return o.Flags[name]
}

// ApplyForced returns a copy of results with every forced requirement marked
// unsatisfied. Waived requirements are left alone.
func (o Overrides) ApplyForced(results []models.RequirementResult) []models.RequirementResult {
	if len(o.Forced) == 0 {
		return results
	}
	out := make([]models.RequirementResult, len(results))
	copy(out, results)
	for i := range out {
		ruleID, forced := o.Forced[out[i].Code]
		if !forced || out[i].Waived || !out[i].Satisfied {
			continue
		}
		out[i].Satisfied = false
		out[i].Reason = out[i].Code.Citation()
		out[i].Detail = fmt.Sprintf("forced unsatisfied by rule %s", ruleID)
	}
	return out
}

type compiledRule struct {
	id          string
	priority    int
	effect      string
	target      string
	description string
	patterns    []string
	folded      []string
	caseTypes   map[models.CaseType]bool
}

func (r compiledRule) appliesTo(ct models.CaseType) bool {
	return len(r.caseTypes) == 0 || r.caseTypes[ct]
}

// RuleSet is a compiled rule table ordered by priority.
type RuleSet struct {
	version string
	rules   []compiledRule
}

// Compile folds patterns and checks targets against the known requirements.
func Compile(table *registry.RuleTable) (*RuleSet, error) {
	if table == nil {
		return nil, apperrors.NewRuleTableInvalidError("nil rule table")
	}
	if err := table.Validate(); err != nil {
		return nil, apperrors.NewRuleTableInvalidError(err.Error())
	}

	rs := &RuleSet{version: table.Version}
	for _, r := range table.Rules {
		if r.Disabled {
			continue
		}
		if r.Effect == registry.EffectForceUnsatisfied {
			if _, ok := models.ParseRequirementCode(r.Target); !ok {
				return nil, apperrors.NewRuleTableInvalidError(
					fmt.Sprintf("rule %q: unknown requirement %q", r.ID, r.Target))
			}
		}
		cr := compiledRule{
			id:          r.ID,
			priority:    r.Priority,
			effect:      r.Effect,
			target:      r.Target,
			description: r.Description,
			patterns:    r.Patterns,
		}
		for _, p := range r.Patterns {
			cr.folded = append(cr.folded, textnorm.Fold(p))
		}
		if len(r.CaseTypes) > 0 {
			cr.caseTypes = make(map[models.CaseType]bool, len(r.CaseTypes))
			for _, raw := range r.CaseTypes {
				ct, ok := models.ParseCaseType(raw)
				if !ok {
					return nil, apperrors.NewRuleTableInvalidError(
						fmt.Sprintf("rule %q: unknown case type %q", r.ID, raw))
				}
				cr.caseTypes[ct] = true
			}
		}
		rs.rules = append(rs.rules, cr)
	}

	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].priority < rs.rules[j].priority
	})
	return rs, nil
}

// LoadRuleSet compiles the rule table at path, or the built-in table when
// path is empty.
func LoadRuleSet(path string) (*RuleSet, error) {
	if path == "" {
		return Compile(DefaultRuleTable())
	}
	table, err := registry.LoadRuleTable(path)
	if err != nil {
		return nil, apperrors.NewRuleTableInvalidError(fmt.Sprintf("%s: %v", path, err))
	}
	return Compile(table)
}

// MustDefaultRuleSet compiles the built-in table.
func MustDefaultRuleSet() *RuleSet {
	rs, err := Compile(DefaultRuleTable())
	if err != nil {
		panic(err)
	}
	return rs
}

func (rs *RuleSet) Version() string {
	return rs.version
}

func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Scan matches the folded opinion against every rule that applies to the
// case type. Each rule fires at most once.
func (rs *RuleSet) Scan(opinion string, ct models.CaseType) Overrides {
	out := Overrides{
		Forced: map[models.RequirementCode]string{},
		Flags:  map[string]bool{},
	}
	text := textnorm.Fold(opinion)
	if text == "" {
		return out
	}

	for _, r := range rs.rules {
		if !r.appliesTo(ct) {
			continue
		}
		idx := -1
		for i, p := range r.folded {
			if p != "" && strings.Contains(text, p) {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		m := Match{
			RuleID:   r.id,
			Effect:   r.effect,
			Target:   r.target,
			Priority: r.priority,
			Pattern:  r.patterns[idx],
			Reason:   r.description,
		}
		if m.Reason == "" {
			m.Reason = r.patterns[idx]
		}
		out.Matches = append(out.Matches, m)

		switch r.effect {
		case registry.EffectDeny:
			out.Denials = append(out.Denials, m.Reason)
		case registry.EffectForceUnsatisfied:
			out.Forced[models.RequirementCode(r.target)] = r.id
		case registry.EffectFlag:
			out.Flags[r.target] = true
		}
	}

	out.Terminal = pickTerminal(out.Matches)
	return out
}

func isTerminal(effect string) bool {
	switch effect {
	case registry.EffectManualReview, registry.EffectSendToCommittee, registry.EffectAutomaticDenial:
		return true
	}
	return false
}

// pickTerminal returns the lowest-priority terminal match. A manual review
// match always beats an automatic denial regardless of priority.
func pickTerminal(matches []Match) *Match {
	var best, review *Match
	for i := range matches {
		m := &matches[i]
		if !isTerminal(m.Effect) {
			continue
		}
		if m.Effect == registry.EffectManualReview && (review == nil || m.Priority < review.Priority) {
			review = m
		}
		if best == nil || m.Priority < best.Priority {
			best = m
		}
	}
	if best != nil && best.Effect == registry.EffectAutomaticDenial && review != nil {
		return review
	}
	return best
}

// terminalKind maps a terminal effect to its decision.
func terminalKind(effect string) models.DecisionKind {
	switch effect {
	case registry.EffectManualReview:
		return models.DecisionManualReview
	case registry.EffectSendToCommittee:
		return models.DecisionSendToCommittee
	default:
		return models.DecisionAutomaticDenial
	}
}
