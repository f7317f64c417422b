// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"citizenship-adjudicator/internal/common/validation"
)

// LoadRuleTable reads and validates a rule table file.
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRuleTable(data)
}

// ParseRuleTable validates raw JSON against RuleTableSchema and the
// cross-field rules the schema cannot express.
func ParseRuleTable(data []byte) (*RuleTable, error) {
	res, err := validation.ValidateJSON(RuleTableSchema, data)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, fmt.Errorf("rule table does not match schema: %s", strings.Join(res.GetErrorMessages(), "; "))
	}

	var table RuleTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks rule IDs are unique and that targets are set exactly for
// the effects that need one.
func (t *RuleTable) Validate() error {
	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		needsTarget := r.Effect == EffectForceUnsatisfied || r.Effect == EffectFlag
		if needsTarget && r.Target == "" {
			return fmt.Errorf("rule %q: effect %s requires a target", r.ID, r.Effect)
		}
		if !needsTarget && r.Target != "" {
			return fmt.Errorf("rule %q: effect %s takes no target", r.ID, r.Effect)
		}
	}
	return nil
}

// SaveRuleTable writes the table sorted by priority then ID.
func SaveRuleTable(path string, t *RuleTable) error {
	if err := t.Validate(); err != nil {
		return err
	}
	sort.SliceStable(t.Rules, func(i, j int) bool {
		if t.Rules[i].Priority != t.Rules[j].Priority {
			return t.Rules[i].Priority < t.Rules[j].Priority
		}
		return t.Rules[i].ID < t.Rules[j].ID
	})
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Find returns the rule with the given ID.
func (t *RuleTable) Find(id string) (*Rule, bool) {
	for i := range t.Rules {
		if t.Rules[i].ID == id {
			return &t.Rules[i], true
		}
	}
	return nil, false
}
