// pkg/registry/schema.go
package registry

// Rule effects.
const (
	EffectManualReview     = "manual_review"
	EffectSendToCommittee  = "send_to_committee"
	EffectAutomaticDenial  = "automatic_denial"
	EffectDeny             = "deny"
	EffectForceUnsatisfied = "force_unsatisfied"
	EffectFlag             = "flag"
)

// RuleTable is the on-disk narrative rule table.
type RuleTable struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Rules       []Rule `json:"rules"`
}

// Rule maps opinion phrases to an effect. Target names the requirement for
// force_unsatisfied and the flag for flag; it is empty otherwise. An empty
// CaseTypes list applies the rule to every case type.
type Rule struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority"`
	Effect      string   `json:"effect"`
	Target      string   `json:"target,omitempty"`
	Patterns    []string `json:"patterns"`
	CaseTypes   []string `json:"caseTypes,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
}

// RuleTableSchema is the JSON schema every rule table file must satisfy.
const RuleTableSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["version", "rules"],
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"lastUpdated": {"type": "string"},
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "priority", "effect", "patterns"],
				"properties": {
					"id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9_.-]*$"},
					"description": {"type": "string"},
					"priority": {"type": "integer", "minimum": 0},
					"effect": {
						"type": "string",
						"enum": ["manual_review", "send_to_committee", "automatic_denial", "deny", "force_unsatisfied", "flag"]
					},
					"target": {"type": "string"},
					"patterns": {
						"type": "array",
						"minItems": 1,
						"items": {"type": "string", "minLength": 1}
					},
					"caseTypes": {
						"type": "array",
						"items": {"type": "string", "enum": ["ordinary", "provisional"]}
					},
					"disabled": {"type": "boolean"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`
