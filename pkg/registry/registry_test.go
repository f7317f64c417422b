package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleTable(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "valid table",
			body: `{"version": "1", "rules": [
				{"id": "no-show", "priority": 1, "effect": "automatic_denial", "patterns": ["nao compareceu"]},
				{"id": "language", "priority": 2, "effect": "force_unsatisfied", "target": "LANGUAGE_PROFICIENCY", "patterns": ["nao fala portugues"]}
			]}`,
		},
		{
			name:    "unknown effect",
			body:    `{"version": "1", "rules": [{"id": "x", "priority": 1, "effect": "approve", "patterns": ["a"]}]}`,
			wantErr: "does not match schema",
		},
		{
			name:    "no patterns",
			body:    `{"version": "1", "rules": [{"id": "x", "priority": 1, "effect": "deny", "patterns": []}]}`,
			wantErr: "does not match schema",
		},
		{
			name: "duplicate id",
			body: `{"version": "1", "rules": [
				{"id": "x", "priority": 1, "effect": "deny", "patterns": ["a"]},
				{"id": "x", "priority": 2, "effect": "deny", "patterns": ["b"]}
			]}`,
			wantErr: `duplicate rule id "x"`,
		},
		{
			name:    "flag without target",
			body:    `{"version": "1", "rules": [{"id": "x", "priority": 1, "effect": "flag", "patterns": ["a"]}]}`,
			wantErr: "requires a target",
		},
		{
			name:    "deny with target",
			body:    `{"version": "1", "rules": [{"id": "x", "priority": 1, "effect": "deny", "target": "AGE", "patterns": ["a"]}]}`,
			wantErr: "takes no target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseRuleTable([]byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, table.Rules, 2)
		})
	}
}

func TestSaveRuleTable_SortsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	table := &RuleTable{
		Version: "1",
		Rules: []Rule{
			{ID: "b", Priority: 20, Effect: EffectDeny, Patterns: []string{"b"}},
			{ID: "c", Priority: 10, Effect: EffectDeny, Patterns: []string{"c"}},
			{ID: "a", Priority: 20, Effect: EffectDeny, Patterns: []string{"a"}},
		},
	}
	require.NoError(t, SaveRuleTable(path, table))

	loaded, err := LoadRuleTable(path)
	require.NoError(t, err)
	ids := []string{loaded.Rules[0].ID, loaded.Rules[1].ID, loaded.Rules[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	rule, ok := loaded.Find("a")
	require.True(t, ok)
	assert.Equal(t, 20, rule.Priority)
	_, ok = loaded.Find("missing")
	assert.False(t, ok)
}

func TestLoadRuleTable_MissingFile(t *testing.T) {
	_, err := LoadRuleTable(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, os.IsNotExist(err))
}
