package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenship-adjudicator/pkg/registry"
)

func useRulesPath(t *testing.T) string {
	t.Helper()
	prev := rulesPath
	rulesPath = filepath.Join(t.TempDir(), "configs", "rules.json")
	t.Cleanup(func() { rulesPath = prev })
	return rulesPath
}

func TestAddUpdateValidate(t *testing.T) {
	path := useRulesPath(t)

	require.NoError(t, addRule(registry.Rule{
		ID:       "no-show-collection",
		Priority: 10,
		Effect:   registry.EffectAutomaticDenial,
		Patterns: splitList("não compareceu à coleta, ausente na coleta"),
	}))
	assert.Error(t, addRule(registry.Rule{
		ID:       "no-show-collection",
		Priority: 1,
		Effect:   registry.EffectDeny,
		Patterns: []string{"x"},
	}))

	require.NoError(t, updateRule("no-show-collection", "priority", "5"))
	assert.Error(t, updateRule("no-show-collection", "priority", "five"))
	assert.Error(t, updateRule("no-show-collection", "color", "red"))
	assert.Error(t, updateRule("missing", "priority", "1"))

	n, err := validateRules()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	table, err := registry.LoadRuleTable(path)
	require.NoError(t, err)
	rule, ok := table.Find("no-show-collection")
	require.True(t, ok)
	assert.Equal(t, 5, rule.Priority)
	assert.Equal(t, []string{"não compareceu à coleta", "ausente na coleta"}, rule.Patterns)
	assert.NotEmpty(t, table.LastUpdated)
}

func TestAddRule_RejectsUncompilableRule(t *testing.T) {
	useRulesPath(t)

	err := addRule(registry.Rule{
		ID:       "height",
		Priority: 1,
		Effect:   registry.EffectForceUnsatisfied,
		Target:   "HEIGHT",
		Patterns: []string{"baixo"},
	})
	require.Error(t, err)

	_, err = validateRules()
	assert.Error(t, err)
}

func TestExportDefaults(t *testing.T) {
	path := useRulesPath(t)

	require.NoError(t, exportDefaults())
	n, err := validateRules()
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	err = exportDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestUsageListsEveryCommand(t *testing.T) {
	for _, cmd := range []string{"add", "update", "validate", "list", "export", "help"} {
		assert.True(t, strings.Contains(usage, "\n  "+cmd+" "), cmd)
	}
}
