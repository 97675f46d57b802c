package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type ruleFile struct {
	Groups []alertGroup `yaml:"groups"`
}

func TestAuthAlertRules(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "auth.yml"))
	require.NoError(t, err)

	var rules ruleFile
	require.NoError(t, yaml.Unmarshal(data, &rules))
	require.Len(t, rules.Groups, 1)
	group := rules.Groups[0]
	assert.Equal(t, "auth", group.Name)

	expected := map[string]string{
		"LockoutSpike":            "warning",
		"AuthServerErrors":        "critical",
		"HighLatency":             "warning",
		"AccountEventJobFailures": "warning",
	}
	require.Len(t, group.Rules, len(expected))

	for _, rule := range group.Rules {
		severity, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.Expr, rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
		assert.Contains(t, rule.Annotations["runbook"], "docs/runbook-auth.md#", rule.Alert)
		assert.Contains(t, rule.Expr, "companion_", rule.Alert)
	}
}
