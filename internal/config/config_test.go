package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "%03d/%d", cfg.Numbering.Format)

	rules := cfg.LifecycleRules()
	assert.True(t, rules.SubjectBound[domain.CategoryAppointment])
	assert.False(t, rules.SubjectBound[domain.CategoryPlacement])
	assert.Equal(t, "Resolução", rules.KindLabel("resolucao"))
	assert.Equal(t, domain.CategoryNormative, rules.RetificationCategory)
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
institute:
  name: Instituto Federal
rules:
  subject_bound: [appointment]
  retification_category: other
log:
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, "Instituto Federal", cfg.Institute.Name)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"appointment"}, cfg.Rules.SubjectBound)
	assert.Equal(t, "Portaria", cfg.Instruments["portaria"].Label)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"unknown category": "rules:\n  subject_bound: [promotion]\n",
		"bad numbering":    "numbering:\n  format: \"%d\"\n",
		"empty label":      "instruments:\n  portaria:\n    label: \"\"\n",
		"bad log level":    "log:\n  level: loud\n",
		"bad retification": "rules:\n  retification_category: erratum\n",
		"malformed yaml":   "institute: [",
		"blank institute":  "institute:\n  name: \" \"\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("institute:\n  name: IFX\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "IFX", cfg.Institute.Name)
}

func TestWebhooksAreValidated(t *testing.T) {
	cfg, err := FromYAML([]byte(`
webhooks:
  - url: https://hooks.example/acts
    events: [act.revoked]
    secret: s
`))
	require.NoError(t, err)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"act.revoked"}, cfg.Webhooks[0].Events)

	_, err = FromYAML([]byte("webhooks:\n  - url: ftp://hooks.example\n"))
	assert.ErrorContains(t, err, "webhooks[0].url")
}
