package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
extraction:
  field_selection_strategy: first_match
  min_key_length: 4
  rules:
    - rule_id: pump_tags
      method: regex
      priority: 10
      regex:
        pattern: '(P-\d{3})'
      source_fields:
        - field_name: name
          required: true
aliasing:
  rules:
    - name: separators
      type: character_substitution
      character_substitution:
        substitutions:
          "-": ["_", ""]
  validation:
    max_aliases_per_tag: 25
logging:
  level: debug
  format: console
`

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "first_match", cfg.Extraction.FieldSelectionStrategy)
	assert.Equal(t, 4, cfg.Extraction.MinKeyLength)
	require.Len(t, cfg.Extraction.Rules, 1)
	assert.Equal(t, "pump_tags", cfg.Extraction.Rules[0].RuleID)
	require.NotNil(t, cfg.Extraction.Rules[0].Regex)
	assert.Equal(t, `(P-\d{3})`, cfg.Extraction.Rules[0].Regex.Pattern)

	require.Len(t, cfg.Aliasing.Rules, 1)
	assert.Equal(t, 25, cfg.Aliasing.Validation.MaxAliasesPerTag)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadBytes_Defaults(t *testing.T) {
	cfg, err := LoadBytes([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "merge_all", cfg.Extraction.FieldSelectionStrategy)
	assert.Equal(t, 3, cfg.Extraction.MinKeyLength)
	assert.Equal(t, 1, cfg.Aliasing.Validation.MinAliasLength)
	assert.Equal(t, 100, cfg.Aliasing.Validation.MaxAliasLength)
	assert.Equal(t, 50, cfg.Aliasing.Validation.MaxAliasesPerTag)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadBytes_ScalarConditionValue(t *testing.T) {
	// Weakly typed decoding accepts a scalar where a list is declared.
	doc := `
aliasing:
  rules:
    - name: scoped
      type: case_transformation
      conditions:
        entity_type: equipment
      case_transformation:
        operations: [upper]
`
	cfg, err := LoadBytes([]byte(doc))
	require.NoError(t, err)

	require.Len(t, cfg.Aliasing.Rules, 1)
	assert.Equal(t, []string{"equipment"}, cfg.Aliasing.Rules[0].Conditions["entity_type"])
}

func TestLoadBytes_InvalidStrategy(t *testing.T) {
	_, err := LoadBytes([]byte("extraction:\n  field_selection_strategy: sometimes\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestLoadBytes_InvalidRuleSurvivesLoad(t *testing.T) {
	// A broken rule is not a document error; the engines validate and
	// drop individual rules at construction.
	doc := `
extraction:
  rules:
    - rule_id: broken
      method: regex
    - rule_id: pump_tags
      method: regex
      regex:
        pattern: '(P-\d{3})'
`
	cfg, err := LoadBytes([]byte(doc))
	require.NoError(t, err)
	require.Len(t, cfg.Extraction.Rules, 2)

	assert.ErrorIs(t, cfg.Extraction.Rules[0].Validate(), ErrInvalidRule)
	assert.NoError(t, cfg.Extraction.Rules[1].Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first_match", cfg.Extraction.FieldSelectionStrategy)
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "merge_all", cfg.Extraction.FieldSelectionStrategy)
}

func TestLoadFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	t.Setenv("TAGFORGE_LOGGING_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level, "environment overrides the file")
}
