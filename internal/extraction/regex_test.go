package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

func regexRule(pattern string) *config.ExtractionRule {
	return &config.ExtractionRule{
		RuleID:         "regex-test",
		Method:         config.MethodRegex,
		ExtractionType: config.TypeCandidateKey,
		Regex:          &config.RegexParams{Pattern: pattern},
	}
}

func TestRegexHandler_Extract(t *testing.T) {
	h := NewRegexHandler(testLogger())

	keys, err := h.Extract(context.Background(), "P-101 discharge pump", "name", regexRule(`(P-\d{3})`), nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, "P-101", keys[0].Value)
	assert.Equal(t, "name", keys[0].SourceField)
	assert.Equal(t, config.MethodRegex, keys[0].Method)
	// 0.4 base, +0.1 length, +0.1 opens the field, +0.05 word boundary.
	assert.InDelta(t, 0.65, keys[0].Confidence(), 0.001)
}

func TestRegexHandler_MultipleMatches(t *testing.T) {
	h := NewRegexHandler(testLogger())

	keys, err := h.Extract(context.Background(), "P-101 feeds V-201", "description", regexRule(`([A-Z]-\d{3})`), nil)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "P-101", keys[0].Value)
	assert.Equal(t, "V-201", keys[1].Value)
}

func TestRegexHandler_NoCaptureGroup(t *testing.T) {
	h := NewRegexHandler(testLogger())

	_, err := h.Extract(context.Background(), "P-101", "name", regexRule(`P-\d{3}`), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidRule)
}

func TestRegexHandler_MinConfidence(t *testing.T) {
	h := NewRegexHandler(testLogger())

	rule := regexRule(`(P-\d{3})`)
	rule.MinConfidence = 0.99

	keys, err := h.Extract(context.Background(), "P-101 discharge pump", "name", rule, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRegexHandler_IgnoreCase(t *testing.T) {
	h := NewRegexHandler(testLogger())

	rule := regexRule(`(p-\d{3})`)
	rule.Regex.Options.IgnoreCase = true

	keys, err := h.Extract(context.Background(), "P-101 discharge pump", "name", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101", keys[0].Value)
}

func TestRegexHandler_EmptyText(t *testing.T) {
	h := NewRegexHandler(testLogger())

	keys, err := h.Extract(context.Background(), "", "name", regexRule(`(P-\d{3})`), nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
