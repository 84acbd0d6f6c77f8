package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

func intPtr(v int) *int { return &v }

func reassemblyRule(params *config.TokenReassemblyParams) *config.ExtractionRule {
	return &config.ExtractionRule{
		RuleID:          "tr-test",
		Method:          config.MethodTokenReassembly,
		ExtractionType:  config.TypeCandidateKey,
		TokenReassembly: params,
	}
}

func TestReassemblyHandler_Extract(t *testing.T) {
	h := NewReassemblyHandler(testLogger())

	rule := reassemblyRule(&config.TokenReassemblyParams{
		Tokenization: config.Tokenization{
			Separators: []string{"-", "_"},
			TokenPatterns: []config.TokenPattern{
				{Name: "prefix", Pattern: `[A-Z]+`, Position: intPtr(0), Required: true},
				{Name: "number", Pattern: `\d+`, Position: intPtr(1), Required: true},
			},
		},
		AssemblyRules: []config.AssemblyRule{
			{Name: "standard", Format: "{prefix}-{number}", Priority: 80},
		},
	})

	keys, err := h.Extract(context.Background(), "P_101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, "P-101", keys[0].Value)
	assert.InDelta(t, 0.8, keys[0].Confidence(), 0.001)
	assert.Equal(t, config.MethodTokenReassembly, keys[0].Method)
}

func TestReassemblyHandler_TokenBounds(t *testing.T) {
	h := NewReassemblyHandler(testLogger())

	rule := reassemblyRule(&config.TokenReassemblyParams{
		Tokenization: config.Tokenization{
			Separators: []string{"-"},
			MinTokens:  2,
			MaxTokens:  3,
			TokenPatterns: []config.TokenPattern{
				{Name: "prefix", Pattern: `[A-Z]+`, Position: intPtr(0)},
			},
		},
		AssemblyRules: []config.AssemblyRule{
			{Name: "passthrough", Format: "{prefix}", Priority: 50},
		},
	})

	keys, err := h.Extract(context.Background(), "JUSTONE", "tag", rule, nil)
	require.NoError(t, err)
	assert.Empty(t, keys, "below min_tokens should yield nothing")

	keys, err = h.Extract(context.Background(), "A-B-C-D", "tag", rule, nil)
	require.NoError(t, err)
	assert.Empty(t, keys, "above max_tokens should yield nothing")
}

func TestReassemblyHandler_Conditions(t *testing.T) {
	h := NewReassemblyHandler(testLogger())

	rule := reassemblyRule(&config.TokenReassemblyParams{
		Tokenization: config.Tokenization{
			Separators: []string{"-"},
			TokenPatterns: []config.TokenPattern{
				{Name: "prefix", Pattern: `[A-Z]+`, Position: intPtr(0), Required: true},
				{Name: "number", Pattern: `\d+`, Position: intPtr(1), Required: true},
				{Name: "suffix", Pattern: `[A-Z]`, Position: intPtr(2)},
			},
		},
		AssemblyRules: []config.AssemblyRule{
			{
				Name:     "without_suffix",
				Format:   "{prefix}-{number}",
				Priority: 70,
				Conditions: []config.AssemblyCondition{
					{Kind: "token_missing", Token: "suffix"},
				},
			},
			{
				Name:     "with_suffix",
				Format:   "{prefix}-{number}{suffix}",
				Priority: 90,
				Conditions: []config.AssemblyCondition{
					{Kind: "token_missing", Token: "suffix", Negate: true},
					{Kind: "all_required_present"},
				},
			},
		},
	})

	keys, err := h.Extract(context.Background(), "P-101-A", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101A", keys[0].Value)

	keys, err = h.Extract(context.Background(), "P-101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101", keys[0].Value)
}

func TestReassemblyHandler_Validation(t *testing.T) {
	h := NewReassemblyHandler(testLogger())

	rule := reassemblyRule(&config.TokenReassemblyParams{
		Tokenization: config.Tokenization{
			Separators: []string{"-"},
			TokenPatterns: []config.TokenPattern{
				{Name: "prefix", Pattern: `[A-Z]+`, Position: intPtr(0)},
				{Name: "number", Pattern: `\d+`, Position: intPtr(1)},
			},
		},
		AssemblyRules: []config.AssemblyRule{
			{Name: "standard", Format: "{prefix}-{number}", Priority: 80},
		},
		Validation: &config.ReassemblyValidation{Pattern: `[A-Z]-\d{3}`},
	})

	keys, err := h.Extract(context.Background(), "P-101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	// Two-letter prefix fails the whole-value validation pattern.
	keys, err = h.Extract(context.Background(), "PX-101", "tag", rule, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReassemblyHandler_CombinationCap(t *testing.T) {
	h := NewReassemblyHandler(testLogger())

	rule := reassemblyRule(&config.TokenReassemblyParams{
		Tokenization: config.Tokenization{
			Separators: []string{"-"},
			TokenPatterns: []config.TokenPattern{
				{Name: "token", Pattern: `\w+`},
			},
		},
		AssemblyRules: []config.AssemblyRule{
			{Name: "each", Format: "{token}", Priority: 50},
		},
		MaxCombinations: 2,
	})

	keys, err := h.Extract(context.Background(), "A-B-C-D-E", "tag", rule, nil)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestExpandFormat_MissingPlaceholder(t *testing.T) {
	_, err := expandFormat("{prefix}-{number}", map[string]string{"prefix": "P"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number")
}
