package extraction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

func heuristicRule(params *config.HeuristicParams) *config.ExtractionRule {
	return &config.ExtractionRule{
		RuleID:         "heur-test",
		Method:         config.MethodHeuristic,
		ExtractionType: config.TypeCandidateKey,
		Heuristic:      params,
	}
}

func TestHeuristicHandler_ExampleBased(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		Strategies: []config.HeuristicStrategy{
			{Method: config.StrategyExamples, Weight: 1.0, Examples: &config.ExampleRule{}},
		},
	})

	keys, err := h.Extract(context.Background(), "P-101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, "P-101", keys[0].Value)
	// 0.3 base, +0.3 loose tag shape, +0.2 tight industrial shape.
	assert.InDelta(t, 0.8, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_PositionalStartOfField(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		Strategies: []config.HeuristicStrategy{
			{
				Method: config.StrategyPositional,
				Weight: 1.0,
				Positional: []config.PositionalRule{
					{Position: "start_of_field", Pattern: `[A-Z]-\d+`},
				},
			},
		},
	})

	keys, err := h.Extract(context.Background(), "P-101 centrifugal pump", "name", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101", keys[0].Value)
	assert.InDelta(t, 0.7, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_PositionalAfterKeyword(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		Strategies: []config.HeuristicStrategy{
			{
				Method: config.StrategyPositional,
				Weight: 1.0,
				Positional: []config.PositionalRule{
					{Position: "after_keyword", Pattern: `[A-Z]-\d+`, Keywords: []string{"Tag:"}},
				},
			},
		},
	})

	keys, err := h.Extract(context.Background(), "Tag: P-101", "description", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101", keys[0].Value)
	assert.InDelta(t, 0.8, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_ContextInference(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		CandidatePattern: `[A-Z]-\d+`,
		Strategies: []config.HeuristicStrategy{
			{
				Method: config.StrategyContext,
				Weight: 1.0,
				Context: &config.ContextRule{
					PositiveKeywords: []string{"pump"},
					ProximityBonus:   0.2,
				},
			},
		},
	})

	keys, err := h.Extract(context.Background(), "pump P-101 outlet", "name", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	// 0.4 base + 0.2 proximity.
	assert.InDelta(t, 0.6, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_ModifierValueLength(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		Strategies: []config.HeuristicStrategy{
			{Method: config.StrategyExamples, Weight: 1.0, Examples: &config.ExampleRule{}},
		},
		ConfidenceModifiers: []config.ConfidenceModifier{
			{Condition: config.ModifierValueLength, Modifier: "+0.1", Range: []int{5, 20}},
		},
	})

	keys, err := h.Extract(context.Background(), "P-101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.InDelta(t, 0.9, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_ModifierStrategiesAgree(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		CandidatePattern: `[A-Z]-\d+`,
		Strategies: []config.HeuristicStrategy{
			{Method: config.StrategyExamples, Weight: 0.3, Examples: &config.ExampleRule{}},
			{
				Method: config.StrategyContext,
				Weight: 0.3,
				Context: &config.ContextRule{
					PositiveKeywords: []string{"pump"},
					ProximityBonus:   0.2,
				},
			},
		},
		ConfidenceModifiers: []config.ConfidenceModifier{
			{Condition: config.ModifierStrategiesAgree, Modifier: "+0.15"},
		},
	})

	keys, err := h.Extract(context.Background(), "pump P-101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, 2, keys[0].Metadata["strategies_agreed"])
	// 0.8*0.3 example + 0.6*0.3 context + 0.15 agreement.
	assert.InDelta(t, 0.57, keys[0].Confidence(), 0.001)
}

func TestHeuristicHandler_DeterministicOrder(t *testing.T) {
	h := NewHeuristicHandler(testLogger(), nil)

	rule := heuristicRule(&config.HeuristicParams{
		CandidatePattern: `[A-Z]-\d+`,
		Strategies: []config.HeuristicStrategy{
			{Method: config.StrategyExamples, Weight: 1.0, Examples: &config.ExampleRule{}},
		},
	})

	text := "V-201 P-101 T-301"
	var previous []string
	for i := 0; i < 5; i++ {
		keys, err := h.Extract(context.Background(), text, "tag", rule, nil)
		require.NoError(t, err)

		values := make([]string, len(keys))
		for j, key := range keys {
			values[j] = key.Value
		}
		if previous != nil {
			assert.Equal(t, previous, values, "ordering must be stable across runs")
		}
		previous = values
	}
}

type stubCorpus struct {
	values []string
	err    error

	ref CorpusRef
}

func (s *stubCorpus) FieldValues(_ context.Context, ref CorpusRef, _ int) ([]string, error) {
	s.ref = ref
	return s.values, s.err
}

func TestHeuristicHandler_FrequencyWithCorpus(t *testing.T) {
	corpus := &stubCorpus{values: []string{"P-101 inlet", "P-101 outlet", "V-201 drain"}}
	h := NewHeuristicHandler(testLogger(), corpus)

	rule := heuristicRule(&config.HeuristicParams{
		CandidatePattern: `[A-Z]-\d+`,
		Strategies: []config.HeuristicStrategy{
			{
				Method:    config.StrategyFrequency,
				Weight:    1.0,
				Frequency: &config.FrequencyRule{AnalyzeCorpus: true, MinFrequency: 2},
			},
		},
	})

	enrich := map[string]string{"instance_space": "plant-a", "view": "assets"}
	keys, err := h.Extract(context.Background(), "P-101 inlet", "description", rule, enrich)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P-101", keys[0].Value)
	// 0.5 base + 0.05 repeated + 0.01 typical length.
	assert.InDelta(t, 0.56, keys[0].Confidence(), 0.001)

	// The lookup is scoped by the entity's instance space and view.
	assert.Equal(t, CorpusRef{Space: "plant-a", View: "assets", Field: "description"}, corpus.ref)
}

func TestHeuristicHandler_CorpusFailureDegrades(t *testing.T) {
	corpus := &stubCorpus{err: fmt.Errorf("store unavailable")}
	h := NewHeuristicHandler(testLogger(), corpus)

	rule := heuristicRule(&config.HeuristicParams{
		CandidatePattern: `[A-Z]-\d+`,
		Strategies: []config.HeuristicStrategy{
			{
				Method:    config.StrategyFrequency,
				Weight:    1.0,
				Frequency: &config.FrequencyRule{AnalyzeCorpus: true},
			},
		},
	})

	keys, err := h.Extract(context.Background(), "P-101 inlet", "description", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1, "provider failure falls back to the input text")
	assert.Equal(t, "P-101", keys[0].Value)
}
