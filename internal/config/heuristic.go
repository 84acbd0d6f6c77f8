package config

import (
	"fmt"
	"regexp"
)

// Heuristic strategy kinds.
const (
	StrategyPositional = "positional_detection"
	StrategyFrequency  = "frequency_analysis"
	StrategyContext    = "context_inference"
	StrategyExamples   = "example_based_learning"
)

// HeuristicParams configures the heuristic extraction method: a weighted
// ensemble of strategies followed by confidence modifiers.
type HeuristicParams struct {
	Strategies          []HeuristicStrategy  `koanf:"strategies"`
	ConfidenceModifiers []ConfidenceModifier `koanf:"confidence_modifiers"`

	// CandidatePattern overrides the default candidate shape
	// ([A-Z0-9-_]{3,15}) used by frequency, context and example
	// strategies.
	CandidatePattern string `koanf:"candidate_pattern"`
}

// HeuristicStrategy is one member of the ensemble. Method is the
// discriminator; exactly one matching block must be set, mirroring the
// extraction rule union.
type HeuristicStrategy struct {
	Method string  `koanf:"method"`
	Weight float64 `koanf:"weight"`

	Positional []PositionalRule `koanf:"positional"`
	Frequency  *FrequencyRule   `koanf:"frequency"`
	Context    *ContextRule     `koanf:"context"`
	Examples   *ExampleRule     `koanf:"examples"`
}

// PositionalRule scores candidates by where they sit in the field.
// Position is one of start_of_field, after_keyword, in_parentheses.
type PositionalRule struct {
	Position        string   `koanf:"position"`
	Pattern         string   `koanf:"pattern"`
	Keywords        []string `koanf:"keywords"`
	ConfidenceBoost float64  `koanf:"confidence_boost"`
}

// FrequencyRule scores candidates by how often they recur, optionally
// over a corpus fetched through the injected provider.
type FrequencyRule struct {
	AnalyzeCorpus bool `koanf:"analyze_corpus"`
	MinFrequency  int  `koanf:"min_frequency"`

	CommonPrefixDetection *AffixDetection `koanf:"common_prefix_detection"`
	CommonSuffixDetection *AffixDetection `koanf:"common_suffix_detection"`
	NGramAnalysis         *NGramAnalysis  `koanf:"ngram_analysis"`
}

// AffixDetection boosts candidates sharing frequent prefixes/suffixes,
// weighted by inverse rank.
type AffixDetection struct {
	Enabled       bool    `koanf:"enabled"`
	MinFrequency  int     `koanf:"min_frequency"`
	Lengths       []int   `koanf:"lengths"`
	ScoreModifier float64 `koanf:"score_modifier"`
}

// NGramAnalysis boosts candidates containing frequent n-grams.
type NGramAnalysis struct {
	Enabled       bool    `koanf:"enabled"`
	Sizes         []int   `koanf:"sizes"`
	ScoreModifier float64 `koanf:"score_modifier"`
}

// ContextRule scores candidates by keyword proximity within a window.
type ContextRule struct {
	PositiveKeywords []string `koanf:"positive_keywords"`
	NegativeKeywords []string `koanf:"negative_keywords"`
	ProximityBonus   float64  `koanf:"proximity_bonus"`
	ContextWindow    int      `koanf:"context_window"`
}

// ExampleRule scores candidates by structural similarity to known tag
// shapes.
type ExampleRule struct {
	Mode string `koanf:"mode"`
}

// ConfidenceModifier adjusts the aggregate score when its condition
// holds. Modifier is a signed delta string such as "+0.1" or "-0.05".
type ConfidenceModifier struct {
	Condition  string   `koanf:"condition"`
	Modifier   string   `koanf:"modifier"`
	FieldNames []string `koanf:"field_names"`
	Range      []int    `koanf:"range"`
	Catalog    []string `koanf:"catalog"`
	MinAgree   int      `koanf:"min_agree"`
}

// Confidence modifier conditions.
const (
	ModifierStrategiesAgree = "multiple_strategies_agree"
	ModifierFieldName       = "field_name_indicates_tag"
	ModifierValueLength     = "extracted_value_length"
	ModifierKnownCatalog    = "extracted_value_in_known_catalog"
)

func (p *HeuristicParams) validate() error {
	if len(p.Strategies) == 0 {
		return fmt.Errorf("%w: heuristic rule needs strategies", ErrInvalidRule)
	}
	if p.CandidatePattern != "" {
		if _, err := regexp.Compile(p.CandidatePattern); err != nil {
			return fmt.Errorf("%w: candidate_pattern: %w", ErrInvalidRule, err)
		}
	}
	for _, s := range p.Strategies {
		blocks := map[string]bool{
			StrategyPositional: len(s.Positional) > 0,
			StrategyFrequency:  s.Frequency != nil,
			StrategyContext:    s.Context != nil,
			StrategyExamples:   s.Examples != nil,
		}
		want, known := blocks[s.Method]
		if !known {
			return fmt.Errorf("%w: unknown heuristic strategy %q", ErrInvalidRule, s.Method)
		}
		if !want {
			return fmt.Errorf("%w: strategy %q has no matching parameter block", ErrInvalidRule, s.Method)
		}
		for _, pr := range s.Positional {
			switch pr.Position {
			case "start_of_field", "after_keyword", "in_parentheses":
			default:
				return fmt.Errorf("%w: unknown position %q", ErrInvalidRule, pr.Position)
			}
			if pr.Pattern == "" {
				return fmt.Errorf("%w: positional rule needs pattern", ErrInvalidRule)
			}
			if _, err := regexp.Compile(pr.Pattern); err != nil {
				return fmt.Errorf("%w: positional pattern: %w", ErrInvalidRule, err)
			}
		}
	}
	for _, m := range p.ConfidenceModifiers {
		switch m.Condition {
		case ModifierStrategiesAgree, ModifierFieldName, ModifierValueLength, ModifierKnownCatalog:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownCondition, m.Condition)
		}
		if m.Modifier == "" {
			return fmt.Errorf("%w: modifier for %q needs a signed delta", ErrInvalidRule, m.Condition)
		}
	}
	return nil
}
