package config

import (
	"errors"
	"testing"
)

func validRegexRule() ExtractionRule {
	return ExtractionRule{
		RuleID: "r1",
		Method: MethodRegex,
		Regex:  &RegexParams{Pattern: `(P-\d+)`},
	}
}

func TestExtractionRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExtractionRule)
		wantErr error
	}{
		{name: "valid", mutate: func(r *ExtractionRule) {}},
		{
			name:    "missing rule id",
			mutate:  func(r *ExtractionRule) { r.RuleID = "" },
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unknown method",
			mutate:  func(r *ExtractionRule) { r.Method = "guesswork" },
			wantErr: ErrUnknownMethod,
		},
		{
			name:    "missing parameter block",
			mutate:  func(r *ExtractionRule) { r.Regex = nil },
			wantErr: ErrInvalidRule,
		},
		{
			name: "mismatched parameter block",
			mutate: func(r *ExtractionRule) {
				r.Heuristic = &HeuristicParams{Strategies: []HeuristicStrategy{{Method: StrategyExamples, Examples: &ExampleRule{}}}}
			},
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unparseable pattern",
			mutate:  func(r *ExtractionRule) { r.Regex.Pattern = `[` },
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unknown extraction type",
			mutate:  func(r *ExtractionRule) { r.ExtractionType = "mystery_key" },
			wantErr: ErrInvalidRule,
		},
		{
			name: "unsupported fixed width encoding",
			mutate: func(r *ExtractionRule) {
				r.Method = MethodFixedWidth
				r.Regex = nil
				r.FixedWidth = &FixedWidthParams{
					Encoding:  "ebcdic",
					Positions: []PositionSpec{{Start: 0, End: 4, Type: "number"}},
				}
			},
			wantErr: ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRegexRule()
			tt.mutate(&rule)

			err := rule.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}

			var ruleErr *RuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("Validate() error %v is not a RuleError", err)
			}
		})
	}
}

func TestExtractionRule_ValidateTokenReassembly(t *testing.T) {
	rule := ExtractionRule{
		RuleID: "tr",
		Method: MethodTokenReassembly,
		TokenReassembly: &TokenReassemblyParams{
			Tokenization: Tokenization{
				Separators: []string{"-"},
				TokenPatterns: []TokenPattern{
					{Name: "prefix", Pattern: `[A-Z]+`},
				},
			},
			AssemblyRules: []AssemblyRule{
				{Name: "a", Format: "{prefix}", Conditions: []AssemblyCondition{
					{Kind: "token_missing", Token: "nonexistent"},
				}},
			},
		},
	}

	err := rule.Validate()
	if !errors.Is(err, ErrUnknownCondition) {
		t.Fatalf("Validate() error = %v, want ErrUnknownCondition", err)
	}
}

func TestExtractionRule_IsEnabled(t *testing.T) {
	rule := validRegexRule()
	if !rule.IsEnabled() {
		t.Error("rules default to enabled")
	}

	off := false
	rule.Enabled = &off
	if rule.IsEnabled() {
		t.Error("explicitly disabled rule reported enabled")
	}
}

func TestRegexOptions_FlagPrefix(t *testing.T) {
	tests := []struct {
		opts RegexOptions
		want string
	}{
		{RegexOptions{}, ""},
		{RegexOptions{IgnoreCase: true}, "(?i)"},
		{RegexOptions{IgnoreCase: true, Multiline: true, DotAll: true}, "(?ims)"},
	}
	for _, tt := range tests {
		if got := tt.opts.FlagPrefix(); got != tt.want {
			t.Errorf("FlagPrefix(%+v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestExtractionConfig_ApplyDefaults(t *testing.T) {
	var cfg ExtractionConfig
	cfg.ApplyDefaults()

	if cfg.FieldSelectionStrategy != "merge_all" {
		t.Errorf("FieldSelectionStrategy = %q, want merge_all", cfg.FieldSelectionStrategy)
	}
	if cfg.MinKeyLength != 3 {
		t.Errorf("MinKeyLength = %d, want 3", cfg.MinKeyLength)
	}
}
