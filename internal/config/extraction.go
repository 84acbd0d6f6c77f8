package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Extraction methods. The string values are the discriminator tags used in
// rule documents.
const (
	MethodRegex           = "regex"
	MethodFixedWidth      = "fixed_width"
	MethodTokenReassembly = "token_reassembly"
	MethodHeuristic       = "heuristic"
)

// Extraction types classify what an extracted key refers to.
const (
	TypeCandidateKey        = "candidate_key"
	TypeForeignKeyReference = "foreign_key_reference"
	TypeDocumentReference   = "document_reference"
)

// ExtractionConfig holds the extraction engine configuration.
type ExtractionConfig struct {
	// FieldSelectionStrategy is "first_match" (stop at the first source
	// field that yields keys) or "merge_all" (collect from every field).
	FieldSelectionStrategy string `koanf:"field_selection_strategy"`

	// MinKeyLength drops keys shorter than this after extraction.
	MinKeyLength int `koanf:"min_key_length"`

	Rules []ExtractionRule `koanf:"rules"`
}

// ExtractionRule configures one extraction strategy. Exactly one of the
// method parameter blocks must be set, matching Method.
type ExtractionRule struct {
	RuleID   string `koanf:"rule_id"`
	Method   string `koanf:"method"`
	Enabled  *bool  `koanf:"enabled"`
	Priority int    `koanf:"priority"`

	Regex           *RegexParams           `koanf:"regex"`
	FixedWidth      *FixedWidthParams      `koanf:"fixed_width"`
	TokenReassembly *TokenReassemblyParams `koanf:"token_reassembly"`
	Heuristic       *HeuristicParams       `koanf:"heuristic"`

	SourceFields   []SourceField     `koanf:"source_fields"`
	ScopeFilters   map[string]string `koanf:"scope_filters"`
	ExtractionType string            `koanf:"extraction_type"`
	MinConfidence  float64           `koanf:"min_confidence"`
	Validation     *ValidationConfig `koanf:"validation"`
}

// SourceField names a field the rule reads from and how to prepare it.
type SourceField struct {
	FieldName     string   `koanf:"field_name"`
	FieldType     string   `koanf:"field_type"`
	Required      bool     `koanf:"required"`
	Priority      int      `koanf:"priority"`
	MaxLength     int      `koanf:"max_length"`
	Preprocessing []string `koanf:"preprocessing"`
}

// ValidationConfig gates extracted keys after a rule has run.
type ValidationConfig struct {
	MinConfidence     float64  `koanf:"min_confidence"`
	BlacklistKeywords []string `koanf:"blacklist_keywords"`
	RegexpMatch       []string `koanf:"regexp_match"`
}

// RegexParams configures the regex extraction method. The pattern must
// contain at least one capturing group; the first group is the key value.
type RegexParams struct {
	Pattern string       `koanf:"pattern"`
	Options RegexOptions `koanf:"options"`
}

// RegexOptions map to Go regexp flags.
type RegexOptions struct {
	IgnoreCase bool `koanf:"ignore_case"`
	Multiline  bool `koanf:"multiline"`
	DotAll     bool `koanf:"dot_all"`
}

// FlagPrefix renders the options as an inline regexp flag group.
func (o RegexOptions) FlagPrefix() string {
	flags := ""
	if o.IgnoreCase {
		flags += "i"
	}
	if o.Multiline {
		flags += "m"
	}
	if o.DotAll {
		flags += "s"
	}
	if flags == "" {
		return ""
	}
	return "(?" + flags + ")"
}

// FixedWidthParams configures the fixed-width extraction method. Field
// layout comes from either FieldDefinitions or the shorthand Positions;
// positions are normalized into definitions before extraction.
type FixedWidthParams struct {
	FieldDefinitions []FieldDefinition `koanf:"field_definitions"`
	Positions        []PositionSpec    `koanf:"positions"`

	// Pattern is an optional position-annotated mini-pattern validating
	// whole lines, e.g. `P{position:0,length:1}\d{position:1,length:3}`.
	Pattern string `koanf:"pattern"`

	Encoding        string `koanf:"encoding"`
	RecordDelimiter string `koanf:"record_delimiter"`
	LinePattern     string `koanf:"line_pattern"`
	SkipLines       int    `koanf:"skip_lines"`
	StopOnEmpty     bool   `koanf:"stop_on_empty"`

	// Padding is the default padding mode applied to normalized positions.
	Padding string `koanf:"padding"`
}

// FieldDefinition slices one field out of a fixed-width line.
type FieldDefinition struct {
	Name      string `koanf:"name"`
	Start     int    `koanf:"start"`
	End       int    `koanf:"end"`
	FieldType string `koanf:"field_type"`
	Required  bool   `koanf:"required"`
	Trim      *bool  `koanf:"trim"`
	Padding   string `koanf:"padding"`
}

// PositionSpec is the shorthand field layout.
type PositionSpec struct {
	Start    int    `koanf:"start"`
	End      int    `koanf:"end"`
	Type     string `koanf:"type"`
	Optional bool   `koanf:"optional"`
}

// TokenReassemblyParams configures the token reassembly method.
type TokenReassemblyParams struct {
	Tokenization  Tokenization          `koanf:"tokenization"`
	AssemblyRules []AssemblyRule        `koanf:"assembly_rules"`
	Validation    *ReassemblyValidation `koanf:"validation"`

	// MaxCombinations caps the Cartesian product across token value
	// lists. Zero means the engine default.
	MaxCombinations int `koanf:"max_combinations"`
}

// Tokenization controls how input text is split and matched into named
// tokens.
type Tokenization struct {
	// Separator is a literal separator string. Separators is a list of
	// single characters combined into one character class. Exactly one of
	// the two should be set.
	Separator  string   `koanf:"separator"`
	Separators []string `koanf:"separators"`

	MinTokens     int            `koanf:"min_tokens"`
	MaxTokens     int            `koanf:"max_tokens"`
	TokenPatterns []TokenPattern `koanf:"token_patterns"`
}

// TokenPattern matches split tokens into a named slot. Position, when
// non-nil, pins the pattern to a single token index.
type TokenPattern struct {
	Name     string `koanf:"name"`
	Pattern  string `koanf:"pattern"`
	Position *int   `koanf:"position"`
	Required bool   `koanf:"required"`
}

// AssemblyRule renders one combination of token values through a format
// template, gated by a conjunction of conditions.
type AssemblyRule struct {
	Name     string `koanf:"name"`
	Format   string `koanf:"format"`
	Priority int    `koanf:"priority"`

	Conditions []AssemblyCondition `koanf:"conditions"`
}

// AssemblyCondition is one clause of an assembly rule predicate.
// Supported kinds:
//   - token_missing: Token must be absent (Negate inverts)
//   - all_required_present: every required token matched (Negate inverts)
//   - context_match: token named Token must equal Value
type AssemblyCondition struct {
	Kind   string `koanf:"kind"`
	Token  string `koanf:"token"`
	Value  string `koanf:"value"`
	Negate bool   `koanf:"negate"`
}

// ReassemblyValidation gates assembled values.
type ReassemblyValidation struct {
	Pattern string `koanf:"pattern"`
}

// IsEnabled reports whether the rule should run. Rules default to enabled.
func (r *ExtractionRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Validate checks the tagged-union invariant and the method-specific
// parameter block. Errors are scoped to this rule.
func (r *ExtractionRule) Validate() error {
	if r.RuleID == "" {
		return NewRuleError("(unnamed)", fmt.Errorf("%w: missing rule_id", ErrInvalidRule))
	}

	blocks := map[string]bool{
		MethodRegex:           r.Regex != nil,
		MethodFixedWidth:      r.FixedWidth != nil,
		MethodTokenReassembly: r.TokenReassembly != nil,
		MethodHeuristic:       r.Heuristic != nil,
	}

	want, known := blocks[r.Method]
	if !known {
		return NewRuleError(r.RuleID, fmt.Errorf("%w: %q", ErrUnknownMethod, r.Method))
	}
	if !want {
		return NewRuleError(r.RuleID, fmt.Errorf("%w: method %q has no matching parameter block", ErrInvalidRule, r.Method))
	}
	for method, set := range blocks {
		if set && method != r.Method {
			return NewRuleError(r.RuleID, fmt.Errorf("%w: parameter block %q does not match method %q", ErrInvalidRule, method, r.Method))
		}
	}

	switch r.Method {
	case MethodRegex:
		if r.Regex.Pattern == "" {
			return NewRuleError(r.RuleID, fmt.Errorf("%w: regex rule without pattern", ErrInvalidRule))
		}
		if _, err := regexp.Compile(r.Regex.Options.FlagPrefix() + r.Regex.Pattern); err != nil {
			return NewRuleError(r.RuleID, fmt.Errorf("%w: %w", ErrInvalidRule, err))
		}
	case MethodFixedWidth:
		if len(r.FixedWidth.FieldDefinitions) == 0 && len(r.FixedWidth.Positions) == 0 {
			return NewRuleError(r.RuleID, fmt.Errorf("%w: fixed_width rule needs field_definitions or positions", ErrInvalidRule))
		}
		switch strings.ToLower(r.FixedWidth.Encoding) {
		case "", "utf-8", "utf8", "ascii", "latin-1", "latin1", "iso-8859-1":
		default:
			return NewRuleError(r.RuleID, fmt.Errorf("%w: unsupported encoding %q", ErrInvalidRule, r.FixedWidth.Encoding))
		}
	case MethodTokenReassembly:
		if err := r.TokenReassembly.validate(); err != nil {
			return NewRuleError(r.RuleID, err)
		}
	case MethodHeuristic:
		if err := r.Heuristic.validate(); err != nil {
			return NewRuleError(r.RuleID, err)
		}
	}

	switch r.ExtractionType {
	case "", TypeCandidateKey, TypeForeignKeyReference, TypeDocumentReference:
	default:
		return NewRuleError(r.RuleID, fmt.Errorf("%w: unknown extraction_type %q", ErrInvalidRule, r.ExtractionType))
	}

	return nil
}

func (p *TokenReassemblyParams) validate() error {
	if p.Tokenization.Separator == "" && len(p.Tokenization.Separators) == 0 {
		return fmt.Errorf("%w: tokenization needs separator or separators", ErrInvalidRule)
	}
	if len(p.Tokenization.TokenPatterns) == 0 {
		return fmt.Errorf("%w: tokenization needs token_patterns", ErrInvalidRule)
	}
	names := make(map[string]bool, len(p.Tokenization.TokenPatterns))
	for _, tp := range p.Tokenization.TokenPatterns {
		if tp.Name == "" || tp.Pattern == "" {
			return fmt.Errorf("%w: token pattern needs name and pattern", ErrInvalidRule)
		}
		if _, err := regexp.Compile(tp.Pattern); err != nil {
			return fmt.Errorf("%w: token pattern %q: %w", ErrInvalidRule, tp.Name, err)
		}
		names[tp.Name] = true
	}
	for _, ar := range p.AssemblyRules {
		if ar.Format == "" {
			return fmt.Errorf("%w: assembly rule %q needs format", ErrInvalidRule, ar.Name)
		}
		for _, cond := range ar.Conditions {
			switch cond.Kind {
			case "token_missing", "context_match":
				if !names[cond.Token] {
					return fmt.Errorf("%w: condition %q references unknown token %q", ErrUnknownCondition, cond.Kind, cond.Token)
				}
			case "all_required_present":
			default:
				return fmt.Errorf("%w: %q", ErrUnknownCondition, cond.Kind)
			}
		}
	}
	if p.Validation != nil && p.Validation.Pattern != "" {
		if _, err := regexp.Compile(p.Validation.Pattern); err != nil {
			return fmt.Errorf("%w: validation pattern: %w", ErrInvalidRule, err)
		}
	}
	return nil
}

// ApplyDefaults fills unset extraction config values.
func (c *ExtractionConfig) ApplyDefaults() {
	if c.FieldSelectionStrategy == "" {
		c.FieldSelectionStrategy = "merge_all"
	}
	if c.MinKeyLength == 0 {
		c.MinKeyLength = 3
	}
}
