package config

import (
	"fmt"
	"regexp"
)

// Aliasing transformation kinds. The string values are the discriminator
// tags used in rule documents.
const (
	TransformCharacterSubstitution    = "character_substitution"
	TransformPrefixSuffix             = "prefix_suffix"
	TransformRegexSubstitution        = "regex_substitution"
	TransformCaseTransformation       = "case_transformation"
	TransformEquipmentTypeExpansion   = "equipment_type_expansion"
	TransformRelatedInstruments       = "related_instruments"
	TransformHierarchicalExpansion    = "hierarchical_expansion"
	TransformDocumentAliases          = "document_aliases"
	TransformLeadingZeroNormalization = "leading_zero_normalization"
	TransformPatternRecognition       = "pattern_recognition"
	TransformPatternBasedExpansion    = "pattern_based_expansion"
)

// AliasingConfig holds the aliasing engine configuration.
type AliasingConfig struct {
	Rules      []AliasingRule  `koanf:"rules"`
	Validation AliasValidation `koanf:"validation"`
}

// AliasValidation gates the final alias set after all rules have run.
type AliasValidation struct {
	MinAliasLength   int `koanf:"min_alias_length"`
	MaxAliasLength   int `koanf:"max_alias_length"`
	MaxAliasesPerTag int `koanf:"max_aliases_per_tag"`

	// AllowedCharacters is a regexp character-class body (or a full
	// bracketed class) every alias must match end to end.
	AllowedCharacters string `koanf:"allowed_characters"`
}

// ApplyDefaults fills unset validation values.
func (c *AliasingConfig) ApplyDefaults() {
	if c.Validation.MinAliasLength == 0 {
		c.Validation.MinAliasLength = 1
	}
	if c.Validation.MaxAliasLength == 0 {
		c.Validation.MaxAliasLength = 100
	}
	if c.Validation.MaxAliasesPerTag == 0 {
		c.Validation.MaxAliasesPerTag = 50
	}
	if c.Validation.AllowedCharacters == "" {
		c.Validation.AllowedCharacters = `A-Za-z0-9-_/. `
	}
}

// AliasingRule configures one transformation step. Type is the
// discriminator; exactly one matching parameter block must be set.
type AliasingRule struct {
	Name        string `koanf:"name"`
	Type        string `koanf:"type"`
	Enabled     *bool  `koanf:"enabled"`
	Priority    int    `koanf:"priority"`
	Description string `koanf:"description"`

	// PreserveOriginal unions the transformer output with the incoming
	// alias set; when false the output replaces it. Defaults to true.
	PreserveOriginal *bool `koanf:"preserve_original"`

	// ScopeFilters gate the rule on entity type and enrichment context
	// values. Conditions is the older spelling with the same semantics.
	ScopeFilters map[string][]string `koanf:"scope_filters"`
	Conditions   map[string][]string `koanf:"conditions"`

	CharacterSubstitution    *CharacterSubstitutionParams    `koanf:"character_substitution"`
	PrefixSuffix             *PrefixSuffixParams             `koanf:"prefix_suffix"`
	RegexSubstitution        *RegexSubstitutionParams        `koanf:"regex_substitution"`
	CaseTransformation       *CaseTransformationParams       `koanf:"case_transformation"`
	EquipmentTypeExpansion   *EquipmentTypeExpansionParams   `koanf:"equipment_type_expansion"`
	RelatedInstruments       *RelatedInstrumentsParams       `koanf:"related_instruments"`
	HierarchicalExpansion    *HierarchicalExpansionParams    `koanf:"hierarchical_expansion"`
	DocumentAliases          *DocumentAliasesParams          `koanf:"document_aliases"`
	LeadingZeroNormalization *LeadingZeroNormalizationParams `koanf:"leading_zero_normalization"`
	PatternRecognition       *PatternRecognitionParams       `koanf:"pattern_recognition"`
	PatternBasedExpansion    *PatternBasedExpansionParams    `koanf:"pattern_based_expansion"`
}

// IsEnabled reports whether the rule should run. Rules default to enabled.
func (r *AliasingRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Preserve reports the preserve_original setting, defaulting to true.
func (r *AliasingRule) Preserve() bool {
	return r.PreserveOriginal == nil || *r.PreserveOriginal
}

// EffectivePriority returns the rule priority, defaulting to 50.
func (r *AliasingRule) EffectivePriority() int {
	if r.Priority == 0 {
		return 50
	}
	return r.Priority
}

// CharacterSubstitutionParams maps characters (or substrings) to
// replacement variants.
type CharacterSubstitutionParams struct {
	Substitutions        map[string][]string `koanf:"substitutions"`
	CascadeSubstitutions bool                `koanf:"cascade_substitutions"`
	Bidirectional        bool                `koanf:"bidirectional"`
	MaxAliasesPerInput   int                 `koanf:"max_aliases_per_input"`
}

// PrefixSuffixParams adds or strips a prefix or suffix, optionally
// resolved from the enrichment context.
type PrefixSuffixParams struct {
	Operation string `koanf:"operation"`
	Prefix    string `koanf:"prefix"`
	Suffix    string `koanf:"suffix"`

	// ContextMapping resolves the affix from a context value named by
	// ResolveFrom, e.g. {"Plant_A": {prefix: "PA-"}} with resolve_from
	// "site".
	ContextMapping map[string]AffixMapping `koanf:"context_mapping"`
	ResolveFrom    string                  `koanf:"resolve_from"`

	// MissingPrefixOnly skips aliases that already carry the prefix.
	MissingPrefixOnly bool `koanf:"missing_prefix_only"`
}

// AffixMapping is one context-resolved prefix/suffix pair.
type AffixMapping struct {
	Prefix string `koanf:"prefix"`
	Suffix string `koanf:"suffix"`
}

// Prefix/suffix operations.
const (
	OpAddPrefix    = "add_prefix"
	OpRemovePrefix = "remove_prefix"
	OpAddSuffix    = "add_suffix"
	OpRemoveSuffix = "remove_suffix"
)

// RegexSubstitutionParams rewrites aliases through regexp replacements.
// Replacement uses Go expansion syntax ($1, ${name}).
type RegexSubstitutionParams struct {
	Patterns []SubstitutionPattern `koanf:"patterns"`
}

// SubstitutionPattern is one pattern/replacement pair.
type SubstitutionPattern struct {
	Pattern     string `koanf:"pattern"`
	Replacement string `koanf:"replacement"`
}

// CaseTransformationParams re-cases aliases. Operations are upper, lower,
// title, preserve.
type CaseTransformationParams struct {
	Operations []string `koanf:"operations"`
}

// EquipmentTypeExpansionParams expands a detected equipment-type prefix
// into named variants, e.g. P-101 into PUMP-101 and PMP-101.
type EquipmentTypeExpansionParams struct {
	TypeMappings    map[string][]string `koanf:"type_mappings"`
	FormatTemplates []string            `koanf:"format_templates"`
	AutoDetect      *bool               `koanf:"auto_detect"`
}

// Detect reports whether prefix auto-detection is on. It defaults to on
// whenever type mappings are configured.
func (p *EquipmentTypeExpansionParams) Detect() bool {
	if p.AutoDetect != nil {
		return *p.AutoDetect
	}
	return len(p.TypeMappings) > 0
}

// RelatedInstrumentsParams generates instrument tags that typically
// accompany a piece of equipment, e.g. PI-101 and FI-101 for P-101.
type RelatedInstrumentsParams struct {
	ApplicableEquipmentTypes []string         `koanf:"applicable_equipment_types"`
	InstrumentTypes          []InstrumentType `koanf:"instrument_types"`
	FormatRules              InstrumentFormat `koanf:"format_rules"`
}

// InstrumentType names one instrument prefix and the equipment types it
// applies to.
type InstrumentType struct {
	Prefix       string   `koanf:"prefix"`
	Description  string   `koanf:"description"`
	ApplicableTo []string `koanf:"applicable_to"`
}

// InstrumentFormat controls how instrument tags are rendered.
type InstrumentFormat struct {
	Separator string `koanf:"separator"`
	Case      string `koanf:"case"`
}

// HierarchicalExpansionParams renders aliases through location templates
// filled from the enrichment context.
type HierarchicalExpansionParams struct {
	HierarchyLevels []HierarchyLevel `koanf:"hierarchy_levels"`
}

// HierarchyLevel is one template, e.g. "{site}-{unit}-{equipment}".
type HierarchyLevel struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DocumentAliasesParams generates document designation variants.
type DocumentAliasesParams struct {
	PIDRules     PIDRules     `koanf:"pid_rules"`
	DrawingRules DrawingRules `koanf:"drawing_rules"`
	FileRules    FileRules    `koanf:"file_rules"`
}

// PIDRules cover P&ID designations.
type PIDRules struct {
	RemoveAmpersand  bool `koanf:"remove_ampersand"`
	AddSpaces        bool `koanf:"add_spaces"`
	RevisionVariants bool `koanf:"revision_variants"`
}

// DrawingRules cover drawing numbers.
type DrawingRules struct {
	ZeroPadding   ZeroPadding `koanf:"zero_padding"`
	SheetVariants bool        `koanf:"sheet_variants"`
}

// ZeroPadding pads numeric runs to a target width.
type ZeroPadding struct {
	Enabled      bool `koanf:"enabled"`
	TargetLength int  `koanf:"target_length"`
}

// FileRules cover file names.
type FileRules struct {
	RemoveRevisionNumbers bool `koanf:"remove_revision_numbers"`
}

// LeadingZeroNormalizationParams strips leading zeros from numeric runs.
type LeadingZeroNormalizationParams struct {
	// PreserveSingleZero keeps all-zero runs as a bare "0" instead of
	// removing them. Defaults to true.
	PreserveSingleZero *bool `koanf:"preserve_single_zero"`

	// MinLength keeps numeric runs from shrinking below this width.
	MinLength int `koanf:"min_length"`
}

// PreserveZero reports whether all-zero runs collapse to "0" rather
// than being removed.
func (p *LeadingZeroNormalizationParams) PreserveZero() bool {
	return p.PreserveSingleZero == nil || *p.PreserveSingleZero
}

// PatternRecognitionParams matches aliases against the pattern registry
// and emits variants of the recognized pattern.
type PatternRecognitionParams struct {
	EnhanceContext          *bool   `koanf:"enhance_context"`
	GeneratePatternVariants *bool   `koanf:"generate_pattern_variants"`
	ConfidenceThreshold     float64 `koanf:"confidence_threshold"`
}

// PatternBasedExpansionParams expands aliases using the pattern
// registry's equipment and instrument knowledge.
type PatternBasedExpansionParams struct {
	IncludeIndustryStandards *bool `koanf:"include_industry_standards"`
	GenerateSimilarPatterns  *bool `koanf:"generate_similar_patterns"`
	EquipmentTypeVariations  *bool `koanf:"equipment_type_variations"`
	InstrumentLoopExpansion  *bool `koanf:"instrument_loop_expansion"`
}

// Validate checks the tagged-union invariant and the type-specific
// parameter block. Errors are scoped to this rule.
func (r *AliasingRule) Validate() error {
	if r.Name == "" {
		return NewRuleError("(unnamed)", fmt.Errorf("%w: missing name", ErrInvalidRule))
	}

	blocks := map[string]bool{
		TransformCharacterSubstitution:    r.CharacterSubstitution != nil,
		TransformPrefixSuffix:             r.PrefixSuffix != nil,
		TransformRegexSubstitution:        r.RegexSubstitution != nil,
		TransformCaseTransformation:       r.CaseTransformation != nil,
		TransformEquipmentTypeExpansion:   r.EquipmentTypeExpansion != nil,
		TransformRelatedInstruments:       r.RelatedInstruments != nil,
		TransformHierarchicalExpansion:    r.HierarchicalExpansion != nil,
		TransformDocumentAliases:          r.DocumentAliases != nil,
		TransformLeadingZeroNormalization: r.LeadingZeroNormalization != nil,
		TransformPatternRecognition:       r.PatternRecognition != nil,
		TransformPatternBasedExpansion:    r.PatternBasedExpansion != nil,
	}

	want, known := blocks[r.Type]
	if !known {
		return NewRuleError(r.Name, fmt.Errorf("%w: %q", ErrUnknownTransform, r.Type))
	}
	if !want {
		return NewRuleError(r.Name, fmt.Errorf("%w: type %q has no matching parameter block", ErrInvalidRule, r.Type))
	}
	for kind, set := range blocks {
		if set && kind != r.Type {
			return NewRuleError(r.Name, fmt.Errorf("%w: parameter block %q does not match type %q", ErrInvalidRule, kind, r.Type))
		}
	}

	switch r.Type {
	case TransformCharacterSubstitution:
		if len(r.CharacterSubstitution.Substitutions) == 0 {
			return NewRuleError(r.Name, fmt.Errorf("%w: character_substitution needs substitutions", ErrInvalidRule))
		}
	case TransformPrefixSuffix:
		switch r.PrefixSuffix.Operation {
		case OpAddPrefix, OpRemovePrefix, OpAddSuffix, OpRemoveSuffix:
		default:
			return NewRuleError(r.Name, fmt.Errorf("%w: unknown prefix_suffix operation %q", ErrInvalidRule, r.PrefixSuffix.Operation))
		}
	case TransformRegexSubstitution:
		if len(r.RegexSubstitution.Patterns) == 0 {
			return NewRuleError(r.Name, fmt.Errorf("%w: regex_substitution needs patterns", ErrInvalidRule))
		}
		for _, p := range r.RegexSubstitution.Patterns {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				return NewRuleError(r.Name, fmt.Errorf("%w: %w", ErrInvalidRule, err))
			}
		}
	case TransformCaseTransformation:
		for _, op := range r.CaseTransformation.Operations {
			switch op {
			case "upper", "lower", "title", "preserve":
			default:
				return NewRuleError(r.Name, fmt.Errorf("%w: unknown case operation %q", ErrInvalidRule, op))
			}
		}
	case TransformEquipmentTypeExpansion:
		if len(r.EquipmentTypeExpansion.TypeMappings) == 0 {
			return NewRuleError(r.Name, fmt.Errorf("%w: equipment_type_expansion needs type_mappings", ErrInvalidRule))
		}
	case TransformRelatedInstruments:
		if len(r.RelatedInstruments.InstrumentTypes) == 0 {
			return NewRuleError(r.Name, fmt.Errorf("%w: related_instruments needs instrument_types", ErrInvalidRule))
		}
	case TransformHierarchicalExpansion:
		if len(r.HierarchicalExpansion.HierarchyLevels) == 0 {
			return NewRuleError(r.Name, fmt.Errorf("%w: hierarchical_expansion needs hierarchy_levels", ErrInvalidRule))
		}
		for _, lvl := range r.HierarchicalExpansion.HierarchyLevels {
			if lvl.Format == "" {
				return NewRuleError(r.Name, fmt.Errorf("%w: hierarchy level %q needs format", ErrInvalidRule, lvl.Level))
			}
		}
	}

	return nil
}
