package aliasing

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
	"github.com/fyrsmithlabs/tagforge/internal/patterns"
)

// PatternRecognition matches aliases against the pattern registry. A hit
// enriches the context with the pattern's equipment classification and
// emits structural variants of the recognized tag.
type PatternRecognition struct {
	logger   *zap.Logger
	registry *patterns.Registry
}

// NewPatternRecognition creates the pattern recognition transformer.
func NewPatternRecognition(logger *zap.Logger, registry *patterns.Registry) *PatternRecognition {
	return &PatternRecognition{logger: logger, registry: registry}
}

// Kind implements Transformer.
func (t *PatternRecognition) Kind() string { return config.TransformPatternRecognition }

// Transform implements Transformer.
func (t *PatternRecognition) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.PatternRecognition
	if params == nil || t.registry == nil {
		return nil, nil
	}
	enhance := params.EnhanceContext == nil || *params.EnhanceContext
	variants := params.GeneratePatternVariants == nil || *params.GeneratePatternVariants

	var out []string
	for _, alias := range aliases {
		match := t.recognize(alias)
		if match == nil {
			continue
		}
		t.logger.Debug("pattern recognized",
			zap.String("alias", alias),
			zap.String("pattern", match.Name))

		if enhance && tctx != nil {
			tctx.SetIfAbsent("equipment_type", match.EquipmentType)
			tctx.SetIfAbsent("pattern_matched", match.Name)
			tctx.SetIfAbsent("industry_standard", match.IndustryStandard)
			if match.InstrumentType != "" {
				tctx.SetIfAbsent("instrument_type", match.InstrumentType)
			}
		}
		if variants {
			out = append(out, t.variants(alias, match)...)
		}
	}
	return out, nil
}

// recognize returns the first registry pattern matching the whole alias.
func (t *PatternRecognition) recognize(alias string) *patterns.TagPattern {
	for _, p := range t.registry.TagPatterns() {
		if p.Regexp().FindString(alias) == alias {
			return p
		}
	}
	return nil
}

// variants renders the alias through separator rewrites plus up to three
// example-shaped variants carrying the alias's equipment number.
func (t *PatternRecognition) variants(alias string, p *patterns.TagPattern) []string {
	out := SeparatorVariants(alias, nil)
	if v := structureVariant(alias); v != "" {
		out = append(out, v)
	}

	number := EquipmentNumber(alias)
	if number != "" {
		count := 0
		for _, example := range p.Examples {
			if count == 3 {
				break
			}
			adapted := firstNumber.ReplaceAllString(example, number)
			if adapted != alias && adapted != example {
				out = append(out, adapted)
				count++
			}
		}
	}
	return out
}

// instrumentLoops lists the instrument prefixes typically installed with
// each equipment type, grouped by measured variable.
var instrumentLoops = map[string][]string{
	patterns.EquipmentPump:       {"FE", "FT", "FI", "FIC", "PE", "PT", "PI", "PIC"},
	patterns.EquipmentCompressor: {"PT", "PI", "PIC", "TE", "TT", "TI", "TIC"},
	patterns.EquipmentTank:       {"LT", "LI", "LIC", "LAH", "LAL"},
	patterns.EquipmentVessel:     {"LT", "LI", "LIC", "PT", "PI"},
	patterns.EquipmentReactor:    {"TE", "TT", "TI", "TIC", "PT", "PI"},
}

// PatternBasedExpansion expands an alias using the registry's equipment
// knowledge: sibling patterns for the same equipment type and the
// instrument loops that equipment normally carries.
type PatternBasedExpansion struct {
	logger   *zap.Logger
	registry *patterns.Registry
}

// NewPatternBasedExpansion creates the pattern expansion transformer.
func NewPatternBasedExpansion(logger *zap.Logger, registry *patterns.Registry) *PatternBasedExpansion {
	return &PatternBasedExpansion{logger: logger, registry: registry}
}

// Kind implements Transformer.
func (t *PatternBasedExpansion) Kind() string { return config.TransformPatternBasedExpansion }

// Transform implements Transformer.
func (t *PatternBasedExpansion) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.PatternBasedExpansion
	if params == nil || t.registry == nil || tctx == nil {
		return nil, nil
	}
	similar := params.GenerateSimilarPatterns == nil || *params.GenerateSimilarPatterns
	typeVariants := params.EquipmentTypeVariations == nil || *params.EquipmentTypeVariations
	loops := params.InstrumentLoopExpansion == nil || *params.InstrumentLoopExpansion
	standardsOnly := params.IncludeIndustryStandards != nil && !*params.IncludeIndustryStandards

	equipmentType := strings.ToLower(tctx.Get("equipment_type"))
	if equipmentType == "" {
		return nil, nil
	}

	var out []string
	for _, alias := range aliases {
		number := EquipmentNumber(alias)
		if number == "" {
			continue
		}

		if similar || typeVariants {
			siblings := t.registry.ByEquipmentType(equipmentType)
			if len(siblings) > 3 {
				siblings = siblings[:3]
			}
			for _, p := range siblings {
				if standardsOnly && p.IndustryStandard == "" {
					continue
				}
				examples := p.Examples
				if len(examples) > 2 {
					examples = examples[:2]
				}
				for _, example := range examples {
					adapted := firstNumber.ReplaceAllString(example, number)
					if adapted != alias {
						out = append(out, adapted)
					}
				}
			}
		}

		if loops {
			for _, prefix := range instrumentLoops[equipmentType] {
				for _, sep := range []string{"-", "_", ""} {
					out = append(out, prefix+sep+number)
				}
			}
		}
	}
	return out, nil
}
