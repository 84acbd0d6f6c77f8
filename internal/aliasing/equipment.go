package aliasing

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// EquipmentTypeExpansion expands a detected equipment prefix into its
// named variants, e.g. P-101 into PUMP-101 and PMP-101.
type EquipmentTypeExpansion struct {
	logger *zap.Logger
}

// NewEquipmentTypeExpansion creates the equipment expansion transformer.
func NewEquipmentTypeExpansion(logger *zap.Logger) *EquipmentTypeExpansion {
	return &EquipmentTypeExpansion{logger: logger}
}

// Kind implements Transformer.
func (t *EquipmentTypeExpansion) Kind() string { return config.TransformEquipmentTypeExpansion }

// Transform implements Transformer.
func (t *EquipmentTypeExpansion) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.EquipmentTypeExpansion
	if params == nil || len(params.TypeMappings) == 0 {
		return nil, nil
	}

	templates := params.FormatTemplates
	if len(templates) == 0 {
		templates = []string{"{type}-{tag}"}
	}

	prefixes := make([]string, 0, len(params.TypeMappings))
	for prefix := range params.TypeMappings {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var out []string
	for _, alias := range aliases {
		var types []string

		if params.Detect() {
			for _, prefix := range prefixes {
				if t.prefixMatches(prefix, alias) {
					types = append(types, params.TypeMappings[prefix]...)
				}
			}
		}
		if ctxType := tctx.Get("equipment_type"); ctxType != "" {
			upper := strings.ToUpper(ctxType)
			for _, prefix := range prefixes {
				for _, name := range params.TypeMappings[prefix] {
					if strings.ToUpper(name) == upper {
						types = append(types, params.TypeMappings[prefix]...)
						break
					}
				}
			}
		}

		for _, typeName := range dedupeStrings(types) {
			for _, tpl := range templates {
				variant := strings.ReplaceAll(tpl, "{type}", typeName)
				variant = strings.ReplaceAll(variant, "{tag}", alias)
				out = append(out, variant)
			}
		}
	}
	return out, nil
}

// prefixMatches recognizes the prefix either leading the tag (P-101) or
// inside a hierarchical tag (10-P-101).
func (t *EquipmentTypeExpansion) prefixMatches(prefix, alias string) bool {
	quoted := regexp.QuoteMeta(prefix)
	if m, err := regexp.MatchString(`^`+quoted+`[-_]?\d+`, alias); err == nil && m {
		return true
	}
	m, err := regexp.MatchString(`\d+-`+quoted+`[-_]?\d+`, alias)
	return err == nil && m
}

// RelatedInstruments generates instrument tags that typically accompany
// a piece of equipment, e.g. PI-101 and FI-101 alongside P-101.
type RelatedInstruments struct {
	logger *zap.Logger
}

// NewRelatedInstruments creates the related instruments transformer.
func NewRelatedInstruments(logger *zap.Logger) *RelatedInstruments {
	return &RelatedInstruments{logger: logger}
}

// Kind implements Transformer.
func (t *RelatedInstruments) Kind() string { return config.TransformRelatedInstruments }

// Transform implements Transformer.
func (t *RelatedInstruments) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.RelatedInstruments
	if params == nil {
		return nil, nil
	}

	equipmentType := strings.ToLower(tctx.Get("equipment_type"))
	if equipmentType == "" {
		return nil, nil
	}
	if len(params.ApplicableEquipmentTypes) > 0 && !contains(params.ApplicableEquipmentTypes, equipmentType) {
		return nil, nil
	}

	separator := params.FormatRules.Separator
	if separator == "" {
		separator = "-"
	}

	var out []string
	for _, alias := range aliases {
		number := EquipmentNumber(alias)
		if number == "" {
			continue
		}
		for _, inst := range params.InstrumentTypes {
			if !contains(inst.ApplicableTo, equipmentType) {
				continue
			}
			base := inst.Prefix + separator + number
			out = append(out, base)
			out = append(out, SeparatorVariants(base, []string{"-", "_", ""})...)
		}
	}
	return out, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
