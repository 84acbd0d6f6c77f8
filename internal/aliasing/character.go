package aliasing

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// CharacterSubstitution replaces characters (or substrings) with each of
// their configured variants, e.g. "-" into "_", " " and "".
type CharacterSubstitution struct {
	logger *zap.Logger
}

// NewCharacterSubstitution creates the character substitution transformer.
func NewCharacterSubstitution(logger *zap.Logger) *CharacterSubstitution {
	return &CharacterSubstitution{logger: logger}
}

// Kind implements Transformer.
func (t *CharacterSubstitution) Kind() string { return config.TransformCharacterSubstitution }

// Transform implements Transformer.
func (t *CharacterSubstitution) Transform(aliases []string, rule *config.AliasingRule, _ *Context) ([]string, error) {
	params := rule.CharacterSubstitution
	if params == nil || len(params.Substitutions) == 0 {
		return nil, nil
	}

	subs := make(map[string][]string, len(params.Substitutions))
	var keys []string
	for old, news := range params.Substitutions {
		subs[old] = append([]string(nil), news...)
		keys = append(keys, old)
	}
	if params.Bidirectional {
		for _, old := range append([]string(nil), keys...) {
			for _, replacement := range subs[old] {
				if !contains(subs[replacement], old) {
					if _, ok := subs[replacement]; !ok {
						keys = append(keys, replacement)
					}
					subs[replacement] = append(subs[replacement], old)
				}
			}
		}
	}
	// Substitution maps are unordered; a sorted key walk keeps output stable.
	sort.Strings(keys)

	maxPerInput := params.MaxAliasesPerInput
	if maxPerInput <= 0 {
		maxPerInput = 100
	}

	var out []string
	for _, alias := range aliases {
		variants := []string{alias}
		seen := map[string]bool{alias: true}

		for _, old := range keys {
			if params.CascadeSubstitutions {
				for _, variant := range append([]string(nil), variants...) {
					if !strings.Contains(variant, old) {
						continue
					}
					for _, replacement := range subs[old] {
						v := strings.ReplaceAll(variant, old, replacement)
						if !seen[v] {
							seen[v] = true
							variants = append(variants, v)
						}
					}
				}
			} else if strings.Contains(alias, old) {
				for _, replacement := range subs[old] {
					v := strings.ReplaceAll(alias, old, replacement)
					if !seen[v] {
						seen[v] = true
						variants = append(variants, v)
					}
				}
			}
		}

		if len(variants) > maxPerInput {
			sort.Slice(variants, func(i, j int) bool {
				if len(variants[i]) != len(variants[j]) {
					return len(variants[i]) < len(variants[j])
				}
				return variants[i] < variants[j]
			})
			variants = variants[:maxPerInput]
		}
		out = append(out, variants...)
	}

	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
