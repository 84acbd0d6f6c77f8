package aliasing

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// PrefixSuffix adds or strips a prefix or suffix. The affix may be
// resolved from a context value through the rule's context mapping.
type PrefixSuffix struct {
	logger *zap.Logger
}

// NewPrefixSuffix creates the prefix/suffix transformer.
func NewPrefixSuffix(logger *zap.Logger) *PrefixSuffix {
	return &PrefixSuffix{logger: logger}
}

// Kind implements Transformer.
func (t *PrefixSuffix) Kind() string { return config.TransformPrefixSuffix }

// Transform implements Transformer.
func (t *PrefixSuffix) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.PrefixSuffix
	if params == nil {
		return nil, nil
	}

	var out []string
	switch params.Operation {
	case config.OpAddPrefix:
		prefix := t.resolve(params, tctx, false)
		for _, alias := range aliases {
			if params.MissingPrefixOnly && strings.HasPrefix(alias, prefix) {
				out = append(out, alias)
				continue
			}
			out = append(out, prefix+alias)
		}

	case config.OpRemovePrefix:
		for _, alias := range aliases {
			out = append(out, strings.TrimPrefix(alias, params.Prefix))
		}

	case config.OpAddSuffix:
		suffix := t.resolve(params, tctx, true)
		for _, alias := range aliases {
			out = append(out, alias+suffix)
		}

	case config.OpRemoveSuffix:
		for _, alias := range aliases {
			out = append(out, strings.TrimSuffix(alias, params.Suffix))
		}
	}

	return out, nil
}

// resolve picks the affix: a context mapping hit wins, the literal
// prefix/suffix is the fallback.
func (t *PrefixSuffix) resolve(params *config.PrefixSuffixParams, tctx *Context, suffix bool) string {
	fallback := params.Prefix
	defaultKey := "site"
	if suffix {
		fallback = params.Suffix
		defaultKey = "equipment_type"
	}

	if len(params.ContextMapping) == 0 || tctx == nil {
		return fallback
	}

	key := params.ResolveFrom
	if key == "" {
		key = defaultKey
	}
	value := tctx.Get(key)
	if value == "" {
		return fallback
	}

	mapping, ok := params.ContextMapping[value]
	if !ok {
		return fallback
	}
	if suffix {
		if mapping.Suffix != "" {
			return mapping.Suffix
		}
	} else if mapping.Prefix != "" {
		return mapping.Prefix
	}
	return fallback
}
