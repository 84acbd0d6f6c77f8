package aliasing

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// RegexSubstitution rewrites aliases through regexp replacements. A
// pattern only fires when it matches at the start of the alias.
type RegexSubstitution struct {
	logger *zap.Logger
}

// NewRegexSubstitution creates the regex substitution transformer.
func NewRegexSubstitution(logger *zap.Logger) *RegexSubstitution {
	return &RegexSubstitution{logger: logger}
}

// Kind implements Transformer.
func (t *RegexSubstitution) Kind() string { return config.TransformRegexSubstitution }

// Transform implements Transformer.
func (t *RegexSubstitution) Transform(aliases []string, rule *config.AliasingRule, _ *Context) ([]string, error) {
	params := rule.RegexSubstitution
	if params == nil {
		return nil, nil
	}

	type compiled struct {
		re          *regexp.Regexp
		replacement string
	}
	patterns := make([]compiled, 0, len(params.Patterns))
	for _, p := range params.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w: %w", rule.Name, config.ErrInvalidRule, err)
		}
		patterns = append(patterns, compiled{re: re, replacement: p.Replacement})
	}

	var out []string
	for _, alias := range aliases {
		out = append(out, alias)
		for _, p := range patterns {
			loc := p.re.FindStringIndex(alias)
			if loc == nil || loc[0] != 0 {
				continue
			}
			variant := p.re.ReplaceAllString(alias, p.replacement)
			if variant != alias {
				out = append(out, variant)
			}
		}
	}
	return out, nil
}

// CaseTransformation re-cases aliases through the configured operations.
type CaseTransformation struct {
	logger *zap.Logger
}

// NewCaseTransformation creates the case transformer.
func NewCaseTransformation(logger *zap.Logger) *CaseTransformation {
	return &CaseTransformation{logger: logger}
}

// Kind implements Transformer.
func (t *CaseTransformation) Kind() string { return config.TransformCaseTransformation }

// Transform implements Transformer.
func (t *CaseTransformation) Transform(aliases []string, rule *config.AliasingRule, _ *Context) ([]string, error) {
	params := rule.CaseTransformation
	if params == nil {
		return nil, nil
	}
	operations := params.Operations
	if len(operations) == 0 {
		operations = []string{"upper"}
	}

	var out []string
	for _, alias := range aliases {
		for _, op := range operations {
			switch op {
			case "upper":
				out = append(out, strings.ToUpper(alias))
			case "lower":
				out = append(out, strings.ToLower(alias))
			case "title":
				out = append(out, titleCase(alias))
			case "preserve":
				out = append(out, alias)
			}
		}
	}
	return out, nil
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	joined := strings.Join(words, " ")
	if strings.HasPrefix(s, " ") {
		joined = " " + joined
	}
	if strings.HasSuffix(s, " ") {
		joined += " "
	}
	return joined
}

// leadingZeros matches zero-padded numeric runs on word boundaries. The
// capture holds the digits left after stripping the padding.
var leadingZeros = regexp.MustCompile(`\b0+(\d+)\b`)

// LeadingZeroNormalization strips leading zeros from numeric runs, e.g.
// P-001 into P-1 and V-0201 into V-201. Mixed alphanumeric runs like
// 0000A are untouched.
type LeadingZeroNormalization struct {
	logger *zap.Logger
}

// NewLeadingZeroNormalization creates the leading-zero transformer.
func NewLeadingZeroNormalization(logger *zap.Logger) *LeadingZeroNormalization {
	return &LeadingZeroNormalization{logger: logger}
}

// Kind implements Transformer.
func (t *LeadingZeroNormalization) Kind() string { return config.TransformLeadingZeroNormalization }

// Transform implements Transformer.
func (t *LeadingZeroNormalization) Transform(aliases []string, rule *config.AliasingRule, _ *Context) ([]string, error) {
	params := rule.LeadingZeroNormalization
	if params == nil {
		params = &config.LeadingZeroNormalizationParams{}
	}

	out := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, leadingZeros.ReplaceAllStringFunc(alias, func(run string) string {
			if params.MinLength > 0 && len(run) < params.MinLength {
				return run
			}
			stripped := strings.TrimLeft(run, "0")
			if stripped == "" {
				if params.PreserveZero() {
					return "0"
				}
				return ""
			}
			return stripped
		}))
	}
	return out, nil
}
