package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// DefaultMaxCombinations caps the Cartesian product of token values when
// the rule does not set its own limit.
const DefaultMaxCombinations = 1000

// ReassemblyHandler splits text into tokens, matches them into named
// slots, and reassembles slot combinations through format templates.
type ReassemblyHandler struct {
	logger *zap.Logger
}

// NewReassemblyHandler creates a token reassembly handler.
func NewReassemblyHandler(logger *zap.Logger) *ReassemblyHandler {
	return &ReassemblyHandler{logger: logger}
}

// Method implements Handler.
func (h *ReassemblyHandler) Method() string { return config.MethodTokenReassembly }

// Extract implements Handler.
func (h *ReassemblyHandler) Extract(_ context.Context, text, field string, rule *config.ExtractionRule, _ map[string]string) ([]*ExtractedKey, error) {
	params := rule.TokenReassembly
	if text == "" || params == nil {
		return nil, nil
	}

	tokens, err := h.tokenize(text, &params.Tokenization, rule.RuleID)
	if err != nil || tokens == nil {
		return nil, err
	}

	maxCombos := params.MaxCombinations
	if maxCombos <= 0 {
		maxCombos = DefaultMaxCombinations
	}

	var assembled []*ExtractedKey
	for i := range params.AssemblyRules {
		keys, err := h.assemble(tokens, &params.AssemblyRules[i], params, field, rule, maxCombos)
		if err != nil {
			return nil, err
		}
		assembled = append(assembled, keys...)
	}

	if params.Validation == nil || params.Validation.Pattern == "" {
		return assembled, nil
	}

	validator, err := regexp.Compile(params.Validation.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w: validation pattern: %w", rule.RuleID, config.ErrInvalidRule, err)
	}
	var out []*ExtractedKey
	for _, key := range assembled {
		match := validator.FindString(key.Value)
		if match != key.Value {
			h.logger.Debug("reassembled key failed validation",
				zap.String("rule_id", rule.RuleID), zap.String("value", key.Value))
			continue
		}
		out = append(out, key)
	}
	return out, nil
}

// tokenize splits the text and matches tokens into named slots. A nil
// map means the input was rejected by the token count bounds.
func (h *ReassemblyHandler) tokenize(text string, tk *config.Tokenization, ruleID string) (map[string][]string, error) {
	var splitter *regexp.Regexp
	if len(tk.Separators) > 0 {
		class := ""
		for _, s := range tk.Separators {
			class += regexp.QuoteMeta(s)
		}
		re, err := regexp.Compile("[" + class + "]+")
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w: separators: %w", ruleID, config.ErrInvalidRule, err)
		}
		splitter = re
	} else {
		re, err := regexp.Compile(tk.Separator)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w: separator: %w", ruleID, config.ErrInvalidRule, err)
		}
		splitter = re
	}

	raw := splitter.Split(text, -1)

	if tk.MaxTokens > 0 && len(raw) > tk.MaxTokens {
		h.logger.Debug("input exceeds max tokens", zap.String("rule_id", ruleID), zap.Int("tokens", len(raw)))
		return nil, nil
	}
	if tk.MinTokens > 0 && len(raw) < tk.MinTokens {
		h.logger.Debug("input below min tokens", zap.String("rule_id", ruleID), zap.Int("tokens", len(raw)))
		return nil, nil
	}

	tokens := make(map[string][]string)
	for _, tp := range tk.TokenPatterns {
		re, err := regexp.Compile(tp.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w: token pattern %q: %w", ruleID, config.ErrInvalidRule, tp.Name, err)
		}
		for i, token := range raw {
			token = strings.TrimSpace(token)
			if tp.Position != nil && i != *tp.Position {
				continue
			}
			m := re.FindStringSubmatch(token)
			if m == nil || !strings.HasPrefix(token, m[0]) {
				continue
			}
			value := m[0]
			if len(m) > 1 && m[1] != "" {
				value = m[1]
			}
			tokens[tp.Name] = append(tokens[tp.Name], value)
		}
	}

	for _, tp := range tk.TokenPatterns {
		if tp.Required && len(tokens[tp.Name]) == 0 {
			h.logger.Debug("missing required token",
				zap.String("rule_id", ruleID), zap.String("token", tp.Name))
		}
	}

	return tokens, nil
}

// assemble renders the Cartesian product of token values through the
// assembly format, gated by the rule's conditions and capped at
// maxCombos combinations.
func (h *ReassemblyHandler) assemble(tokens map[string][]string, ar *config.AssemblyRule, params *config.TokenReassemblyParams, field string, rule *config.ExtractionRule, maxCombos int) ([]*ExtractedKey, error) {
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}

	var keys []*ExtractedKey
	produced := 0

	var walk func(i int, combo map[string]string) bool
	walk = func(i int, combo map[string]string) bool {
		if i == len(names) {
			if produced >= maxCombos {
				return false
			}
			produced++

			if !h.conditionsHold(combo, ar.Conditions, params) {
				return true
			}
			value, err := expandFormat(ar.Format, combo)
			if err != nil {
				h.logger.Debug("format placeholder missing from tokens",
					zap.String("assembly_rule", ar.Name), zap.Error(err))
				return true
			}

			key := NewExtractedKey(value, rule.ExtractionType, field,
				float64(ar.Priority)/100, config.MethodTokenReassembly, rule.RuleID)
			key.Metadata = map[string]any{"tokens_used": append([]string(nil), names...)}
			keys = append(keys, key)
			return true
		}
		for _, v := range tokens[names[i]] {
			combo[names[i]] = v
			if !walk(i+1, combo) {
				return false
			}
		}
		delete(combo, names[i])
		return true
	}

	if !walk(0, make(map[string]string, len(names))) {
		h.logger.Warn("combination cap reached",
			zap.String("rule_id", rule.RuleID),
			zap.String("assembly_rule", ar.Name),
			zap.Int("max_combinations", maxCombos))
	}

	return keys, nil
}

// conditionsHold evaluates the conjunction of assembly conditions
// against one token combination.
func (h *ReassemblyHandler) conditionsHold(combo map[string]string, conds []config.AssemblyCondition, params *config.TokenReassemblyParams) bool {
	for _, cond := range conds {
		var ok bool
		switch cond.Kind {
		case "token_missing":
			ok = combo[cond.Token] == ""
		case "all_required_present":
			ok = true
			for _, tp := range params.Tokenization.TokenPatterns {
				if tp.Required && combo[tp.Name] == "" {
					ok = false
					break
				}
			}
		case "context_match":
			ok = combo[cond.Token] == cond.Value
		default:
			return false
		}
		if cond.Negate {
			ok = !ok
		}
		if !ok {
			return false
		}
	}
	return true
}

var formatPlaceholder = regexp.MustCompile(`\{(\w+)\}`)

// expandFormat substitutes {name} placeholders with token values. A
// placeholder with no matching token is an error, so partial assemblies
// never leak out.
func expandFormat(format string, combo map[string]string) (string, error) {
	var missing string
	out := formatPlaceholder.ReplaceAllStringFunc(format, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := combo[name]
		if !ok || value == "" {
			missing = name
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("no value for placeholder %q", missing)
	}
	return out, nil
}
