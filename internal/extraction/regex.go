package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// RegexHandler extracts keys with regular expressions. The first capture
// group is the key value. Compiled patterns are cached per handler.
type RegexHandler struct {
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewRegexHandler creates a regex extraction handler.
func NewRegexHandler(logger *zap.Logger) *RegexHandler {
	return &RegexHandler{
		logger: logger,
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Method implements Handler.
func (h *RegexHandler) Method() string { return config.MethodRegex }

// Extract implements Handler.
func (h *RegexHandler) Extract(_ context.Context, text, field string, rule *config.ExtractionRule, _ map[string]string) ([]*ExtractedKey, error) {
	params := rule.Regex
	if text == "" || params == nil || params.Pattern == "" {
		return nil, nil
	}

	re, err := h.compile(params.Options.FlagPrefix() + params.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule.RuleID, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("rule %q: %w: pattern has no capture group", rule.RuleID, config.ErrInvalidRule)
	}

	var keys []*ExtractedKey
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		value := m[1]
		if value == "" {
			continue
		}

		confidence := h.score(value, text)
		if confidence < rule.MinConfidence {
			continue
		}

		key := NewExtractedKey(value, rule.ExtractionType, field, confidence, config.MethodRegex, rule.RuleID)
		key.Metadata = map[string]any{
			"pattern":        params.Pattern,
			"match_position": strings.Index(text, value),
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func (h *RegexHandler) compile(pattern string) (*regexp.Regexp, error) {
	h.mu.RLock()
	re, ok := h.cache[pattern]
	h.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidRule, err)
	}

	h.mu.Lock()
	h.cache[pattern] = re
	h.mu.Unlock()
	return re, nil
}

// score rates a regex match additively: 0.4 base, +0.1 for length >= 3,
// +0.1 when the match opens the field, +0.05 when it sits on word
// boundaries.
func (h *RegexHandler) score(value, text string) float64 {
	confidence := 0.4

	if len(value) >= 3 {
		confidence += 0.1
	}
	if strings.HasPrefix(strings.TrimSpace(text), value) {
		confidence += 0.1
	}
	if boundary, err := regexp.MatchString(`\b`+regexp.QuoteMeta(value)+`\b`, text); err == nil && boundary {
		confidence += 0.05
	}

	return min(confidence, 1.0)
}
