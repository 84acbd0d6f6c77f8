package extraction

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// Engine runs extraction rules against entities. Rules run in ascending
// priority order; a rule that fails never aborts its siblings.
type Engine struct {
	cfg      *config.ExtractionConfig
	handlers map[string]Handler
	logger   *zap.Logger

	rules []config.ExtractionRule
}

// NewEngine creates an extraction engine. corpus may be nil.
func NewEngine(cfg *config.ExtractionConfig, logger *zap.Logger, corpus CorpusProvider) *Engine {
	rules := make([]config.ExtractionRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		if err := rule.Validate(); err != nil {
			logger.Error("skipping invalid extraction rule", zap.Error(err))
			continue
		}
		if !rule.IsEnabled() {
			continue
		}
		rules = append(rules, rule)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})

	return &Engine{
		cfg:      cfg,
		handlers: NewHandlers(logger, corpus),
		logger:   logger,
		rules:    rules,
	}
}

// Rules returns the validated, enabled rules in execution order.
func (e *Engine) Rules() []config.ExtractionRule { return e.rules }

// ExtractKeys runs every applicable rule against the entity and returns
// the validated, categorized keys.
func (e *Engine) ExtractKeys(ctx context.Context, entity *Entity) (*ExtractionResult, error) {
	result := &ExtractionResult{
		EntityID:   entity.ID,
		EntityType: entity.Type,
	}

	enrich := e.buildContext(entity)

	for i := range e.rules {
		rule := &e.rules[i]

		if !scopeMatches(rule.ScopeFilters, enrich) {
			continue
		}

		handler, err := handlerFor(e.handlers, rule.Method)
		if err != nil {
			e.logger.Warn("no handler for extraction method",
				zap.String("rule_id", rule.RuleID), zap.Error(err))
			continue
		}

		collected := e.extractFromFields(ctx, entity, rule, handler, enrich)
		e.validateRule(rule, collected)
		for _, key := range collected {
			if key != nil {
				result.Add(key)
			}
		}
	}

	e.finalize(result)
	return result, nil
}

// extractFromFields runs the rule's handler over its source fields in
// priority order, honoring the field selection strategy.
func (e *Engine) extractFromFields(ctx context.Context, entity *Entity, rule *config.ExtractionRule, handler Handler, enrich map[string]string) []*ExtractedKey {
	fields := append([]config.SourceField(nil), rule.SourceFields...)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Priority < fields[j].Priority
	})

	var collected []*ExtractedKey
	for _, sf := range fields {
		value, ok := entity.Fields[sf.FieldName]
		if !ok || value == "" {
			if sf.Required {
				e.logger.Debug("required field missing",
					zap.String("rule_id", rule.RuleID),
					zap.String("field", sf.FieldName),
					zap.String("entity_id", entity.ID))
			}
			continue
		}

		processed := preprocess(value, &sf)

		keys, err := handler.Extract(ctx, processed, sf.FieldName, rule, enrich)
		if err != nil {
			e.logger.Error("extraction failed",
				zap.String("rule_id", rule.RuleID),
				zap.String("field", sf.FieldName),
				zap.Error(err))
			continue
		}

		collected = append(collected, keys...)
		if e.cfg.FieldSelectionStrategy == "first_match" && len(keys) > 0 {
			break
		}
	}
	return collected
}

// buildContext assembles the enrichment context scope filters and
// heuristic strategies read from.
func (e *Engine) buildContext(entity *Entity) map[string]string {
	enrich := map[string]string{
		"entity_type": entity.Type,
		"entity_id":   entity.ID,
	}
	for k, v := range entity.Context {
		enrich[k] = v
	}
	return enrich
}

// scopeMatches reports whether every scope filter value matches the
// context. A filter on a missing context key fails.
func scopeMatches(filters map[string]string, enrich map[string]string) bool {
	for key, want := range filters {
		if enrich[key] != want {
			return false
		}
	}
	return true
}

// preprocess applies the field's preprocessing steps and length cap.
func preprocess(value string, sf *config.SourceField) string {
	processed := value
	for _, step := range sf.Preprocessing {
		switch step {
		case "trim":
			processed = strings.TrimSpace(processed)
		case "lowercase":
			processed = strings.ToLower(processed)
		case "uppercase":
			processed = strings.ToUpper(processed)
		case "remove_special_chars":
			processed = specialChars.ReplaceAllString(processed, "")
		}
	}
	if sf.MaxLength > 0 && len(processed) > sf.MaxLength {
		processed = processed[:sf.MaxLength]
	}
	return processed
}

var specialChars = regexp.MustCompile(`[^\w\s-]`)

// validateRule applies the rule's validation block in place: blacklist
// first so blacklisted keys never reach the confidence filter, then the
// confidence floor, then regex matching. Rejected keys are nilled out.
func (e *Engine) validateRule(rule *config.ExtractionRule, keys []*ExtractedKey) {
	v := rule.Validation
	if v == nil {
		return
	}

	var matchers []*regexp.Regexp
	for _, pattern := range v.RegexpMatch {
		re, err := regexp.Compile(pattern)
		if err != nil {
			e.logger.Warn("invalid validation pattern",
				zap.String("rule_id", rule.RuleID), zap.String("pattern", pattern))
			continue
		}
		matchers = append(matchers, re)
	}

	for i, key := range keys {
		if key == nil {
			continue
		}
		if blacklisted(key.Value, v.BlacklistKeywords) {
			e.logger.Debug("key excluded by blacklist",
				zap.String("rule_id", rule.RuleID), zap.String("value", key.Value))
			keys[i] = nil
			continue
		}
		if key.Confidence() < v.MinConfidence {
			keys[i] = nil
			continue
		}
		if len(matchers) > 0 && !anyMatch(matchers, key.Value) {
			keys[i] = nil
		}
	}
}

func blacklisted(value string, keywords []string) bool {
	lower := strings.ToLower(value)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func anyMatch(matchers []*regexp.Regexp, value string) bool {
	for _, re := range matchers {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// finalize drops short keys, deduplicates each bucket keeping the
// highest-confidence copy, and stamps run metadata.
func (e *Engine) finalize(result *ExtractionResult) {
	minLen := e.cfg.MinKeyLength
	result.CandidateKeys = dedupe(dropShort(result.CandidateKeys, minLen))
	result.ForeignKeyReferences = dedupe(dropShort(result.ForeignKeyReferences, minLen))
	result.DocumentReferences = dedupe(dropShort(result.DocumentReferences, minLen))

	result.Metadata = map[string]any{
		"run_id":                    uuid.NewString(),
		"extraction_timestamp":      time.Now().UTC().Format(time.RFC3339),
		"total_candidate_keys":      len(result.CandidateKeys),
		"total_foreign_keys":        len(result.ForeignKeyReferences),
		"total_document_references": len(result.DocumentReferences),
		"field_selection_strategy":  e.cfg.FieldSelectionStrategy,
	}
}

func dropShort(keys []*ExtractedKey, minLen int) []*ExtractedKey {
	out := keys[:0]
	for _, key := range keys {
		if key != nil && len(key.Value) >= minLen {
			out = append(out, key)
		}
	}
	return out
}

// dedupe keeps one key per value, preferring the highest confidence.
// First-seen order is preserved.
func dedupe(keys []*ExtractedKey) []*ExtractedKey {
	best := make(map[string]*ExtractedKey, len(keys))
	var order []string
	for _, key := range keys {
		prev, seen := best[key.Value]
		if !seen {
			order = append(order, key.Value)
			best[key.Value] = key
			continue
		}
		if key.Confidence() > prev.Confidence() {
			best[key.Value] = key
		}
	}

	out := make([]*ExtractedKey, 0, len(order))
	for _, value := range order {
		out = append(out, best[value])
	}
	return out
}
