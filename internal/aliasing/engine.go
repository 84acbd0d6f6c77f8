package aliasing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
	"github.com/fyrsmithlabs/tagforge/internal/patterns"
)

// NewTransformers builds the full transformer set keyed by kind. The
// pattern-driven transformers consult the registry; the rest are
// self-contained.
func NewTransformers(logger *zap.Logger, registry *patterns.Registry) map[string]Transformer {
	transformers := []Transformer{
		NewCharacterSubstitution(logger),
		NewPrefixSuffix(logger),
		NewRegexSubstitution(logger),
		NewCaseTransformation(logger),
		NewEquipmentTypeExpansion(logger),
		NewRelatedInstruments(logger),
		NewHierarchicalExpansion(logger),
		NewDocumentAliases(logger),
		NewLeadingZeroNormalization(logger),
		NewPatternRecognition(logger, registry),
		NewPatternBasedExpansion(logger, registry),
	}

	out := make(map[string]Transformer, len(transformers))
	for _, t := range transformers {
		out[t.Kind()] = t
	}
	return out
}

// Engine runs the aliasing rule pipeline. Rules are validated and
// priority-sorted at construction; a rule that fails at runtime is
// logged and skipped without affecting its siblings.
type Engine struct {
	cfg          *config.AliasingConfig
	transformers map[string]Transformer
	logger       *zap.Logger
	rules        []*config.AliasingRule

	allowedAlias *regexp.Regexp
}

// NewEngine builds an aliasing engine. Invalid rules are dropped with an
// error log; the engine runs with whatever validates.
func NewEngine(cfg *config.AliasingConfig, transformers map[string]Transformer, logger *zap.Logger) (*Engine, error) {
	cfg.ApplyDefaults()

	allowed, err := compileAllowed(cfg.Validation.AllowedCharacters)
	if err != nil {
		return nil, fmt.Errorf("allowed_characters: %w", err)
	}

	e := &Engine{
		cfg:          cfg,
		transformers: transformers,
		logger:       logger,
		allowedAlias: allowed,
	}

	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		if err := rule.Validate(); err != nil {
			logger.Error("dropping aliasing rule", zap.Error(err))
			continue
		}
		if !rule.IsEnabled() {
			continue
		}
		if _, ok := transformers[rule.Type]; !ok {
			logger.Error("dropping aliasing rule without transformer",
				zap.String("rule", rule.Name), zap.String("type", rule.Type))
			continue
		}
		e.rules = append(e.rules, rule)
	}
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].EffectivePriority() < e.rules[j].EffectivePriority()
	})

	logger.Info("aliasing engine ready",
		zap.Int("rules", len(e.rules)),
		zap.Int("transformers", len(transformers)))
	return e, nil
}

// compileAllowed turns the configured character class into an anchored
// matcher. A value already wrapped in brackets is used as-is.
func compileAllowed(class string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(class, "[") {
		class = "[" + class + "]"
	}
	return regexp.Compile(`^` + class + `+$`)
}

// Expand generates the alias set for one tag. tctx may be nil when no
// enrichment context is available.
func (e *Engine) Expand(tag string, tctx *Context) *Result {
	if tctx == nil {
		tctx = NewContext("", nil)
	}

	aliases := []string{tag}
	var applied []string

	for _, rule := range e.rules {
		if !e.ruleApplies(rule, tctx) {
			continue
		}

		produced, err := e.transformers[rule.Type].Transform(aliases, rule, tctx)
		if err != nil {
			e.logger.Error("aliasing rule failed",
				zap.String("rule", rule.Name),
				zap.String("tag", tag),
				zap.Error(err))
			continue
		}
		if len(produced) == 0 {
			continue
		}

		if rule.Preserve() {
			aliases = append(aliases, produced...)
		} else {
			aliases = produced
		}
		aliases = dedupeStrings(aliases)
		applied = append(applied, rule.Name)

		e.logger.Debug("aliasing rule applied",
			zap.String("rule", rule.Name),
			zap.Int("aliases", len(aliases)))
	}

	aliases = e.finalize(tag, aliases)

	return &Result{
		OriginalTag: tag,
		Aliases:     aliases,
		Metadata: map[string]any{
			"applied_rules": applied,
			"alias_count":   len(aliases),
		},
	}
}

// ruleApplies evaluates scope filters and conditions. Both are maps of
// context key to accepted values; the entity_type key matches the
// context's entity type. Every listed key must match.
func (e *Engine) ruleApplies(rule *config.AliasingRule, tctx *Context) bool {
	return matchesFilters(rule.ScopeFilters, tctx) && matchesFilters(rule.Conditions, tctx)
}

func matchesFilters(filters map[string][]string, tctx *Context) bool {
	for key, accepted := range filters {
		if len(accepted) == 0 {
			continue
		}
		value := tctx.Get(key)
		if key == "entity_type" {
			value = tctx.EntityType
		}
		if !containsFold(accepted, value) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// finalize applies the validation gates: length bounds, the allowed
// character class, order-preserving dedup, and the per-tag cap. The cap
// keeps the original tag and truncates the sorted remainder.
func (e *Engine) finalize(tag string, aliases []string) []string {
	v := e.cfg.Validation

	var valid []string
	seen := make(map[string]bool)
	for _, alias := range aliases {
		if len(alias) < v.MinAliasLength || len(alias) > v.MaxAliasLength {
			continue
		}
		if !e.allowedAlias.MatchString(alias) {
			continue
		}
		if !seen[alias] {
			seen[alias] = true
			valid = append(valid, alias)
		}
	}

	if len(valid) <= v.MaxAliasesPerTag {
		return valid
	}

	var rest []string
	keepOriginal := false
	for _, alias := range valid {
		if alias == tag {
			keepOriginal = true
			continue
		}
		rest = append(rest, alias)
	}
	sort.Strings(rest)

	if keepOriginal {
		return append([]string{tag}, rest[:v.MaxAliasesPerTag-1]...)
	}
	return rest[:v.MaxAliasesPerTag]
}
