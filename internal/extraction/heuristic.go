package extraction

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// defaultCandidatePattern is the shape candidates must have before any
// strategy scores them.
const defaultCandidatePattern = `[A-Z0-9-_]{3,15}`

// corpusFetchLimit bounds how many field values frequency analysis pulls
// from the corpus provider.
const corpusFetchLimit = 1000

// HeuristicHandler scores candidate substrings through a weighted
// ensemble of strategies, then applies confidence modifiers and a
// threshold.
type HeuristicHandler struct {
	logger *zap.Logger
	corpus CorpusProvider
}

// NewHeuristicHandler creates a heuristic extraction handler. corpus may
// be nil; corpus-backed strategies then fall back to the input text.
func NewHeuristicHandler(logger *zap.Logger, corpus CorpusProvider) *HeuristicHandler {
	return &HeuristicHandler{logger: logger, corpus: corpus}
}

// Method implements Handler.
func (h *HeuristicHandler) Method() string { return config.MethodHeuristic }

// Extract implements Handler.
func (h *HeuristicHandler) Extract(ctx context.Context, text, field string, rule *config.ExtractionRule, enrich map[string]string) ([]*ExtractedKey, error) {
	params := rule.Heuristic
	if text == "" || params == nil || len(params.Strategies) == 0 {
		return nil, nil
	}

	candidateRe, err := h.candidateRegexp(params)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	agreement := make(map[string]int)

	for i := range params.Strategies {
		s := &params.Strategies[i]
		weight := s.Weight
		if weight == 0 {
			weight = 0.25
		}

		var candidates map[string]float64
		switch s.Method {
		case config.StrategyPositional:
			candidates = h.positional(text, s.Positional)
		case config.StrategyFrequency:
			candidates = h.frequency(ctx, text, field, enrich, s.Frequency, candidateRe)
		case config.StrategyContext:
			candidates = h.contextInference(text, s.Context, candidateRe)
		case config.StrategyExamples:
			candidates = h.exampleBased(text, candidateRe)
		default:
			h.logger.Warn("unknown heuristic strategy",
				zap.String("rule_id", rule.RuleID), zap.String("method", s.Method))
			continue
		}

		for candidate, score := range candidates {
			scores[candidate] += score * weight
			agreement[candidate]++
		}
	}

	var keys []*ExtractedKey
	for candidate, base := range scores {
		adjusted := base
		for _, mod := range params.ConfidenceModifiers {
			if h.modifierApplies(candidate, field, &mod, agreement[candidate]) {
				adjusted += parseDelta(mod.Modifier)
			}
		}
		adjusted = max(0, min(1, adjusted))

		if adjusted < rule.MinConfidence {
			continue
		}

		key := NewExtractedKey(candidate, rule.ExtractionType, field, adjusted, config.MethodHeuristic, rule.RuleID)
		key.Metadata = map[string]any{
			"base_score":         base,
			"strategies_agreed":  agreement[candidate],
			"strategies_applied": len(params.Strategies),
		}
		keys = append(keys, key)
	}

	// Map iteration order is random; results are ordered for stable output.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Confidence() != keys[j].Confidence() {
			return keys[i].Confidence() > keys[j].Confidence()
		}
		return keys[i].Value < keys[j].Value
	})
	return keys, nil
}

func (h *HeuristicHandler) candidateRegexp(params *config.HeuristicParams) (*regexp.Regexp, error) {
	pattern := params.CandidatePattern
	if pattern == "" {
		pattern = defaultCandidatePattern
	}
	return regexp.Compile(pattern)
}

// positional scores candidates by where they sit in the field. Base
// scores: start of field 0.7, after keyword 0.8 (0.6 for the keyword
// fallback), in parentheses 0.6.
func (h *HeuristicHandler) positional(text string, rules []config.PositionalRule) map[string]float64 {
	candidates := make(map[string]float64)

	for _, pr := range rules {
		re, err := regexp.Compile(pr.Pattern)
		if err != nil {
			h.logger.Warn("invalid positional pattern", zap.String("pattern", pr.Pattern), zap.Error(err))
			continue
		}

		switch pr.Position {
		case "start_of_field":
			if m := re.FindString(text); m != "" && strings.HasPrefix(text, m) {
				if _, ok := candidates[m]; !ok {
					candidates[m] = 0.7
				}
				candidates[m] += pr.ConfidenceBoost
			}

		case "after_keyword":
			matched := false
			for _, keyword := range pr.Keywords {
				kre, err := regexp.Compile(regexp.QuoteMeta(keyword) + `\s*(` + pr.Pattern + `)`)
				if err != nil {
					continue
				}
				for _, m := range kre.FindAllStringSubmatch(text, -1) {
					candidates[m[1]] = 0.8 + pr.ConfidenceBoost
					matched = true
				}
			}
			if !matched && keywordPresent(text, pr.Keywords) {
				for _, m := range re.FindAllString(text, -1) {
					if _, ok := candidates[m]; !ok {
						candidates[m] = 0.6
					}
					candidates[m] += pr.ConfidenceBoost
				}
			}

		case "in_parentheses":
			for _, m := range re.FindAllString(text, -1) {
				if _, ok := candidates[m]; !ok {
					candidates[m] = 0.6
				}
				candidates[m] += pr.ConfidenceBoost
			}
		}
	}

	return candidates
}

func keywordPresent(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// frequency scores candidates by recurrence, optionally over a corpus
// fetched through the provider. Provider failures degrade to the input
// text.
func (h *HeuristicHandler) frequency(ctx context.Context, text, field string, enrich map[string]string, fr *config.FrequencyRule, candidateRe *regexp.Regexp) map[string]float64 {
	if fr == nil {
		return nil
	}

	corpus := []string{text}
	if fr.AnalyzeCorpus && h.corpus != nil {
		ref := CorpusRef{
			Space: enrich["instance_space"],
			View:  enrich["view"],
			Field: field,
		}
		values, err := h.corpus.FieldValues(ctx, ref, corpusFetchLimit)
		if err != nil {
			h.logger.Warn("corpus fetch failed, using input text only",
				zap.String("field", field), zap.Error(err))
		} else if len(values) > 0 {
			corpus = values
		}
	}

	candidates := make(map[string]float64)

	counts := make(map[string]int)
	for _, m := range candidateRe.FindAllString(strings.Join(corpus, " "), -1) {
		counts[m]++
	}

	minFreq := fr.MinFrequency
	if minFreq == 0 {
		minFreq = 1
	}
	for candidate, count := range counts {
		if count < minFreq {
			continue
		}
		if !strings.Contains(text, candidate) {
			continue
		}
		candidates[candidate] = 0.5
		if count > 1 {
			candidates[candidate] += 0.05
		}
		if len(candidate) >= 3 && len(candidate) <= 12 {
			candidates[candidate] += 0.01
		}
	}

	h.applyAffix(candidates, fr.CommonPrefixDetection, strings.HasPrefix, prefixOf)
	h.applyAffix(candidates, fr.CommonSuffixDetection, strings.HasSuffix, suffixOf)
	h.applyNGrams(candidates, corpus, fr.NGramAnalysis)

	return candidates
}

func prefixOf(s string, n int) string { return s[:n] }
func suffixOf(s string, n int) string { return s[len(s)-n:] }

// applyAffix boosts candidates sharing frequent prefixes or suffixes.
// Boosts decay harmonically with the affix's frequency rank.
func (h *HeuristicHandler) applyAffix(candidates map[string]float64, conf *config.AffixDetection, has func(string, string) bool, cut func(string, int) string) {
	if conf == nil || !conf.Enabled || len(candidates) == 0 {
		return
	}

	lengths := conf.Lengths
	if len(lengths) == 0 {
		lengths = []int{2, 3, 4}
	}
	minFreq := conf.MinFrequency
	if minFreq == 0 {
		minFreq = 3
	}
	modifier := conf.ScoreModifier
	if modifier == 0 {
		modifier = 0.3
	}

	counts := make(map[string]int)
	for candidate := range candidates {
		for _, n := range lengths {
			if len(candidate) >= n {
				counts[cut(candidate, n)]++
			}
		}
	}

	type rankedAffix struct {
		affix string
		count int
	}
	var ranked []rankedAffix
	for affix, count := range counts {
		if count >= minFreq {
			ranked = append(ranked, rankedAffix{affix, count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].affix < ranked[j].affix
	})

	for rank, ra := range ranked {
		boost := modifier / float64(rank+1)
		for candidate := range candidates {
			if has(candidate, ra.affix) {
				candidates[candidate] += boost
			}
		}
	}
}

// applyNGrams boosts candidates containing frequent corpus n-grams, with
// the same harmonic rank decay as affix detection.
func (h *HeuristicHandler) applyNGrams(candidates map[string]float64, corpus []string, conf *config.NGramAnalysis) {
	if conf == nil || !conf.Enabled || len(candidates) == 0 {
		return
	}

	sizes := conf.Sizes
	if len(sizes) == 0 {
		sizes = []int{3, 4, 5}
	}
	modifier := conf.ScoreModifier
	if modifier == 0 {
		modifier = 0.3
	}

	counts := make(map[string]int)
	for _, entry := range corpus {
		for _, n := range sizes {
			for i := 0; i+n <= len(entry); i++ {
				counts[entry[i:i+n]]++
			}
		}
	}

	type rankedGram struct {
		gram  string
		count int
	}
	ranked := make([]rankedGram, 0, len(counts))
	for gram, count := range counts {
		ranked = append(ranked, rankedGram{gram, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].gram < ranked[j].gram
	})

	for rank, rg := range ranked {
		boost := modifier / float64(rank+1)
		for candidate := range candidates {
			if strings.Contains(candidate, rg.gram) {
				candidates[candidate] += boost
			}
		}
	}
}

// contextInference scores candidates by keyword proximity inside a
// window around each occurrence. Base 0.4, plus or minus the proximity
// bonus per keyword hit.
func (h *HeuristicHandler) contextInference(text string, cr *config.ContextRule, candidateRe *regexp.Regexp) map[string]float64 {
	if cr == nil {
		return nil
	}

	window := cr.ContextWindow
	if window == 0 {
		window = 20
	}

	candidates := make(map[string]float64)
	for _, candidate := range candidateRe.FindAllString(text, -1) {
		score := 0.4

		pos := strings.Index(text, candidate)
		start := max(0, pos-window)
		end := min(len(text), pos+len(candidate)+window)
		windowText := strings.ToLower(text[start:end])

		for _, keyword := range cr.PositiveKeywords {
			if strings.Contains(windowText, strings.ToLower(keyword)) {
				score += cr.ProximityBonus
			}
		}
		for _, keyword := range cr.NegativeKeywords {
			if strings.Contains(windowText, strings.ToLower(keyword)) {
				score -= cr.ProximityBonus
			}
		}

		candidates[candidate] = max(0, score)
	}

	return candidates
}

var (
	tagShapeLoose = regexp.MustCompile(`^[A-Z]+[-_]?\d+[A-Z]?$`)
	tagShapeTight = regexp.MustCompile(`^[A-Z]{1,3}[-_]?\d{2,4}[A-Z]?$`)
)

// exampleBased scores candidates by structural similarity to known tag
// shapes: 0.3 base, +0.3 for the loose shape, +0.2 for the tight
// industrial shape.
func (h *HeuristicHandler) exampleBased(text string, candidateRe *regexp.Regexp) map[string]float64 {
	candidates := make(map[string]float64)
	for _, candidate := range candidateRe.FindAllString(text, -1) {
		score := 0.3
		if tagShapeLoose.MatchString(candidate) {
			score += 0.3
		}
		if tagShapeTight.MatchString(candidate) {
			score += 0.2
		}
		candidates[candidate] = score
	}
	return candidates
}

func (h *HeuristicHandler) modifierApplies(candidate, field string, mod *config.ConfidenceModifier, agreed int) bool {
	switch mod.Condition {
	case config.ModifierStrategiesAgree:
		minAgree := mod.MinAgree
		if minAgree == 0 {
			minAgree = 2
		}
		return agreed >= minAgree
	case config.ModifierFieldName:
		for _, name := range mod.FieldNames {
			if strings.EqualFold(name, field) {
				return true
			}
		}
		return false
	case config.ModifierValueLength:
		lo, hi := 5, 20
		if len(mod.Range) == 2 {
			lo, hi = mod.Range[0], mod.Range[1]
		}
		return len(candidate) >= lo && len(candidate) <= hi
	case config.ModifierKnownCatalog:
		for _, known := range mod.Catalog {
			if known == candidate {
				return true
			}
		}
		return false
	}
	return false
}

// parseDelta reads a signed modifier like "+0.1" or "-0.05".
func parseDelta(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
