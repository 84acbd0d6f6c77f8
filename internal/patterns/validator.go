package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// Validator tests patterns against sample text: coverage analysis and
// suggestion of new patterns from recurring tag shapes.
type Validator struct {
	registry *Registry
}

// NewValidator creates a validator over the registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// PatternMatches reports one pattern's hits in a coverage run.
type PatternMatches struct {
	Name     string
	Pattern  string
	Kind     string // equipment type or document type
	Priority int
	Matches  []string
}

// Coverage summarizes how well the registry covers tags in a text.
type Coverage struct {
	TagMatches      []PatternMatches
	DocumentMatches []PatternMatches

	TotalTagMatches      int
	TotalDocumentMatches int

	PatternsWithMatches int
	PatternsTested      int
	HitRate             float64
}

// TestCoverage matches every registered pattern against the text.
func (v *Validator) TestCoverage(text string) *Coverage {
	cov := &Coverage{}

	for _, p := range v.registry.TagPatterns() {
		matches := p.Regexp().FindAllString(text, -1)
		cov.PatternsTested++
		if len(matches) == 0 {
			continue
		}
		cov.TagMatches = append(cov.TagMatches, PatternMatches{
			Name:     p.Name,
			Pattern:  p.Pattern,
			Kind:     p.EquipmentType,
			Priority: p.Priority,
			Matches:  matches,
		})
		cov.TotalTagMatches += len(matches)
		cov.PatternsWithMatches++
	}

	for _, p := range v.registry.DocumentPatterns() {
		matches := p.Regexp().FindAllString(text, -1)
		cov.PatternsTested++
		if len(matches) == 0 {
			continue
		}
		cov.DocumentMatches = append(cov.DocumentMatches, PatternMatches{
			Name:     p.Name,
			Pattern:  p.Pattern,
			Kind:     p.DocumentType,
			Priority: p.Priority,
			Matches:  matches,
		})
		cov.TotalDocumentMatches += len(matches)
		cov.PatternsWithMatches++
	}

	if cov.PatternsTested > 0 {
		cov.HitRate = float64(cov.PatternsWithMatches) / float64(cov.PatternsTested)
	}
	return cov
}

// Suggestion is one proposed pattern derived from recurring tag shapes.
type Suggestion struct {
	Pattern        string
	Structure      string
	Examples       []string
	TotalFrequency int
	UniqueTags     int
}

var (
	tagLike        = regexp.MustCompile(`\b[A-Z]{1,4}[-_]?\d{2,6}[A-Z0-9]?\b`)
	digitRun       = regexp.MustCompile(`\d+`)
	trailingLetter = regexp.MustCompile(`[A-Z]$`)
)

// SuggestPatterns groups tag-like strings by structure (digit runs
// collapse to N, a trailing letter to X) and proposes a regexp for each
// group seen at least minFrequency times. Results are ordered by total
// frequency, highest first.
func (v *Validator) SuggestPatterns(text string, minFrequency int) []Suggestion {
	if minFrequency < 1 {
		minFrequency = 2
	}

	freq := make(map[string]int)
	var order []string
	for _, tag := range tagLike.FindAllString(text, -1) {
		if freq[tag] == 0 {
			order = append(order, tag)
		}
		freq[tag]++
	}

	groups := make(map[string][]string)
	groupFreq := make(map[string]int)
	var groupOrder []string
	for _, tag := range order {
		if freq[tag] < minFrequency {
			continue
		}
		structure := digitRun.ReplaceAllString(trailingLetter.ReplaceAllString(tag, "X"), "N")
		if _, seen := groups[structure]; !seen {
			groupOrder = append(groupOrder, structure)
		}
		groups[structure] = append(groups[structure], tag)
		groupFreq[structure] += freq[tag]
	}

	var suggestions []Suggestion
	for _, structure := range groupOrder {
		examples := groups[structure]
		if len(examples) < minFrequency {
			continue
		}
		pattern := strings.ReplaceAll(structure, "N", `\d+`)
		pattern = strings.ReplaceAll(pattern, "X", `[A-Z]?`)
		suggestions = append(suggestions, Suggestion{
			Pattern:        `\b` + pattern + `\b`,
			Structure:      structure,
			Examples:       examples,
			TotalFrequency: groupFreq[structure],
			UniqueTags:     len(examples),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].TotalFrequency > suggestions[j].TotalFrequency
	})
	return suggestions
}
