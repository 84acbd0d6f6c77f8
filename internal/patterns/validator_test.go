package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidator_TestCoverage(t *testing.T) {
	v := NewValidator(Defaults(zap.NewNop()))

	cov := v.TestCoverage("P-101 feeds V-201, see P&ID-2001")

	assert.Equal(t, 6, cov.PatternsTested)
	assert.Greater(t, cov.PatternsWithMatches, 0)
	assert.Greater(t, cov.TotalTagMatches, 0)
	assert.Greater(t, cov.TotalDocumentMatches, 0)
	assert.InDelta(t, float64(cov.PatternsWithMatches)/6, cov.HitRate, 0.001)

	var pumpHits []string
	for _, m := range cov.TagMatches {
		if m.Name == "default_pump" {
			pumpHits = m.Matches
		}
	}
	assert.Equal(t, []string{"P-101"}, pumpHits)
}

func TestValidator_TestCoverage_NoMatches(t *testing.T) {
	v := NewValidator(Defaults(zap.NewNop()))

	cov := v.TestCoverage("nothing tag-like here")
	assert.Zero(t, cov.TotalTagMatches)
	assert.Zero(t, cov.HitRate)
}

func TestValidator_SuggestPatterns(t *testing.T) {
	v := NewValidator(NewRegistry(zap.NewNop()))

	text := strings.Repeat("XY-1234 ", 3) + strings.Repeat("XY-5678 ", 2) + "QQ-99 "
	suggestions := v.SuggestPatterns(text, 2)

	require.Len(t, suggestions, 1, "QQ-99 occurs once and is excluded")
	s := suggestions[0]
	assert.Equal(t, "XY-N", s.Structure)
	assert.Equal(t, `\bXY-\d+\b`, s.Pattern)
	assert.Equal(t, 5, s.TotalFrequency)
	assert.Equal(t, 2, s.UniqueTags)
	assert.ElementsMatch(t, []string{"XY-1234", "XY-5678"}, s.Examples)
}

func TestValidator_SuggestPatterns_TrailingLetter(t *testing.T) {
	v := NewValidator(NewRegistry(zap.NewNop()))

	text := "P-101A P-101A P-202B P-202B"
	suggestions := v.SuggestPatterns(text, 2)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "P-NX", suggestions[0].Structure)
	assert.Equal(t, `\bP-\d+[A-Z]?\b`, suggestions[0].Pattern)
}
