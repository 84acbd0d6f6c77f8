package extraction

import (
	"regexp"
	"strings"
)

// Substring-match confidence tiers, first match wins. Token overlap is
// capped below the contains tier so partial matches never outrank a
// substring hit.
const (
	scoreExact    = 1.0
	scoreStartEnd = 0.90
	scoreContains = 0.80
	tokenCap      = 0.70
)

var wordTokens = regexp.MustCompile(`\w+`)

// ComputeConfidence scores an extracted value against its source field.
//
// Rules, first match wins:
//  1. exact match: 1.0
//  2. source starts or ends with extracted: 0.90
//  3. source contains extracted: 0.80
//  4. otherwise token overlap (extracted tokens found in source / total
//     extracted tokens), capped at 0.70
func ComputeConfidence(sourceValue, extractedValue string, caseSensitive bool) float64 {
	if sourceValue == "" || extractedValue == "" {
		return 0
	}

	src := strings.TrimSpace(sourceValue)
	ext := strings.TrimSpace(extractedValue)
	if !caseSensitive {
		src = strings.ToLower(src)
		ext = strings.ToLower(ext)
	}

	switch pos := strings.Index(src, ext); {
	case pos == 0 && len(ext) == len(src):
		return scoreExact
	case pos == 0, pos >= 0 && pos+len(ext) == len(src):
		return scoreStartEnd
	case pos > 0:
		return scoreContains
	}

	srcTokens := make(map[string]bool)
	for _, t := range wordTokens.FindAllString(src, -1) {
		srcTokens[t] = true
	}
	extTokens := wordTokens.FindAllString(ext, -1)
	if len(extTokens) == 0 {
		return 0
	}
	matches := 0
	for _, t := range extTokens {
		if srcTokens[t] {
			matches++
		}
	}
	ratio := float64(matches) / float64(len(extTokens))
	return min(ratio, tokenCap)
}
