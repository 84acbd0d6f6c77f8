package aliasing

import (
	"regexp"
	"strings"
)

// Standard tag structure: prefix, number, optional suffix letter.
// Examples: P-10001, FIC_001, PUMP10001A.
var standardTagPattern = regexp.MustCompile(`^([A-Z]+)[-_]?(\d+)([A-Z]?)$`)

// Hierarchical tag structure: unit, equipment letter, number.
// Examples: 10-P-10001, 20_V-2001.
var hierarchicalTagPattern = regexp.MustCompile(`^(\d+[-_])([A-Z][-_]?)(\d+)$`)

var firstNumber = regexp.MustCompile(`\d+`)

var separatorChars = regexp.MustCompile(`[-_\s/.]`)

// TagStructure is the decomposition of a standard tag.
type TagStructure struct {
	Prefix string
	Number string
	Suffix string
}

// ParseTag decomposes a standard-form tag. The second return is false
// when the tag does not follow the prefix-number-suffix form.
func ParseTag(tag string) (TagStructure, bool) {
	m := standardTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return TagStructure{}, false
	}
	return TagStructure{Prefix: m[1], Number: m[2], Suffix: m[3]}, true
}

// HierarchicalStructure is the decomposition of a hierarchical tag.
type HierarchicalStructure struct {
	Unit      string
	Equipment string
	Number    string
}

// ParseHierarchicalTag decomposes a unit-equipment-number tag.
func ParseHierarchicalTag(tag string) (HierarchicalStructure, bool) {
	m := hierarchicalTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return HierarchicalStructure{}, false
	}
	return HierarchicalStructure{
		Unit:      strings.TrimRight(m[1], "-_"),
		Equipment: strings.Trim(m[2], "-_"),
		Number:    m[3],
	}, true
}

// EquipmentNumber returns the first numeric run in a tag, or empty.
func EquipmentNumber(tag string) string {
	return firstNumber.FindString(tag)
}

// SeparatorVariants rewrites every separator character in the tag to
// each target separator in turn. The default targets are "-", "_" and
// the empty string.
func SeparatorVariants(tag string, targets []string) []string {
	if len(targets) == 0 {
		targets = []string{"-", "_", ""}
	}

	var variants []string
	seen := make(map[string]bool)
	for _, sep := range targets {
		variant := separatorChars.ReplaceAllString(tag, sep)
		if !seen[variant] {
			seen[variant] = true
			variants = append(variants, variant)
		}
	}
	return variants
}

// NormalizeSeparators rewrites every separator character to target.
func NormalizeSeparators(tag, target string) string {
	return separatorChars.ReplaceAllString(tag, target)
}

// structureVariant re-renders a tag's structure with an alternative
// separator, returning the first variant that differs from the tag.
func structureVariant(tag string) string {
	st, ok := ParseTag(tag)
	if !ok {
		return ""
	}
	for _, sep := range []string{"-", "_", ""} {
		variant := st.Prefix + sep + st.Number + st.Suffix
		if variant != tag {
			return variant
		}
	}
	return ""
}
