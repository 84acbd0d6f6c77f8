package extraction

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// FixedWidthHandler extracts keys by slicing lines at fixed character
// positions. Individual fields from the same line are additionally
// reconstructed into a complete tag.
type FixedWidthHandler struct {
	logger *zap.Logger
}

// NewFixedWidthHandler creates a fixed-width extraction handler.
func NewFixedWidthHandler(logger *zap.Logger) *FixedWidthHandler {
	return &FixedWidthHandler{logger: logger}
}

// Method implements Handler.
func (h *FixedWidthHandler) Method() string { return config.MethodFixedWidth }

// Extract implements Handler.
func (h *FixedWidthHandler) Extract(_ context.Context, text, field string, rule *config.ExtractionRule, _ map[string]string) ([]*ExtractedKey, error) {
	params := rule.FixedWidth
	if text == "" || params == nil {
		return nil, nil
	}

	text, err := decodeText(text, params.Encoding)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule.RuleID, err)
	}

	defs := params.FieldDefinitions
	if len(defs) == 0 {
		defs = positionsToDefinitions(params.Positions, params.Padding)
	}
	if len(defs) == 0 {
		h.logger.Warn("fixed width rule without field layout", zap.String("rule_id", rule.RuleID))
		return nil, nil
	}

	var linePattern *regexp.Regexp
	if params.Pattern != "" {
		compiled, err := CompileWidthPattern(params.Pattern)
		if err != nil {
			h.logger.Warn("unusable width pattern, skipping line validation",
				zap.String("rule_id", rule.RuleID), zap.Error(err))
		} else {
			linePattern = compiled
		}
	}
	var lineFilter *regexp.Regexp
	if params.LinePattern != "" {
		compiled, err := regexp.Compile(params.LinePattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w: line_pattern: %w", rule.RuleID, config.ErrInvalidRule, err)
		}
		lineFilter = compiled
	}

	delim := params.RecordDelimiter
	if delim == "" {
		delim = "\n"
	}

	var keys []*ExtractedKey
	for i, line := range strings.Split(text, delim) {
		if i < params.SkipLines {
			continue
		}
		if params.StopOnEmpty && strings.TrimSpace(line) == "" {
			break
		}
		if lineFilter != nil && !matchesAtStart(lineFilter, line) {
			continue
		}
		if linePattern != nil && !matchesAtStart(linePattern, line) {
			continue
		}
		keys = append(keys, h.extractLine(line, field, defs, rule)...)
	}

	return h.reconstruct(keys, rule), nil
}

// decodeText reinterprets raw field bytes in the declared encoding.
// UTF-8 and ASCII pass through; Latin-1 maps each byte to the matching
// code point. Field positions refer to the decoded text.
func decodeText(text, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8", "ascii":
		return text, nil
	case "latin-1", "latin1", "iso-8859-1":
		runes := make([]rune, len(text))
		for i := 0; i < len(text); i++ {
			runes[i] = rune(text[i])
		}
		return string(runes), nil
	}
	return "", fmt.Errorf("%w: unsupported encoding %q", config.ErrInvalidRule, encoding)
}

func matchesAtStart(re *regexp.Regexp, line string) bool {
	loc := re.FindStringIndex(line)
	return loc != nil && loc[0] == 0
}

// positionsToDefinitions normalizes the shorthand layout into full field
// definitions.
func positionsToDefinitions(positions []config.PositionSpec, padding string) []config.FieldDefinition {
	defs := make([]config.FieldDefinition, 0, len(positions))
	for i, p := range positions {
		end := p.End
		if end == 0 {
			end = p.Start + 1
		}
		fieldType := p.Type
		if fieldType == "" {
			fieldType = "unknown"
		}
		if padding == "" {
			padding = "none"
		}
		defs = append(defs, config.FieldDefinition{
			Name:      fmt.Sprintf("field_%d", i),
			Start:     p.Start,
			End:       end,
			FieldType: fieldType,
			Required:  !p.Optional,
			Padding:   padding,
		})
	}
	return defs
}

func (h *FixedWidthHandler) extractLine(line, field string, defs []config.FieldDefinition, rule *config.ExtractionRule) []*ExtractedKey {
	var keys []*ExtractedKey

	for _, def := range defs {
		start, end := def.Start, def.End
		if end == 0 || end > len(line) {
			if def.Required && end > len(line) {
				continue
			}
			end = len(line)
		}
		if start >= len(line) || start >= end {
			continue
		}

		value := line[start:end]
		switch def.Padding {
		case "zero":
			if trimmed := strings.TrimLeft(value, "0"); trimmed != "" {
				value = trimmed
			} else if value != "" {
				value = "0"
			}
		case "space":
			value = strings.TrimSpace(value)
		}
		if def.Trim == nil || *def.Trim {
			value = strings.TrimSpace(value)
		}

		if value == "" {
			continue
		}
		if def.FieldType != "" && def.FieldType != "unknown" && !validFieldType(value, def.FieldType) {
			continue
		}

		name := def.Name
		if name == "" {
			name = field
		}
		key := NewExtractedKey(value, rule.ExtractionType, name,
			fixedWidthScore(value, def.FieldType, def.Required), config.MethodFixedWidth, rule.RuleID)
		key.Metadata = map[string]any{
			"start_position": start,
			"end_position":   end,
			"field_type":     def.FieldType,
			"source_text":    line,
		}
		keys = append(keys, key)
	}

	return keys
}

// validFieldType checks a sliced value against its declared type.
func validFieldType(value, fieldType string) bool {
	switch fieldType {
	case "equipment_type":
		return isAlpha(value) && len(value) <= 3
	case "number":
		return isDigits(value)
	case "suffix":
		return isAlnum(value) && len(value) <= 2
	case "instrument_type":
		return isAlpha(value) && len(value) <= 4
	}
	return true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isAlpha(string(r)) && !isDigits(string(r)) {
			return false
		}
	}
	return true
}

// fixedWidthScore starts high because position layouts rarely match by
// accident, then rewards type validity and required fields.
func fixedWidthScore(value, fieldType string, required bool) float64 {
	confidence := 0.9
	if validFieldType(value, fieldType) {
		confidence += 0.05
	}
	if required {
		confidence += 0.05
	}
	return min(confidence, 1.0)
}

// reconstruct joins per-line field slices back into a complete tag,
// ordered by position. Lines with a single field pass through unchanged.
func (h *FixedWidthHandler) reconstruct(keys []*ExtractedKey, rule *config.ExtractionRule) []*ExtractedKey {
	if len(keys) == 0 {
		return nil
	}

	groups := make(map[string][]*ExtractedKey)
	var order []string
	for _, key := range keys {
		line, _ := key.Metadata["source_text"].(string)
		if _, seen := groups[line]; !seen {
			order = append(order, line)
		}
		groups[line] = append(groups[line], key)
	}

	var out []*ExtractedKey
	for _, line := range order {
		group := groups[line]
		if len(group) < 2 {
			out = append(out, group...)
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			pi, _ := group[i].Metadata["start_position"].(int)
			pj, _ := group[j].Metadata["start_position"].(int)
			return pi < pj
		})

		var b strings.Builder
		confidence := group[0].Confidence()
		components := make([]string, 0, len(group))
		for _, key := range group {
			b.WriteString(key.Value)
			components = append(components, key.Value)
			if key.Confidence() < confidence {
				confidence = key.Confidence()
			}
		}

		key := NewExtractedKey(b.String(), rule.ExtractionType, group[0].SourceField,
			confidence, config.MethodFixedWidth, rule.RuleID)
		key.Metadata = map[string]any{
			"reconstructed":  true,
			"component_keys": components,
			"source_text":    line,
			"field_count":    len(group),
		}
		out = append(out, key)
	}

	return out
}

// Width patterns annotate regex-like atoms with fixed positions, e.g.
//
//	P{position:0,length:1}\d{position:1,length:3}[A-Z]{position:4,length:1}
//
// CompileWidthPattern lowers such a pattern to a plain regexp by
// tokenizing it into atoms, attaching each {position,length} annotation
// to the preceding atom, and emitting atom{length} for each.

type widthAtom struct {
	atom   string // literal char, \d style class, or [...] class
	length int    // 0 when unannotated
}

// CompileWidthPattern converts a position-annotated width pattern into a
// compiled regexp anchored at the line start.
func CompileWidthPattern(pattern string) (*regexp.Regexp, error) {
	atoms, err := tokenizeWidthPattern(pattern)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, a := range atoms {
		b.WriteString(a.atom)
		if a.length > 1 {
			fmt.Fprintf(&b, "{%d}", a.length)
		}
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("width pattern %q: %w", pattern, err)
	}
	return re, nil
}

var widthAnnotation = regexp.MustCompile(`^\{position:(\d+),length:(\d+)\}`)

func tokenizeWidthPattern(pattern string) ([]widthAtom, error) {
	var atoms []widthAtom

	for i := 0; i < len(pattern); {
		var atom string
		switch pattern[i] {
		case '\\':
			if i+1 >= len(pattern) {
				return nil, fmt.Errorf("width pattern %q: trailing backslash", pattern)
			}
			atom = pattern[i : i+2]
			i += 2
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("width pattern %q: unterminated character class", pattern)
			}
			atom = pattern[i : i+end+1]
			i += end + 1
		case '{':
			return nil, fmt.Errorf("width pattern %q: annotation without preceding atom", pattern)
		default:
			atom = regexp.QuoteMeta(string(pattern[i]))
			i++
		}

		length := 0
		if m := widthAnnotation.FindStringSubmatch(pattern[i:]); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("width pattern %q: bad length %q", pattern, m[2])
			}
			length = n
			i += len(m[0])
		}

		atoms = append(atoms, widthAtom{atom: atom, length: length})
	}

	if len(atoms) == 0 {
		return nil, fmt.Errorf("empty width pattern")
	}
	return atoms, nil
}
