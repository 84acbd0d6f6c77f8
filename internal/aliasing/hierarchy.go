package aliasing

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// HierarchicalExpansion renders aliases through location templates
// filled from the context, e.g. "{site}-{unit}-{equipment}".
type HierarchicalExpansion struct {
	logger *zap.Logger
}

// NewHierarchicalExpansion creates the hierarchical expansion transformer.
func NewHierarchicalExpansion(logger *zap.Logger) *HierarchicalExpansion {
	return &HierarchicalExpansion{logger: logger}
}

// Kind implements Transformer.
func (t *HierarchicalExpansion) Kind() string { return config.TransformHierarchicalExpansion }

var templatePlaceholder = regexp.MustCompile(`\{(\w+)\}`)

// Transform implements Transformer.
func (t *HierarchicalExpansion) Transform(aliases []string, rule *config.AliasingRule, tctx *Context) ([]string, error) {
	params := rule.HierarchicalExpansion
	if params == nil || tctx == nil {
		return nil, nil
	}

	var out []string
	for _, alias := range aliases {
		for _, level := range params.HierarchyLevels {
			variant, err := t.render(level.Format, alias, tctx)
			if err != nil {
				t.logger.Debug("skipping hierarchical level",
					zap.String("rule", rule.Name),
					zap.String("level", level.Level),
					zap.Error(err))
				continue
			}
			out = append(out, variant)
		}
	}
	return out, nil
}

// render fills the template placeholders; {equipment} is the alias, all
// others come from the context. A missing or null-ish value skips the
// level rather than emitting a broken alias.
func (t *HierarchicalExpansion) render(format, alias string, tctx *Context) (string, error) {
	var missing string
	rendered := templatePlaceholder.ReplaceAllStringFunc(format, func(m string) string {
		name := m[1 : len(m)-1]
		var value string
		if name == "equipment" {
			value = alias
		} else {
			value = tctx.Get(name)
		}
		if isNullish(value) {
			missing = name
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("no value for %q", missing)
	}
	return rendered, nil
}

func isNullish(value string) bool {
	switch strings.ToLower(value) {
	case "", "null", "none", "n/a", "na":
		return true
	}
	return false
}

// DocumentAliases generates document designation variants: P&ID
// spellings, zero-padded drawing numbers, sheet naming, and revision
// stripping for file names.
type DocumentAliases struct {
	logger *zap.Logger
}

// NewDocumentAliases creates the document alias transformer.
func NewDocumentAliases(logger *zap.Logger) *DocumentAliases {
	return &DocumentAliases{logger: logger}
}

// Kind implements Transformer.
func (t *DocumentAliases) Kind() string { return config.TransformDocumentAliases }

var (
	revisionSuffix = regexp.MustCompile(`[-_]Rev[-_]?[A-Z0-9]+`)
	numberRun      = regexp.MustCompile(`\d+`)
	trailingSheet  = regexp.MustCompile(`(.+)-(\d+)$`)

	// Revision markers in file names, before an extension or at the end.
	fileRevWithExt = regexp.MustCompile(`(?i)[-_\s]+(?:rev|revision|r)[-_\s]*\d+(\.[^.]+)$`)
	fileRevNoExt   = regexp.MustCompile(`(?i)[-_\s]+(?:rev|revision|r)[-_\s]*\d+([-_\s].*)?$`)
)

// Transform implements Transformer.
func (t *DocumentAliases) Transform(aliases []string, rule *config.AliasingRule, _ *Context) ([]string, error) {
	params := rule.DocumentAliases
	if params == nil {
		return nil, nil
	}

	var out []string
	for _, alias := range aliases {
		out = append(out, alias)

		if params.PIDRules.RemoveAmpersand {
			out = append(out, strings.ReplaceAll(alias, "P&ID", "PID"))
		}
		if params.PIDRules.AddSpaces {
			out = append(out, strings.ReplaceAll(alias, "-", " "))
		}
		if params.PIDRules.RevisionVariants {
			out = append(out, revisionSuffix.ReplaceAllString(alias, ""))
		}

		if zp := params.DrawingRules.ZeroPadding; zp.Enabled {
			width := zp.TargetLength
			if width == 0 {
				width = 6
			}
			out = append(out, numberRun.ReplaceAllStringFunc(alias, func(n string) string {
				if len(n) >= width {
					return n
				}
				return strings.Repeat("0", width-len(n)) + n
			}))
		}
		if params.DrawingRules.SheetVariants {
			if m := trailingSheet.FindStringSubmatch(alias); m != nil {
				out = append(out, m[1]+"-SH-"+m[2], m[1]+"-Sheet-"+m[2])
			}
		}

		if params.FileRules.RemoveRevisionNumbers {
			if hasExtension(alias) {
				if v := fileRevWithExt.ReplaceAllString(alias, "$1"); v != alias {
					out = append(out, v)
				}
			} else if v := fileRevNoExt.ReplaceAllString(alias, "$1"); v != alias {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func hasExtension(name string) bool {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return false
	}
	return dot > strings.LastIndexByte(name, '/')
}
