// Package patterns provides a registry of industrial tag patterns and
// document naming conventions. Patterns load from a YAML document and
// fall back to a built-in default set; each pattern's regexp is compiled
// at registration so lookups never fail late.
package patterns

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// Equipment types in industrial facilities.
const (
	EquipmentPump          = "pump"
	EquipmentCompressor    = "compressor"
	EquipmentValve         = "valve"
	EquipmentTank          = "tank"
	EquipmentVessel        = "vessel"
	EquipmentHeatExchanger = "heat_exchanger"
	EquipmentReactor       = "reactor"
	EquipmentColumn        = "column"
	EquipmentTurbine       = "turbine"
	EquipmentMotor         = "motor"
	EquipmentInstrument    = "instrument"
	EquipmentPipe          = "pipe"
	EquipmentFitting       = "fitting"
	EquipmentGeneric       = "generic"
)

// Instrument types following ISA conventions.
const (
	InstrumentFlow        = "flow"
	InstrumentPressure    = "pressure"
	InstrumentTemperature = "temperature"
	InstrumentLevel       = "level"
	InstrumentAnalytical  = "analytical"
	InstrumentControl     = "control"
	InstrumentSafety      = "safety"
	InstrumentGeneric     = "generic"
)

// Engineering document types.
const (
	DocumentPID           = "pid"
	DocumentPFD           = "pfd"
	DocumentISO           = "iso"
	DocumentPlan          = "plan"
	DocumentElevation     = "elevation"
	DocumentSection       = "section"
	DocumentDetail        = "detail"
	DocumentSpecification = "specification"
	DocumentDatasheet     = "datasheet"
	DocumentManual        = "manual"
	DocumentProcedure     = "procedure"
	DocumentGeneric       = "generic"
)

// TagPattern describes one industrial tag convention.
type TagPattern struct {
	Name             string   `koanf:"name"`
	Pattern          string   `koanf:"pattern"`
	Description      string   `koanf:"description"`
	EquipmentType    string   `koanf:"equipment_type"`
	InstrumentType   string   `koanf:"instrument_type"`
	Examples         []string `koanf:"examples"`
	Priority         int      `koanf:"priority"`
	IndustryStandard string   `koanf:"industry_standard"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern.
func (p *TagPattern) Regexp() *regexp.Regexp { return p.re }

// DocumentPattern describes one document naming convention.
type DocumentPattern struct {
	Name             string   `koanf:"name"`
	Pattern          string   `koanf:"pattern"`
	Description      string   `koanf:"description"`
	DocumentType     string   `koanf:"document_type"`
	Examples         []string `koanf:"examples"`
	Priority         int      `koanf:"priority"`
	RequiredElements []string `koanf:"required_elements"`
	OptionalElements []string `koanf:"optional_elements"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern.
func (p *DocumentPattern) Regexp() *regexp.Regexp { return p.re }

// Registry indexes tag and document patterns by name, equipment type,
// instrument type and document type. It is immutable after construction
// apart from Register calls, which are not safe for concurrent use with
// readers.
type Registry struct {
	logger *zap.Logger

	tags map[string]*TagPattern
	docs map[string]*DocumentPattern

	tagOrder []string
	docOrder []string

	byEquipment  map[string][]string
	byInstrument map[string][]string
	byDocType    map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:       logger,
		tags:         make(map[string]*TagPattern),
		docs:         make(map[string]*DocumentPattern),
		byEquipment:  make(map[string][]string),
		byInstrument: make(map[string][]string),
		byDocType:    make(map[string][]string),
	}
}

// Load builds a registry from the YAML document at path. An empty path,
// a missing file, or an unparseable document falls back to the built-in
// defaults.
func Load(path string, logger *zap.Logger) *Registry {
	if path == "" {
		return Defaults(logger)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("pattern file unavailable, using defaults",
			zap.String("path", path), zap.Error(err))
		return Defaults(logger)
	}

	r, err := Parse(content, logger)
	if err != nil {
		logger.Error("pattern file unusable, using defaults",
			zap.String("path", path), zap.Error(err))
		return Defaults(logger)
	}

	logger.Info("loaded pattern library",
		zap.String("path", path),
		zap.Int("tag_patterns", len(r.tags)),
		zap.Int("document_patterns", len(r.docs)))
	return r
}

// Parse builds a registry from an in-memory YAML document. The document
// holds tag patterns grouped by category (one nesting level of
// subcategories is allowed) and a flat document pattern list:
//
//	tag_patterns:
//	  pumps:
//	    - name: centrifugal_pump
//	      pattern: '\bP[-_]?\d{3,4}[A-Z]?\b'
//	      equipment_type: pump
//	document_patterns:
//	  - name: pid_standard
//	    pattern: '\bP&?ID[-_]?\d{4,6}\b'
//	    document_type: pid
func Parse(content []byte, logger *zap.Logger) (*Registry, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse pattern document: %w", err)
	}

	r := NewRegistry(logger)

	raw, ok := k.Get("tag_patterns").(map[string]any)
	if ok {
		for category, value := range raw {
			for _, item := range flattenPatternLists(value) {
				var p TagPattern
				if err := decodePattern(item, &p); err != nil {
					logger.Error("skipping tag pattern",
						zap.String("category", category), zap.Error(err))
					continue
				}
				if err := r.Register(&p); err != nil {
					logger.Error("skipping tag pattern",
						zap.String("name", p.Name), zap.Error(err))
				}
			}
		}
	}

	var docs []DocumentPattern
	if err := k.Unmarshal("document_patterns", &docs); err != nil {
		return nil, fmt.Errorf("failed to decode document patterns: %w", err)
	}
	for i := range docs {
		if err := r.RegisterDocument(&docs[i]); err != nil {
			logger.Error("skipping document pattern",
				zap.String("name", docs[i].Name), zap.Error(err))
		}
	}

	if len(r.tags) == 0 && len(r.docs) == 0 {
		return nil, fmt.Errorf("pattern document defines no patterns")
	}
	return r, nil
}

// flattenPatternLists accepts either a list of pattern maps or a map of
// subcategory name to such lists.
func flattenPatternLists(value any) []map[string]any {
	var out []map[string]any
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	case map[string]any:
		for _, sub := range v {
			out = append(out, flattenPatternLists(sub)...)
		}
	}
	return out
}

func decodePattern(item map[string]any, p *TagPattern) error {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(item, "."), nil); err != nil {
		return err
	}
	return k.Unmarshal("", p)
}

// Register adds a tag pattern, compiling its regexp. Defaults the
// equipment type to generic and the priority to 100.
func (r *Registry) Register(p *TagPattern) error {
	if p.Name == "" || p.Pattern == "" {
		return fmt.Errorf("pattern needs name and pattern")
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", p.Name, err)
	}
	p.re = re

	if p.EquipmentType == "" {
		p.EquipmentType = EquipmentGeneric
	}
	if p.Priority == 0 {
		p.Priority = 100
	}

	if _, exists := r.tags[p.Name]; !exists {
		r.tagOrder = append(r.tagOrder, p.Name)
		r.byEquipment[p.EquipmentType] = append(r.byEquipment[p.EquipmentType], p.Name)
		if p.InstrumentType != "" {
			r.byInstrument[p.InstrumentType] = append(r.byInstrument[p.InstrumentType], p.Name)
		}
	}
	r.tags[p.Name] = p
	return nil
}

// RegisterDocument adds a document pattern, compiling its regexp.
func (r *Registry) RegisterDocument(p *DocumentPattern) error {
	if p.Name == "" || p.Pattern == "" {
		return fmt.Errorf("document pattern needs name and pattern")
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return fmt.Errorf("document pattern %q: %w", p.Name, err)
	}
	p.re = re

	if p.DocumentType == "" {
		p.DocumentType = DocumentGeneric
	}
	if p.Priority == 0 {
		p.Priority = 100
	}

	if _, exists := r.docs[p.Name]; !exists {
		r.docOrder = append(r.docOrder, p.Name)
		r.byDocType[p.DocumentType] = append(r.byDocType[p.DocumentType], p.Name)
	}
	r.docs[p.Name] = p
	return nil
}

// TagPatterns returns all tag patterns in registration order.
func (r *Registry) TagPatterns() []*TagPattern {
	out := make([]*TagPattern, 0, len(r.tagOrder))
	for _, name := range r.tagOrder {
		out = append(out, r.tags[name])
	}
	return out
}

// DocumentPatterns returns all document patterns in registration order.
func (r *Registry) DocumentPatterns() []*DocumentPattern {
	out := make([]*DocumentPattern, 0, len(r.docOrder))
	for _, name := range r.docOrder {
		out = append(out, r.docs[name])
	}
	return out
}

// TagPattern returns the named tag pattern, or nil.
func (r *Registry) TagPattern(name string) *TagPattern { return r.tags[name] }

// DocumentPattern returns the named document pattern, or nil.
func (r *Registry) DocumentPattern(name string) *DocumentPattern { return r.docs[name] }

// ByEquipmentType returns tag patterns for one equipment type.
func (r *Registry) ByEquipmentType(equipmentType string) []*TagPattern {
	names := r.byEquipment[equipmentType]
	out := make([]*TagPattern, 0, len(names))
	for _, name := range names {
		out = append(out, r.tags[name])
	}
	return out
}

// ByInstrumentType returns tag patterns for one instrument type.
func (r *Registry) ByInstrumentType(instrumentType string) []*TagPattern {
	names := r.byInstrument[instrumentType]
	out := make([]*TagPattern, 0, len(names))
	for _, name := range names {
		out = append(out, r.tags[name])
	}
	return out
}

// ByDocumentType returns document patterns for one document type.
func (r *Registry) ByDocumentType(documentType string) []*DocumentPattern {
	names := r.byDocType[documentType]
	out := make([]*DocumentPattern, 0, len(names))
	for _, name := range names {
		out = append(out, r.docs[name])
	}
	return out
}

// Search returns tag patterns whose name or description contains the
// query, ordered by ascending priority.
func (r *Registry) Search(query string) []*TagPattern {
	q := strings.ToLower(query)
	var out []*TagPattern
	for _, name := range r.tagOrder {
		p := r.tags[name]
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
