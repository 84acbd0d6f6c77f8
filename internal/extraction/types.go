// Package extraction extracts candidate keys, foreign key references and
// document references from entity metadata fields. It supports regex,
// fixed-width, token reassembly and heuristic extraction methods, each
// configured as a rule and dispatched through a shared handler interface.
package extraction

import (
	"context"
	"encoding/json"
	"math"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

// ExtractedKey is one key pulled out of a source field, with the metadata
// needed to trace it back to the rule and field that produced it.
type ExtractedKey struct {
	Value          string         `json:"value"`
	ExtractionType string         `json:"extraction_type"`
	SourceField    string         `json:"source_field"`
	Method         string         `json:"method"`
	RuleID         string         `json:"rule_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	// confidence is kept rounded to 2 decimals; use Confidence and
	// SetConfidence.
	confidence float64
}

// NewExtractedKey builds a key with the confidence rounded to 2 decimals.
func NewExtractedKey(value, extractionType, sourceField string, confidence float64, method, ruleID string) *ExtractedKey {
	k := &ExtractedKey{
		Value:          value,
		ExtractionType: extractionType,
		SourceField:    sourceField,
		Method:         method,
		RuleID:         ruleID,
	}
	k.SetConfidence(confidence)
	return k
}

// Confidence returns the rounded confidence score.
func (k *ExtractedKey) Confidence() float64 { return k.confidence }

// SetConfidence stores the score rounded to 2 decimals.
func (k *ExtractedKey) SetConfidence(v float64) {
	k.confidence = math.Round(v*100) / 100
}

// MarshalJSON includes the confidence score with the exported fields.
func (k *ExtractedKey) MarshalJSON() ([]byte, error) {
	type plain ExtractedKey
	return json.Marshal(struct {
		*plain
		Confidence float64 `json:"confidence"`
	}{(*plain)(k), k.confidence})
}

// ExtractionResult groups the keys extracted from one entity by
// extraction type.
type ExtractionResult struct {
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`

	CandidateKeys        []*ExtractedKey `json:"candidate_keys"`
	ForeignKeyReferences []*ExtractedKey `json:"foreign_key_references"`
	DocumentReferences   []*ExtractedKey `json:"document_references"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Add routes a key into the slice matching its extraction type. Unknown
// types land in candidate keys.
func (r *ExtractionResult) Add(key *ExtractedKey) {
	switch key.ExtractionType {
	case config.TypeForeignKeyReference:
		r.ForeignKeyReferences = append(r.ForeignKeyReferences, key)
	case config.TypeDocumentReference:
		r.DocumentReferences = append(r.DocumentReferences, key)
	default:
		r.CandidateKeys = append(r.CandidateKeys, key)
	}
}

// All returns every extracted key across the three type buckets.
func (r *ExtractionResult) All() []*ExtractedKey {
	out := make([]*ExtractedKey, 0, len(r.CandidateKeys)+len(r.ForeignKeyReferences)+len(r.DocumentReferences))
	out = append(out, r.CandidateKeys...)
	out = append(out, r.ForeignKeyReferences...)
	out = append(out, r.DocumentReferences...)
	return out
}

// Entity is the unit of extraction: an identified record with named
// metadata fields.
type Entity struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`

	// Context carries enrichment values (site, unit, equipment_type)
	// used by scope filters and heuristic strategies.
	Context map[string]string `json:"context,omitempty"`
}

// CorpusRef identifies the slice of the corpus a frequency lookup runs
// over: the instance space and view the entity lives in, plus the field
// being analyzed. Space and View come from the entity's enrichment
// values and may be empty when no backing store is scoped.
type CorpusRef struct {
	Space string
	View  string
	Field string
}

// CorpusProvider supplies field values across many entities for
// frequency analysis. Implementations may hit a datastore; the heuristic
// handler degrades gracefully when the provider is nil or errors.
type CorpusProvider interface {
	FieldValues(ctx context.Context, ref CorpusRef, limit int) ([]string, error)
}
