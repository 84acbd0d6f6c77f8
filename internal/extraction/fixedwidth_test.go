package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/tagforge/internal/config"
)

func fixedWidthRule(params *config.FixedWidthParams) *config.ExtractionRule {
	return &config.ExtractionRule{
		RuleID:         "fw-test",
		Method:         config.MethodFixedWidth,
		ExtractionType: config.TypeCandidateKey,
		FixedWidth:     params,
	}
}

func TestFixedWidthHandler_Reconstruct(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		FieldDefinitions: []config.FieldDefinition{
			{Name: "equipment", Start: 0, End: 1, FieldType: "equipment_type", Required: true},
			{Name: "number", Start: 1, End: 4, FieldType: "number", Required: true},
		},
	})

	keys, err := h.Extract(context.Background(), "P101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	assert.Equal(t, "P101", keys[0].Value)
	assert.Equal(t, true, keys[0].Metadata["reconstructed"])
	assert.Equal(t, 2, keys[0].Metadata["field_count"])
	// Both fields score 0.9 + 0.05 type + 0.05 required.
	assert.InDelta(t, 1.0, keys[0].Confidence(), 0.001)
}

func TestFixedWidthHandler_Positions(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		Positions: []config.PositionSpec{
			{Start: 0, End: 2, Type: "equipment_type"},
			{Start: 2, End: 7, Type: "number"},
		},
	})

	keys, err := h.Extract(context.Background(), "FT10001", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "FT10001", keys[0].Value)
}

func TestFixedWidthHandler_Latin1Encoding(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		Encoding: "latin-1",
		FieldDefinitions: []config.FieldDefinition{
			{Name: "equipment", Start: 0, End: 1, FieldType: "equipment_type", Required: true},
			{Name: "number", Start: 1, End: 4, FieldType: "number", Required: true},
		},
	})

	// Trailing 0xB0 is the degree sign in Latin-1 and invalid UTF-8 on
	// its own; decoding keeps the leading fields intact.
	keys, err := h.Extract(context.Background(), "P101 \xb0C", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P101", keys[0].Value)
}

func TestFixedWidthHandler_UnsupportedEncoding(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		Encoding: "ebcdic",
		FieldDefinitions: []config.FieldDefinition{
			{Name: "number", Start: 0, End: 4, FieldType: "number"},
		},
	})

	_, err := h.Extract(context.Background(), "0101", "tag", rule, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidRule)
}

func TestFixedWidthHandler_ZeroPadding(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		FieldDefinitions: []config.FieldDefinition{
			{Name: "number", Start: 0, End: 5, FieldType: "number", Padding: "zero"},
		},
	})

	keys, err := h.Extract(context.Background(), "00101", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "101", keys[0].Value)
}

func TestFixedWidthHandler_FieldTypeRejection(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		FieldDefinitions: []config.FieldDefinition{
			{Name: "equipment", Start: 0, End: 3, FieldType: "equipment_type"},
		},
	})

	// Digits are not a valid equipment type slice.
	keys, err := h.Extract(context.Background(), "123", "tag", rule, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFixedWidthHandler_SkipAndStop(t *testing.T) {
	h := NewFixedWidthHandler(testLogger())

	rule := fixedWidthRule(&config.FixedWidthParams{
		FieldDefinitions: []config.FieldDefinition{
			{Name: "tag", Start: 0, End: 4, FieldType: "unknown"},
		},
		SkipLines:   1,
		StopOnEmpty: true,
	})

	keys, err := h.Extract(context.Background(), "HEAD\nP101\n\nV201", "tag", rule, nil)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "P101", keys[0].Value)
}

func TestCompileWidthPattern(t *testing.T) {
	re, err := CompileWidthPattern(`P{position:0,length:1}\d{position:1,length:3}`)
	require.NoError(t, err)

	assert.True(t, re.MatchString("P101"))
	assert.False(t, re.MatchString("PX01"))
}

func TestCompileWidthPattern_CharacterClass(t *testing.T) {
	re, err := CompileWidthPattern(`[A-Z]{position:0,length:2}\d{position:2,length:4}`)
	require.NoError(t, err)

	assert.True(t, re.MatchString("FT1001"))
	assert.False(t, re.MatchString("F1001"))
}

func TestCompileWidthPattern_Errors(t *testing.T) {
	_, err := CompileWidthPattern("")
	assert.Error(t, err)

	_, err = CompileWidthPattern(`{position:0,length:1}`)
	assert.Error(t, err)

	_, err = CompileWidthPattern(`[A-Z`)
	assert.Error(t, err)
}
