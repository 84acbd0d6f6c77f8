package aliasing

import (
	"reflect"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag  string
		want TagStructure
		ok   bool
	}{
		{"P-10001", TagStructure{Prefix: "P", Number: "10001"}, true},
		{"FIC_001", TagStructure{Prefix: "FIC", Number: "001"}, true},
		{"PUMP10001A", TagStructure{Prefix: "PUMP", Number: "10001", Suffix: "A"}, true},
		{"10-P-101", TagStructure{}, false},
		{"no tag", TagStructure{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTag(tt.tag)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTag(%q) = %+v, %v; want %+v, %v", tt.tag, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseHierarchicalTag(t *testing.T) {
	got, ok := ParseHierarchicalTag("10-P-10001")
	if !ok {
		t.Fatal("ParseHierarchicalTag(10-P-10001) not recognized")
	}
	want := HierarchicalStructure{Unit: "10", Equipment: "P", Number: "10001"}
	if got != want {
		t.Errorf("ParseHierarchicalTag = %+v, want %+v", got, want)
	}

	if _, ok := ParseHierarchicalTag("P-101"); ok {
		t.Error("standard tag recognized as hierarchical")
	}
}

func TestEquipmentNumber(t *testing.T) {
	if got := EquipmentNumber("P-101A"); got != "101" {
		t.Errorf("EquipmentNumber(P-101A) = %q, want 101", got)
	}
	if got := EquipmentNumber("PUMP"); got != "" {
		t.Errorf("EquipmentNumber(PUMP) = %q, want empty", got)
	}
}

func TestSeparatorVariants(t *testing.T) {
	got := SeparatorVariants("P-101", nil)
	want := []string{"P-101", "P_101", "P101"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeparatorVariants(P-101) = %v, want %v", got, want)
	}
}

func TestNormalizeSeparators(t *testing.T) {
	if got := NormalizeSeparators("10-P 101/A", "_"); got != "10_P_101_A" {
		t.Errorf("NormalizeSeparators = %q, want 10_P_101_A", got)
	}
}
