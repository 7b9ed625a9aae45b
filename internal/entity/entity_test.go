package entity

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Jane Doe", "jane doe"},
		{"  Jane   Doe  ", "jane doe"},
		{"JANE\tDOE", "jane doe"},
		{"jane doe", "jane doe"},
		{"Acme Corp.", "acme corp."},
		{"", ""},
		{"   ", ""},
		{"Straße 12", "strasse 12"}, // case folding, not plain lowercase
	}
	for _, c := range cases {
		if got := Normalize(c.input); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestNormalizeEqualKeysForCaseVariants(t *testing.T) {
	if Normalize("Jane Doe") != Normalize("jane DOE") {
		t.Error("case variants should normalize to the same key")
	}
}

func TestTypeForLabel(t *testing.T) {
	cases := []struct {
		label string
		want  Type
	}{
		{"PERSON", TypePerson},
		{"person", TypePerson},
		{"ORG", TypeOrg},
		{"GPE", TypePlace},
		{"LOC", TypePlace},
		{"FAC", TypePlace},
		{"WORK_OF_ART", TypeThing},
		{"DATE", TypeDate},
		{"MONEY", TypeMoney},
		{"NORP", TypeGroup},
		{"CARDINAL", TypeMisc},
		{"whatever", TypeMisc},
	}
	for _, c := range cases {
		if got := TypeForLabel(c.label); got != c.want {
			t.Errorf("TypeForLabel(%q) = %q, want %q", c.label, got, c.want)
		}
	}
}

func TestTypeValid(t *testing.T) {
	for _, k := range AllTypes {
		if !k.Valid() {
			t.Errorf("type %q should be valid", k)
		}
	}
	if Type("banana").Valid() {
		t.Error("unknown type should not be valid")
	}
}

func TestParseExclusions(t *testing.T) {
	set := ParseExclusions("Jane Doe,  ACME Corp , ,")
	if len(set) != 2 {
		t.Fatalf("expected 2 exclusions, got %d", len(set))
	}
	if !set.Contains("jane doe") {
		t.Error("jane doe should be excluded")
	}
	if !set.Contains(Normalize("acme corp")) {
		t.Error("acme corp should be excluded")
	}
	if set.Contains("") {
		t.Error("empty key should not be excluded")
	}
}

func TestParseExclusionsEmpty(t *testing.T) {
	if set := ParseExclusions(""); len(set) != 0 {
		t.Errorf("empty input should produce empty set, got %d entries", len(set))
	}
}

func TestNewExclusionSet(t *testing.T) {
	set := NewExclusionSet([]string{"Jane Doe", "  ", "ACME Corp"})
	if len(set) != 2 {
		t.Fatalf("expected 2 exclusions, got %d", len(set))
	}
	if !set.Contains("jane doe") || !set.Contains("acme corp") {
		t.Errorf("normalized members missing: %v", set)
	}
}
