package engine

import (
	"errors"
	"strings"
	"testing"

	"ner-anonymizer/internal/mapping"
)

func loadTestTable(t *testing.T, rows string) *mapping.Table {
	t.Helper()
	tbl, err := mapping.Load(strings.NewReader("base_placeholder,real_entity_name\n" + rows))
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return tbl
}

func TestDeanonymizeBasic(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\norg_001,Acme Corp\n")

	out, err := e.Deanonymize("person_001 works at org_001.", tbl, Options{})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != "Jane Doe works at Acme Corp." {
		t.Errorf("got %q", out)
	}
}

func TestDeanonymizePreservesBoldMarkersAndPunctuation(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_002,Rachel Hunt\n")

	out, err := e.Deanonymize("**person_002**, D-Guilford.", tbl, Options{})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != "**Rachel Hunt**, D-Guilford." {
		t.Errorf("bold markers and punctuation must stay intact: %q", out)
	}
}

func TestDeanonymizeUnknownPlaceholder(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\n")

	var unk *UnknownPlaceholderError
	out, err := e.Deanonymize("see org_099 for details", tbl, Options{})
	if !errors.As(err, &unk) {
		t.Fatalf("expected UnknownPlaceholderError, got %v", err)
	}
	if unk.Placeholder != "org_099" {
		t.Errorf("Placeholder = %q, want org_099", unk.Placeholder)
	}
	if unk.Offset != 4 {
		t.Errorf("Offset = %d, want 4", unk.Offset)
	}
	if out != "" {
		t.Errorf("no output may be produced on error, got %q", out)
	}
}

func TestDeanonymizeNoTokensPassthrough(t *testing.T) {
	e := newTestEngine()
	tbl := mapping.NewTable()

	doc := "no placeholders in here, not even person without suffix"
	out, err := e.Deanonymize(doc, tbl, Options{})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != doc {
		t.Errorf("got %q", out)
	}
}

func TestDeanonymizeIgnoresNonTokenLookalikes(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\n")

	// Embedded in a larger word: no word boundary, not a token.
	doc := "xperson_001 and person_001x stay"
	out, err := e.Deanonymize(doc, tbl, Options{})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != doc {
		t.Errorf("lookalikes must not be expanded: %q", out)
	}
}

func TestDeanonymizeWideCounter(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "misc_1000,the thousandth\n")

	out, err := e.Deanonymize("found misc_1000 here", tbl, Options{})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != "found the thousandth here" {
		t.Errorf("got %q", out)
	}
}

func TestDeanonymizeLastNameShorthand(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\norg_001,Acme Corp\n")

	doc := "person_001 said that person_001 and org_001 would merge. org_001 denied it."
	out, err := e.Deanonymize(doc, tbl, Options{LastNameShorthand: true})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	want := "Jane Doe said that Doe and Acme Corp would merge. Acme Corp denied it."
	if out != want {
		t.Errorf("shorthand applies to persons only, first occurrence full:\n  want %q\n   got %q", want, out)
	}
}

func TestDeanonymizeLastNameShorthandSingleWordName(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Cher\n")

	out, err := e.Deanonymize("person_001 and person_001", tbl, Options{LastNameShorthand: true})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != "Cher and Cher" {
		t.Errorf("single-word names are never shortened: %q", out)
	}
}

func TestDeanonymizeWrapBoldConsumesOnlyMatchingPair(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\n")

	out, err := e.Deanonymize("**person_001** met person_001.", tbl, Options{WrapBold: true})
	if err != nil {
		t.Fatalf("Deanonymize: %v", err)
	}
	if out != "Jane Doe met Jane Doe." {
		t.Errorf("got %q", out)
	}
}

func TestDeanonymizeAtomicOnLateError(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\n")

	// First token resolves, second does not — the whole pass must fail.
	out, err := e.Deanonymize("person_001 then org_042", tbl, Options{})
	if err == nil {
		t.Fatal("expected error for unknown org_042")
	}
	if out != "" {
		t.Errorf("partial output must not escape: %q", out)
	}
}
