package engine

import (
	"testing"

	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/mapping"
)

func TestFindOccurrencesBasic(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\norg_001,Acme Corp\n")

	doc := "Jane Doe joined Acme Corp. Acme Corp was pleased."
	occs := e.FindOccurrences(doc, tbl)
	if len(occs) != 3 {
		t.Fatalf("got %d occurrences, want 3: %+v", len(occs), occs)
	}
	for _, occ := range occs {
		if doc[occ.Start:occ.End] != occ.Text {
			t.Errorf("span [%d,%d) does not cover %q", occ.Start, occ.End, occ.Text)
		}
	}
}

func TestFindOccurrencesCaseInsensitive(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Jane Doe\n")

	occs := e.FindOccurrences("JANE DOE and jane doe", tbl)
	if len(occs) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(occs))
	}
	// Text carries the document's casing, not the mapping's.
	if occs[0].Text != "JANE DOE" || occs[1].Text != "jane doe" {
		t.Errorf("got %q and %q", occs[0].Text, occs[1].Text)
	}
}

func TestFindOccurrencesWordBoundary(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,Ann\n")

	occs := e.FindOccurrences("Joanne and Annette met Ann.", tbl)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1: %+v", len(occs), occs)
	}
	if occs[0].Start != 23 || occs[0].End != 26 {
		t.Errorf("got span [%d,%d), want [23,26)", occs[0].Start, occs[0].End)
	}
}

func TestFindOccurrencesPunctuationEdgedEntity(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, `org_001,"Acme, Inc."` + "\n")

	occs := e.FindOccurrences("filed by Acme, Inc. today", tbl)
	if len(occs) != 1 {
		t.Fatalf("entity ending in punctuation must still match: %+v", occs)
	}
	if occs[0].Text != "Acme, Inc." {
		t.Errorf("got %q", occs[0].Text)
	}
	if occs[0].Type != entity.TypeOrg {
		t.Errorf("got type %s", occs[0].Type)
	}
}

func TestFindOccurrencesLongerEntityFirst(t *testing.T) {
	e := newTestEngine()
	tbl := loadTestTable(t, "person_001,John\nperson_002,John Smith\n")

	occs := e.FindOccurrences("John Smith spoke.", tbl)
	if len(occs) == 0 {
		t.Fatal("no occurrences")
	}
	if occs[0].Text != "John Smith" {
		t.Errorf("longest display text searched first, got %q", occs[0].Text)
	}
}

func TestFindOccurrencesEmptyTable(t *testing.T) {
	e := newTestEngine()
	if occs := e.FindOccurrences("anything at all", mapping.NewTable()); occs != nil {
		t.Errorf("got %+v, want nil", occs)
	}
}
