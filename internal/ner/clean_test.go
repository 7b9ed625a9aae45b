package ner

import (
	"strings"
	"testing"
)

func TestCleanMarkdownStripsSyntax(t *testing.T) {
	doc := "# Meeting\n\n**Jane Doe** met *Acme Corp* at [the office](http://maps.example/x).\n"
	got, err := CleanMarkdown(doc)
	if err != nil {
		t.Fatalf("CleanMarkdown: %v", err)
	}
	want := "Meeting Jane Doe met Acme Corp at the office."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCleanMarkdownDropsCodeAndComments(t *testing.T) {
	doc := "Jane wrote:\n\n```\nsecretFunc(\"Bob\")\n```\n\nuse `rm -rf` carefully <!-- reviewer: Carol -->\n"
	got, err := CleanMarkdown(doc)
	if err != nil {
		t.Fatalf("CleanMarkdown: %v", err)
	}
	for _, absent := range []string{"secretFunc", "Bob", "rm -rf", "Carol"} {
		if strings.Contains(got, absent) {
			t.Errorf("%q must not survive cleaning: %q", absent, got)
		}
	}
	if !strings.Contains(got, "Jane wrote:") {
		t.Errorf("prose dropped: %q", got)
	}
}

func TestCleanMarkdownCollapsesWhitespace(t *testing.T) {
	got, err := CleanMarkdown("a\n\n\nb\n\n- c\n- d\n")
	if err != nil {
		t.Fatalf("CleanMarkdown: %v", err)
	}
	if got != "a b c d" {
		t.Errorf("got %q", got)
	}
}

func TestCleanMarkdownPlainTextUnchangedModuloSpacing(t *testing.T) {
	got, err := CleanMarkdown("Jane Doe met Bob.")
	if err != nil {
		t.Fatalf("CleanMarkdown: %v", err)
	}
	if got != "Jane Doe met Bob." {
		t.Errorf("got %q", got)
	}
}
