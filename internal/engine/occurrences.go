package engine

import (
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"

	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/mapping"
)

// FindOccurrences locates every mapping entry's display text in doc by
// case-insensitive, word-boundary search, producing occurrences in the shape
// the forward pass consumes. This is how a document is anonymized from an
// already-generated mapping file, without re-running the NER model: the
// mapping says what to look for, the engine says where it is.
//
// Longer entities are searched first only as an optimization hint; the
// forward pass's longest-entity-first selection is what actually prevents a
// short entity from corrupting a longer one's span.
func (e *Engine) FindOccurrences(doc string, tbl *mapping.Table) []entity.Occurrence {
	entries := tbl.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].DisplayText) > len(entries[j].DisplayText)
	})

	var occs []entity.Occurrence
	for _, ent := range entries {
		re, err := compileEntityPattern(ent.DisplayText)
		if err != nil {
			e.log.Warnf("find", "cannot build pattern for %q: %v", ent.DisplayText, err)
			continue
		}
		for _, m := range re.FindAllStringIndex(doc, -1) {
			occs = append(occs, entity.Occurrence{
				Text:  doc[m[0]:m[1]],
				Type:  ent.Type,
				Start: m[0],
				End:   m[1],
			})
		}
	}
	return occs
}

// compileEntityPattern builds a case-insensitive pattern for the literal
// entity text. \b anchors are added only where the text begins or ends with
// a word character — \b against punctuation (e.g. "Acme, Inc.") never
// matches and would make the entity unfindable.
func compileEntityPattern(text string) (*regexp.Regexp, error) {
	expr := regexp.QuoteMeta(text)
	if r, _ := utf8.DecodeRuneInString(text); isWordRune(r) {
		expr = `\b` + expr
	}
	if r, _ := utf8.DecodeLastRuneInString(text); isWordRune(r) {
		expr += `\b`
	}
	return regexp.Compile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
