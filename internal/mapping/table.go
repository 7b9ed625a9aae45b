// Package mapping implements the placeholder↔entity mapping table: stable
// per-type placeholder allocation, bidirectional lookup, and the CSV codec
// that persists a table across sessions.
package mapping

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ner-anonymizer/internal/entity"
)

// PlaceholderRE matches a well-formed placeholder token: a known type
// prefix, an underscore, and a zero-padded counter of at least three digits.
var PlaceholderRE = regexp.MustCompile(buildPlaceholderExpr())

func buildPlaceholderExpr() string {
	prefixes := make([]string, len(entity.AllTypes))
	for i, t := range entity.AllTypes {
		prefixes[i] = string(t)
	}
	return `^(` + strings.Join(prefixes, "|") + `)_([0-9]{3,})$`
}

// Entry associates one placeholder with the entity text it stands for.
// CanonicalKey is derived from DisplayText via entity.Normalize.
type Entry struct {
	Placeholder  string
	CanonicalKey string
	DisplayText  string
	Type         entity.Type
	counter      int
}

// Table is the mapping store for one document/session. It owns the per-type
// counters; a fresh table starts every counter at zero. Not safe for
// concurrent mutation — callers hold exclusive access for the duration of a
// generation or substitution run. A table that is only read (loaded from
// CSV, used for reverse lookups) is safe to share.
type Table struct {
	entries       []*Entry
	byKey         map[string]*Entry // includes person-variant alias keys
	byPlaceholder map[string]*Entry
	counters      map[entity.Type]int
}

// NewTable returns an empty mapping table with all counters at zero.
func NewTable() *Table {
	return &Table{
		byKey:         make(map[string]*Entry),
		byPlaceholder: make(map[string]*Entry),
		counters:      make(map[entity.Type]int),
	}
}

// Len returns the number of mapping entries.
func (t *Table) Len() int { return len(t.entries) }

// Allocate returns the placeholder for the given display text, creating a
// new entry if the canonical key is unknown. The second return value is true
// when a new entry was created.
//
// Allocation is idempotent per canonical key and deterministic: counters
// advance in the order keys are first seen, so the first occurrence of a
// type in the document wins the lowest number.
//
// Person entities get variant collapsing: a key that is a word-boundary
// substring of an existing person key (or the reverse) is treated as the
// same real-world entity and reuses that entry's placeholder. The entry's
// display text is upgraded to the longer name so the reverse pass restores
// the full form.
func (t *Table) Allocate(typ entity.Type, displayText string) (string, bool) {
	key := entity.Normalize(displayText)

	if e, ok := t.byKey[key]; ok {
		return e.Placeholder, false
	}

	if typ == entity.TypePerson {
		if e := t.findPersonVariant(key); e != nil {
			t.byKey[key] = e
			if len(key) > len(e.CanonicalKey) {
				// Longer name arrived second: keep the placeholder, adopt
				// the fuller display text. The old key stays as an alias.
				e.CanonicalKey = key
				e.DisplayText = displayText
			}
			return e.Placeholder, false
		}
	}

	t.counters[typ]++
	n := t.counters[typ]
	e := &Entry{
		Placeholder:  fmt.Sprintf("%s_%03d", typ, n),
		CanonicalKey: key,
		DisplayText:  displayText,
		Type:         typ,
		counter:      n,
	}
	t.entries = append(t.entries, e)
	t.byKey[key] = e
	t.byPlaceholder[e.Placeholder] = e
	return e.Placeholder, true
}

// findPersonVariant returns an existing person entry whose canonical key is
// a word-boundary substring of key, or of which key is such a substring.
func (t *Table) findPersonVariant(key string) *Entry {
	if key == "" {
		return nil
	}
	for _, e := range t.entries {
		if e.Type != entity.TypePerson {
			continue
		}
		if wordSubstring(key, e.CanonicalKey) || wordSubstring(e.CanonicalKey, key) {
			return e
		}
	}
	return nil
}

// wordSubstring reports whether short occurs inside long as a strict
// substring aligned on word boundaries ("jane" in "jane doe", but not
// "ann" in "joanne"). Both arguments are canonical keys, so the only
// separator is a single space.
func wordSubstring(short, long string) bool {
	if short == "" || len(short) >= len(long) {
		return false
	}
	for from := 0; ; {
		i := strings.Index(long[from:], short)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(short)
		startOK := start == 0 || long[start-1] == ' '
		endOK := end == len(long) || long[end] == ' '
		if startOK && endOK {
			return true
		}
		from = start + 1
	}
}

// ForwardLookup returns the placeholder for a canonical key.
func (t *Table) ForwardLookup(canonicalKey string) (string, bool) {
	e, ok := t.byKey[canonicalKey]
	if !ok {
		return "", false
	}
	return e.Placeholder, true
}

// ReverseLookup returns the display text for a placeholder.
func (t *Table) ReverseLookup(placeholder string) (string, bool) {
	e, ok := t.byPlaceholder[placeholder]
	if !ok {
		return "", false
	}
	return e.DisplayText, true
}

// Entries returns the table's entries in placeholder order (type prefix,
// then counter). The returned slice is a copy; entries are shared.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].counter < out[j].counter
	})
	return out
}

// insertLoaded adds an entry parsed from a mapping file and advances the
// per-type counter past it, so later Allocate calls never reuse a number.
func (t *Table) insertLoaded(placeholder, displayText string, line int) error {
	m := PlaceholderRE.FindStringSubmatch(placeholder)
	if m == nil {
		return &MalformedMappingError{
			Line:   line,
			Reason: fmt.Sprintf("placeholder %q does not match type_NNN", placeholder),
		}
	}
	typ := entity.Type(m[1])
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return &MalformedMappingError{
			Line:   line,
			Reason: fmt.Sprintf("placeholder %q has invalid counter", placeholder),
		}
	}

	if prev, ok := t.byPlaceholder[placeholder]; ok {
		if prev.DisplayText == displayText {
			return nil // harmless repeat of the same row
		}
		return &DuplicatePlaceholderError{
			Line:        line,
			Placeholder: placeholder,
			Existing:    prev.DisplayText,
			Conflicting: displayText,
		}
	}

	key := entity.Normalize(displayText)
	if prev, ok := t.byKey[key]; ok {
		return &MalformedMappingError{
			Line: line,
			Reason: fmt.Sprintf("entity %q collides with %q under placeholder %q",
				displayText, prev.DisplayText, prev.Placeholder),
		}
	}

	e := &Entry{
		Placeholder:  placeholder,
		CanonicalKey: key,
		DisplayText:  displayText,
		Type:         typ,
		counter:      n,
	}
	t.entries = append(t.entries, e)
	t.byKey[key] = e
	t.byPlaceholder[placeholder] = e
	if n > t.counters[typ] {
		t.counters[typ] = n
	}
	return nil
}
