// Package entity defines the vocabulary shared by the NER client, the
// placeholder allocator and the substitution engine: entity types, the raw
// occurrences produced by a recognition pass, text normalization for
// identity comparison, and the user-supplied exclusion set.
package entity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Type classifies an entity and determines its placeholder prefix.
type Type string

// Entity types, matching the placeholder prefixes written to mapping files.
const (
	TypePerson Type = "person"
	TypeOrg    Type = "org"
	TypePlace  Type = "place"
	TypeThing  Type = "thing"
	TypeDate   Type = "date"
	TypeMoney  Type = "money"
	TypeGroup  Type = "group"
	TypeMisc   Type = "misc"
)

// AllTypes lists every known entity type in placeholder-prefix order.
var AllTypes = []Type{
	TypePerson, TypeOrg, TypePlace, TypeThing,
	TypeDate, TypeMoney, TypeGroup, TypeMisc,
}

// Valid reports whether t is one of the known entity types.
func (t Type) Valid() bool {
	for _, k := range AllTypes {
		if t == k {
			return true
		}
	}
	return false
}

// labelPrefixes maps NER model labels (spaCy vocabulary) to entity types.
// Unknown labels fall through to TypeMisc.
var labelPrefixes = map[string]Type{
	"PERSON":      TypePerson,
	"ORG":         TypeOrg,
	"GPE":         TypePlace,
	"LOC":         TypePlace,
	"FAC":         TypePlace,
	"PRODUCT":     TypeThing,
	"EVENT":       TypeThing,
	"WORK_OF_ART": TypeThing,
	"LAW":         TypeThing,
	"LANGUAGE":    TypeThing,
	"DATE":        TypeDate,
	"MONEY":       TypeMoney,
	"NORP":        TypeGroup,
}

// TypeForLabel maps a model label to an entity type, defaulting to misc.
func TypeForLabel(label string) Type {
	if t, ok := labelPrefixes[strings.ToUpper(label)]; ok {
		return t
	}
	return TypeMisc
}

// Occurrence is one entity found by the NER collaborator in a document.
// Start and End are byte offsets into the text the model was given.
// Occurrences are ephemeral: consumed by the allocator, never persisted.
type Occurrence struct {
	Text  string
	Type  Type
	Start int
	End   int
}

var foldCaser = cases.Fold()

// Normalize returns the canonical key for an entity's text: case-folded,
// trimmed, with internal whitespace runs collapsed to a single space.
// Total over any input; the empty string is a valid (if unusual) key.
func Normalize(text string) string {
	return strings.Join(strings.Fields(foldCaser.String(text)), " ")
}

// ExclusionSet holds canonical keys of entities the user wants left as
// literal text. Consulted only during mapping generation; never persisted.
type ExclusionSet map[string]struct{}

// ParseExclusions builds an ExclusionSet from a comma-separated list.
// Each term is normalized, so matching is case- and whitespace-insensitive.
func ParseExclusions(list string) ExclusionSet {
	set := make(ExclusionSet)
	for _, term := range strings.Split(list, ",") {
		if key := Normalize(term); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// NewExclusionSet builds an ExclusionSet from already-split terms.
func NewExclusionSet(terms []string) ExclusionSet {
	set := make(ExclusionSet, len(terms))
	for _, term := range terms {
		if key := Normalize(term); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the canonical key is excluded.
func (s ExclusionSet) Contains(canonicalKey string) bool {
	_, ok := s[canonicalKey]
	return ok
}
