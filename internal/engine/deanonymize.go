package engine

import (
	"regexp"
	"strings"

	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/mapping"
)

// placeholderTokenRE matches placeholder tokens in document text. Placeholders
// are a disjoint token grammar, so reverse substitution has no longest-match
// ambiguity.
var placeholderTokenRE = regexp.MustCompile(buildTokenExpr())

func buildTokenExpr() string {
	prefixes := make([]string, len(entity.AllTypes))
	for i, t := range entity.AllTypes {
		prefixes[i] = string(t)
	}
	return `\b(?:` + strings.Join(prefixes, "|") + `)_[0-9]{3,}\b`
}

// Deanonymize rewrites doc, expanding every placeholder token to the display
// text recorded in tbl. A token absent from the table fails the whole pass
// with UnknownPlaceholderError — no partial output is produced.
//
// The pass is single-sweep, left to right, on exact tokens only. Surrounding
// Markdown (emphasis markers, punctuation) is preserved byte for byte. With
// Options.WrapBold the ** pair immediately around a token is consumed along
// with it, undoing the wrapping the forward pass added.
func (e *Engine) Deanonymize(doc string, tbl *mapping.Table, opts Options) (string, error) {
	matches := placeholderTokenRE.FindAllStringIndex(doc, -1)
	if len(matches) == 0 {
		return doc, nil
	}

	seen := make(map[string]int) // per-placeholder occurrence count, for shorthand
	var b strings.Builder
	b.Grow(len(doc))
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		token := doc[start:end]

		display, ok := tbl.ReverseLookup(token)
		if !ok {
			return "", &UnknownPlaceholderError{Placeholder: token, Offset: start}
		}

		if opts.WrapBold &&
			start >= prev+2 && doc[start-2:start] == "**" &&
			end+2 <= len(doc) && doc[end:end+2] == "**" {
			start -= 2
			end += 2
		}

		seen[token]++
		out := display
		if opts.LastNameShorthand && strings.HasPrefix(token, string(entity.TypePerson)+"_") && seen[token] > 1 {
			if parts := strings.Fields(display); len(parts) > 1 {
				out = parts[len(parts)-1]
			}
		}

		b.WriteString(doc[prev:start])
		b.WriteString(out)
		prev = end
		e.m.PlaceholdersRestored.Add(1)
	}
	b.WriteString(doc[prev:])

	e.log.Infof("deanonymize", "restored %d placeholders", len(matches))
	return b.String(), nil
}
