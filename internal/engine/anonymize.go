package engine

import (
	"context"
	"sort"
	"strings"

	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/mapping"
)

// replacement is one substitution candidate: the document span and the
// placeholder text that replaces it.
type replacement struct {
	span
	token string
}

// Anonymize rewrites doc, replacing every non-excluded entity occurrence
// with its placeholder, allocating new placeholders into tbl as needed.
//
// Spans are validated up front; an occurrence outside the document bounds
// fails the whole transform with SpanOutOfRangeError. Occurrences
// overlapping code spans, fenced blocks, link URLs, autolinks or HTML
// comments are skipped; occurrences straddling emphasis markers are
// realigned to the enclosing safe text run. Allocation happens in document
// order so placeholder numbering is deterministic. Span selection is
// longest-entity-first: once a region is claimed, no shorter occurrence may
// touch it. The rewrite is a single left-to-right pass over the final span
// list; every byte outside a replaced span is emitted verbatim.
//
// Cancellation is honored only before the rewrite begins; the rewrite is
// not safely resumable.
func (e *Engine) Anonymize(ctx context.Context, doc string, occs []entity.Occurrence, tbl *mapping.Table, exclusions entity.ExclusionSet, opts Options) (string, error) {
	for _, occ := range occs {
		if occ.Start < 0 || occ.End < occ.Start || occ.End > len(doc) {
			return "", &SpanOutOfRangeError{Start: occ.Start, End: occ.End, DocLen: len(doc), Text: occ.Text}
		}
	}

	protected := protectedRanges(doc)
	markers := markerRanges(doc, protected)
	runs := safeRuns(doc, append(append([]span{}, protected...), markers...))

	// Document order determines which occurrence of a type wins the lowest
	// counter value.
	ordered := make([]entity.Occurrence, len(occs))
	copy(ordered, occs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var candidates []replacement
	for _, occ := range ordered {
		if occ.End == occ.Start {
			continue
		}
		e.m.RecordDetection(occ.Type)

		s := span{occ.Start, occ.End}
		if withinAny(s, protected) {
			e.m.SpansSkippedMarkdown.Add(1)
			e.log.Debugf("anonymize", "skipped %q at %d: overlaps protected syntax",
				doc[s.start:s.end], s.start)
			continue
		}
		clipped, ok := clipToRun(s, runs)
		if !ok {
			e.m.SpansSkippedMarkdown.Add(1)
			continue
		}
		text := doc[clipped.start:clipped.end]

		if exclusions.Contains(entity.Normalize(text)) {
			e.m.EntitiesExcluded.Add(1)
			e.log.Debugf("anonymize", "excluded entity %q", text)
			continue
		}

		token, created := tbl.Allocate(occ.Type, text)
		if created {
			e.m.PlaceholdersAllocated.Add(1)
			e.log.Debugf("anonymize", "allocated %s for %q", token, text)
		}
		candidates = append(candidates, replacement{clipped, token})
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	accepted := selectLongestFirst(candidates)
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	var b strings.Builder
	b.Grow(len(doc))
	prev := 0
	for _, r := range accepted {
		b.WriteString(doc[prev:r.start])
		if opts.WrapBold {
			b.WriteString("**")
			b.WriteString(r.token)
			b.WriteString("**")
		} else {
			b.WriteString(r.token)
		}
		prev = r.end
		e.m.SpansReplaced.Add(1)
	}
	b.WriteString(doc[prev:])

	e.log.Infof("anonymize", "replaced %d of %d occurrences, table now %d entries",
		len(accepted), len(occs), tbl.Len())
	return b.String(), nil
}

// selectLongestFirst applies the longest-entity-first policy: candidates are
// considered in descending span length (ties broken by document position),
// and a candidate overlapping an already-claimed region is dropped.
func selectLongestFirst(candidates []replacement) []replacement {
	order := make([]replacement, len(candidates))
	copy(order, candidates)
	sort.SliceStable(order, func(i, j int) bool {
		li, lj := order[i].end-order[i].start, order[j].end-order[j].start
		if li != lj {
			return li > lj
		}
		return order[i].start < order[j].start
	})

	var accepted []replacement
	for _, c := range order {
		claimed := false
		for _, a := range accepted {
			if c.span.overlaps(a.span) {
				claimed = true
				break
			}
		}
		if !claimed {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
