package engine

import (
	"regexp"
	"sort"
	"strings"
)

// span is a half-open byte range [start, end) within a document.
type span struct {
	start, end int
}

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

// Structural Markdown syntax a replacement must never touch. Replacements
// overlapping a protected range are skipped outright; replacements straddling
// an emphasis marker are clipped to the enclosing safe text run instead.
var (
	inlineCodeRE  = regexp.MustCompile("`[^`\n]+`")
	linkRE        = regexp.MustCompile(`!?\[[^\]\n]*\]\([^)\n]*\)`)
	linkTargetRE  = regexp.MustCompile(`\]\([^)\n]*\)$`)
	autolinkRE    = regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9+.-]*://[^>\s]+>`)
	htmlCommentRE = regexp.MustCompile(`(?s)<!--.*?-->`)
	emphasisRE    = regexp.MustCompile(`\*{1,3}|_{1,3}|~~`)
)

// protectedRanges returns byte ranges of the document whose contents must be
// emitted verbatim: fenced code blocks, inline code spans, link and image
// URL parts, autolinks, and HTML comments.
func protectedRanges(doc string) []span {
	var out []span

	out = append(out, fencedBlocks(doc)...)

	for _, m := range inlineCodeRE.FindAllStringIndex(doc, -1) {
		out = append(out, span{m[0], m[1]})
	}
	for _, m := range linkRE.FindAllStringIndex(doc, -1) {
		// Only the ](url) tail is structural; the [text] part is prose.
		whole := doc[m[0]:m[1]]
		if t := linkTargetRE.FindStringIndex(whole); t != nil {
			out = append(out, span{m[0] + t[0], m[1]})
		}
	}
	for _, m := range autolinkRE.FindAllStringIndex(doc, -1) {
		out = append(out, span{m[0], m[1]})
	}
	for _, m := range htmlCommentRE.FindAllStringIndex(doc, -1) {
		out = append(out, span{m[0], m[1]})
	}

	return mergeSpans(out)
}

// fencedBlocks scans line by line for ``` / ~~~ fences. An unterminated
// fence protects through end of document.
func fencedBlocks(doc string) []span {
	var out []span
	inFence := false
	fenceStart := 0
	offset := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			if inFence {
				out = append(out, span{fenceStart, offset + len(line)})
				inFence = false
			} else {
				inFence = true
				fenceStart = offset
			}
		}
		offset += len(line)
	}
	if inFence {
		out = append(out, span{fenceStart, len(doc)})
	}
	return out
}

// markerRanges returns the byte ranges of emphasis and strikethrough marker
// tokens (*, **, ***, _, __, ~~). Underscore runs inside a word are not
// markers (Markdown does not treat intraword underscores as emphasis), which
// also keeps entity texts containing underscores replaceable.
func markerRanges(doc string, protected []span) []span {
	var out []span
	for _, m := range emphasisRE.FindAllStringIndex(doc, -1) {
		s := span{m[0], m[1]}
		if withinAny(s, protected) {
			continue
		}
		if doc[s.start] == '_' && intraword(doc, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func intraword(doc string, s span) bool {
	before := s.start > 0 && isWordByte(doc[s.start-1])
	after := s.end < len(doc) && isWordByte(doc[s.end])
	return before && after
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

func withinAny(s span, ranges []span) bool {
	for _, r := range ranges {
		if s.overlaps(r) {
			return true
		}
	}
	return false
}

// safeRuns returns the complement of protected ∪ marker ranges: the text
// runs a replacement span may occupy.
func safeRuns(doc string, blocked []span) []span {
	blocked = mergeSpans(blocked)
	var runs []span
	prev := 0
	for _, b := range blocked {
		if b.start > prev {
			runs = append(runs, span{prev, b.start})
		}
		prev = b.end
	}
	if prev < len(doc) {
		runs = append(runs, span{prev, len(doc)})
	}
	return runs
}

// clipToRun realigns s to the first safe run it intersects: the replacement
// keeps at most the part of the span inside that run. Returns false when no
// part of the span lies in any run.
func clipToRun(s span, runs []span) (span, bool) {
	for _, r := range runs {
		if s.overlaps(r) {
			start := s.start
			if r.start > start {
				start = r.start
			}
			end := s.end
			if r.end < end {
				end = r.end
			}
			return span{start, end}, end > start
		}
	}
	return span{}, false
}

// mergeSpans sorts and coalesces overlapping or adjacent spans.
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
		} else {
			out = append(out, s)
		}
	}
	return out
}
