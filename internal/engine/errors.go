package engine

import "fmt"

// SpanOutOfRangeError reports an entity occurrence whose span lies outside
// the document bounds — a stale or mismatched NER result. The transform
// aborts rather than silently truncating.
type SpanOutOfRangeError struct {
	Start  int
	End    int
	DocLen int
	Text   string
}

func (e *SpanOutOfRangeError) Error() string {
	return fmt.Sprintf("occurrence %q span [%d,%d) outside document bounds (len %d)",
		e.Text, e.Start, e.End, e.DocLen)
}

// UnknownPlaceholderError reports a placeholder token found in a document
// but absent from the mapping table. Silently skipping it would leak the
// placeholder into final output, so the whole reverse pass fails.
type UnknownPlaceholderError struct {
	Placeholder string
	Offset      int // byte offset of the token in the document
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("placeholder %q at offset %d not present in mapping table",
		e.Placeholder, e.Offset)
}
