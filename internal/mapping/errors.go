package mapping

import "fmt"

// MalformedMappingError reports a structurally invalid mapping file: a bad
// header, a row with the wrong number of fields, a placeholder that does not
// match the type_NNN pattern, or two entries whose display texts collapse to
// the same canonical key.
type MalformedMappingError struct {
	Line   int // 1-based line number in the CSV, 0 if not row-specific
	Reason string
}

func (e *MalformedMappingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed mapping (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed mapping: %s", e.Reason)
}

// DuplicatePlaceholderError reports the same placeholder appearing twice in
// a mapping file with different display texts. Picking either silently would
// corrupt de-anonymization, so loading fails instead.
type DuplicatePlaceholderError struct {
	Line        int
	Placeholder string
	Existing    string // display text seen first
	Conflicting string // display text on the offending row
}

func (e *DuplicatePlaceholderError) Error() string {
	return fmt.Sprintf("duplicate placeholder %q (line %d): %q conflicts with earlier %q",
		e.Placeholder, e.Line, e.Conflicting, e.Existing)
}
