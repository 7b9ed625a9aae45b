package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV header, mandatory and exact.
var csvHeader = []string{"base_placeholder", "real_entity_name"}

// Load parses a mapping CSV: the exact header row followed by
// (placeholder, display text) data rows. Blank lines are skipped. Canonical
// keys are re-derived from display text, so only the two columns persist.
//
// Returns MalformedMappingError for structural problems and
// DuplicatePlaceholderError when one placeholder maps to two different
// display texts.
func Load(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // field count is validated per row below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &MalformedMappingError{Line: 1, Reason: "empty file, header row required"}
	}
	if err != nil {
		return nil, &MalformedMappingError{Line: 1, Reason: err.Error()}
	}
	if len(header) != 2 || header[0] != csvHeader[0] || header[1] != csvHeader[1] {
		return nil, &MalformedMappingError{
			Line:   1,
			Reason: fmt.Sprintf("header must be %q, got %q", strings.Join(csvHeader, ","), strings.Join(header, ",")),
		}
	}

	t := NewTable()
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// FieldPos is only defined after a successful Read; for errored
			// rows the position comes from the ParseError (0 for plain I/O
			// failures, which have no row).
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &MalformedMappingError{Line: line, Reason: err.Error()}
		}
		line, _ := cr.FieldPos(0)
		if len(row) != 2 {
			return nil, &MalformedMappingError{
				Line:   line,
				Reason: fmt.Sprintf("expected 2 fields, got %d", len(row)),
			}
		}
		placeholder := strings.TrimSpace(row[0])
		display := strings.TrimSpace(row[1])
		if err := t.insertLoaded(placeholder, display, line); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Save writes the table as CSV: header, then one row per entry in
// placeholder order (type, then counter), using the original-casing display
// text. Standard CSV quoting applies to fields containing commas.
func Save(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write mapping header: %w", err)
	}
	for _, e := range t.Entries() {
		if err := cw.Write([]string{e.Placeholder, e.DisplayText}); err != nil {
			return fmt.Errorf("write mapping row %s: %w", e.Placeholder, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush mapping: %w", err)
	}
	return nil
}
