// Package engine implements the reversible substitution engine: the forward
// pass rewrites entity occurrences to stable placeholders, the reverse pass
// expands placeholder tokens back to the original entity text. Both passes
// rewrite the document exactly once, left to right, and either complete the
// whole document or fail atomically.
package engine

import (
	"ner-anonymizer/internal/logger"
	"ner-anonymizer/internal/metrics"
)

// Options adjust engine behavior for one run.
type Options struct {
	// WrapBold wraps emitted placeholders in ** markers, and makes the
	// reverse pass consume a wrapping pair around a token it expands.
	WrapBold bool

	// LastNameShorthand expands the first occurrence of a multi-word person
	// placeholder to the full name and later occurrences to the last name
	// only. Lossy for round-trips; off by default.
	LastNameShorthand bool
}

// Engine performs forward and reverse substitution. It holds no per-document
// state; one Engine may serve many sequential runs. The engine itself has no
// internal concurrency — callers hold exclusive access to a mapping table
// for the duration of a call.
type Engine struct {
	log *logger.Logger
	m   *metrics.Metrics
}

// New creates an Engine. metrics may be nil.
func New(log *logger.Logger, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.New()
	}
	return &Engine{log: log, m: m}
}
