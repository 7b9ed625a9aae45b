// Package metrics provides lightweight, lock-minimal counters for the
// anonymizer pipeline.
//
// Counters use sync/atomic so the substitution hot path incurs no mutex
// contention. NER latency uses a single mutex; it is updated once per
// recognition call.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"ner-anonymizer/internal/entity"
)

// Metrics holds all runtime counters for one anonymizer process.
// Use New(); the zero value lacks the per-type detection maps.
type Metrics struct {
	// Run counters
	RunsTotal  atomic.Int64
	RunsFailed atomic.Int64

	// Generation / forward pass
	EntitiesDetected      atomic.Int64
	EntitiesExcluded      atomic.Int64
	PlaceholdersAllocated atomic.Int64
	SpansReplaced         atomic.Int64
	SpansSkippedMarkdown  atomic.Int64 // occurrences dropped for overlapping protected syntax

	// Reverse pass
	PlaceholdersRestored atomic.Int64

	// NER detection cache
	NERCacheHits   atomic.Int64
	NERCacheMisses atomic.Int64

	// Per-entity-type detection counters.
	// The map is written only in New(); concurrent reads are safe unlocked.
	detectedByType map[entity.Type]*atomic.Int64

	nerMu   sync.Mutex
	nerStat latencyStats

	startTime time.Time
}

// New returns a Metrics with the start time recorded and per-type detection
// counters pre-populated for every known entity type.
func New() *Metrics {
	m := &Metrics{
		startTime:      time.Now(),
		detectedByType: make(map[entity.Type]*atomic.Int64, len(entity.AllTypes)),
	}
	for _, t := range entity.AllTypes {
		m.detectedByType[t] = new(atomic.Int64)
	}
	return m
}

// RecordDetection counts one detected entity of the given type.
// Unknown types are silently ignored.
func (m *Metrics) RecordDetection(t entity.Type) {
	m.EntitiesDetected.Add(1)
	if c, ok := m.detectedByType[t]; ok {
		c.Add(1)
	}
}

// RecordNERLatency records the duration of one NER collaborator call.
func (m *Metrics) RecordNERLatency(d time.Duration) {
	m.nerMu.Lock()
	m.nerStat.record(float64(d.Microseconds()) / 1000.0)
	m.nerMu.Unlock()
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	m.nerMu.Lock()
	ner := m.nerStat.snapshot()
	m.nerMu.Unlock()

	byType := make(map[string]int64, len(m.detectedByType))
	for t, c := range m.detectedByType {
		if n := c.Load(); n > 0 {
			byType[string(t)] = n
		}
	}

	return Snapshot{
		Runs: RunSnapshot{
			Total:  m.RunsTotal.Load(),
			Failed: m.RunsFailed.Load(),
		},
		Entities: EntitySnapshot{
			Detected:       m.EntitiesDetected.Load(),
			Excluded:       m.EntitiesExcluded.Load(),
			Allocated:      m.PlaceholdersAllocated.Load(),
			DetectedByType: byType,
		},
		Substitution: SubstitutionSnapshot{
			SpansReplaced:        m.SpansReplaced.Load(),
			SpansSkippedMarkdown: m.SpansSkippedMarkdown.Load(),
			PlaceholdersRestored: m.PlaceholdersRestored.Load(),
		},
		NERCache: CacheSnapshot{
			Hits:   m.NERCacheHits.Load(),
			Misses: m.NERCacheMisses.Load(),
		},
		NERLatencyMs: ner,
		UptimeSecs:   time.Since(m.startTime).Seconds(),
	}
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Runs         RunSnapshot          `json:"runs"`
	Entities     EntitySnapshot       `json:"entities"`
	Substitution SubstitutionSnapshot `json:"substitution"`
	NERCache     CacheSnapshot        `json:"nerCache"`
	NERLatencyMs LatencySnapshot      `json:"nerLatencyMs"`
	UptimeSecs   float64              `json:"uptimeSecs"`
}

// RunSnapshot holds pipeline run counters.
type RunSnapshot struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
}

// EntitySnapshot holds detection and allocation counters.
type EntitySnapshot struct {
	Detected  int64 `json:"detected"`
	Excluded  int64 `json:"excluded"`
	Allocated int64 `json:"allocated"`

	// Per-type detections (only types with non-zero counts appear).
	DetectedByType map[string]int64 `json:"detectedByType,omitempty"`
}

// SubstitutionSnapshot holds rewrite counters for both directions.
type SubstitutionSnapshot struct {
	SpansReplaced        int64 `json:"spansReplaced"`
	SpansSkippedMarkdown int64 `json:"spansSkippedMarkdown"`
	PlaceholdersRestored int64 `json:"placeholdersRestored"`
}

// CacheSnapshot holds NER detection cache counters.
type CacheSnapshot struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// LatencySnapshot is a min/mean/max summary for one latency dimension.
type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// --- internal accumulator ---

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}
