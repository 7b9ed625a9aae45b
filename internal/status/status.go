// Package status provides a lightweight HTTP API for runtime inspection of
// a long-running anonymizer (watch mode).
//
// Endpoints:
//
//	GET  /status             - health, uptime, NER settings, last run summary
//	GET  /metrics            - full metrics snapshot
//	POST /exclusions/add     - add an exclusion {"text":"Acme Corp"}
//	POST /exclusions/remove  - remove an exclusion {"text":"Acme Corp"}
package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ner-anonymizer/internal/config"
	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/logger"
	"ner-anonymizer/internal/metrics"
)

// Server is the status API server.
type Server struct {
	cfg        *config.Config
	startTime  time.Time
	exclusions *ExclusionRegistry
	metrics    *metrics.Metrics
	log        *logger.Logger

	mu      sync.RWMutex
	lastRun *RunSummary
}

// RunSummary describes the most recent pipeline run.
type RunSummary struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Mode      string    `json:"mode"` // "anonymize" or "deanonymize"
	Entities  int       `json:"entities"`
	Replaced  int       `json:"replaced"`
	Completed time.Time `json:"completed"`
	Error     string    `json:"error,omitempty"`
}

// ExclusionRegistry holds the mutable set of excluded entities. It is shared
// between the pipeline and the status server. Changes are persisted to disk
// via atomic file writes so they survive restarts.
//
// Entries are stored in display form; membership checks go through the same
// normalization the pipeline applies to detected entities.
type ExclusionRegistry struct {
	mu          sync.RWMutex
	entries     map[string]string // normalized key → display form
	persistPath string            // empty = no persistence
}

// NewExclusionRegistry creates a registry seeded from the config exclusions.
// If persistPath is non-empty and the file exists, its contents take
// precedence over config defaults (it represents runtime overrides).
func NewExclusionRegistry(cfg *config.Config, persistPath string, log *logger.Logger) *ExclusionRegistry {
	r := &ExclusionRegistry{
		entries:     make(map[string]string, len(cfg.Exclusions)),
		persistPath: persistPath,
	}

	if persistPath != "" {
		entries, err := r.loadFromDisk()
		switch {
		case err == nil:
			for _, e := range entries {
				r.entries[entity.Normalize(e)] = e
			}
			log.Infof("exclusions", "loaded %d exclusions from %s", len(entries), persistPath)
			return r
		case !os.IsNotExist(err):
			log.Warnf("exclusions", "failed to load %s: %v (using config defaults)", persistPath, err)
		}
	}

	for _, e := range cfg.Exclusions {
		r.entries[entity.Normalize(e)] = e
	}
	return r
}

// Set returns the registry contents as the set the engine consumes.
func (r *ExclusionRegistry) Set() entity.ExclusionSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(entity.ExclusionSet, len(r.entries))
	for k := range r.entries {
		out[k] = struct{}{}
	}
	return out
}

// Add adds an exclusion and persists to disk.
func (r *ExclusionRegistry) Add(text string) {
	r.mu.Lock()
	r.entries[entity.Normalize(text)] = text
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.persist(snapshot)
}

// Remove removes an exclusion and persists to disk.
func (r *ExclusionRegistry) Remove(text string) {
	r.mu.Lock()
	delete(r.entries, entity.Normalize(text))
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.persist(snapshot)
}

// All returns the display forms of all exclusions, sorted.
func (r *ExclusionRegistry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedValues(r.entries)
}

func (r *ExclusionRegistry) loadFromDisk() ([]string, error) {
	data, err := os.ReadFile(r.persistPath) // #nosec G304 -- path from trusted config
	if err != nil {
		return nil, err
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.persistPath, err)
	}
	return entries, nil
}

// snapshotLocked returns a sorted copy of the display forms.
// Caller must hold r.mu.
func (r *ExclusionRegistry) snapshotLocked() []string {
	return sortedValues(r.entries)
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// persist writes the given snapshot to disk atomically. It does NOT hold
// r.mu, so it won't block Set/All calls.
func (r *ExclusionRegistry) persist(entries []string) {
	if r.persistPath == "" {
		return
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return
	}

	// Atomic write: temp file → rename
	dir := filepath.Dir(r.persistPath)
	tmp, err := os.CreateTemp(dir, ".exclusions-*.tmp")
	if err != nil {
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()        //nolint:errcheck // best-effort cleanup
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp
		return
	}
	if err := os.Rename(tmpName, r.persistPath); err != nil { // #nosec G703 -- paths from trusted config
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp
	}
}

// New creates a status server.
func New(cfg *config.Config, registry *ExclusionRegistry, m *metrics.Metrics, log *logger.Logger) *Server {
	return &Server{
		cfg:        cfg,
		startTime:  time.Now(),
		exclusions: registry,
		metrics:    m,
		log:        log,
	}
}

// SetLastRun records the most recent pipeline run for /status.
func (s *Server) SetLastRun(run RunSummary) {
	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()
}

// Handler returns the HTTP handler for the status API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/exclusions/add", s.handleAddExclusion)
	mux.HandleFunc("/exclusions/remove", s.handleRemoveExclusion)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	type response struct {
		Status     string      `json:"status"`
		Uptime     string      `json:"uptime"`
		Exclusions []string    `json:"exclusions"`
		LastRun    *RunSummary `json:"lastRun,omitempty"`
		NER        struct {
			Endpoint string   `json:"endpoint"`
			Models   []string `json:"models"`
			Labels   []string `json:"labels"`
		} `json:"ner"`
	}

	s.mu.RLock()
	lastRun := s.lastRun
	s.mu.RUnlock()

	resp := response{
		Status:     "running",
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Exclusions: s.exclusions.All(),
		LastRun:    lastRun,
	}
	resp.NER.Endpoint = s.cfg.NEREndpoint
	resp.NER.Models = s.cfg.Models()
	resp.NER.Labels = s.cfg.Labels

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleAddExclusion(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeExclusion(w, r)
	if !ok {
		return
	}
	s.exclusions.Add(text)
	s.log.Infof("status", "added exclusion %q", text)
	s.writeJSON(w, http.StatusOK, map[string]string{"added": text})
}

func (s *Server) handleRemoveExclusion(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeExclusion(w, r)
	if !ok {
		return
	}
	s.exclusions.Remove(text)
	s.log.Infof("status", "removed exclusion %q", text)
	s.writeJSON(w, http.StatusOK, map[string]string{"removed": text})
}

func (s *Server) decodeExclusion(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return "", false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1024)
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request: need {\"text\":\"...\"}", http.StatusBadRequest)
		return "", false
	}
	if len(req.Text) > 256 {
		http.Error(w, "exclusion too long", http.StatusBadRequest)
		return "", false
	}
	return req.Text, true
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorf("status", "JSON encode error: %v", err)
	}
}

// ListenAndServe starts the status HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.StatusPort)
	s.log.Infof("status", "listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
