// Package ner talks to an external named-entity recognition service over
// HTTP. The service wraps a spaCy pipeline: it takes raw text plus a model
// name and returns labeled entities with byte offsets. The client layers
// model fallback, label filtering, entity hygiene and a content-addressed
// detection cache on top of the wire call.
package ner

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- cache key, not cryptographic security
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/logger"
	"ner-anonymizer/internal/metrics"
)

const maxResponseBytes = 10 << 20 // 10 MB

// Client queries the NER service and converts its detections into entity
// occurrences. Safe for concurrent use; at most one request is in flight at
// a time so a slow model cannot be piled onto.
type Client struct {
	endpoint  string
	models    []string // tried in order until one is available
	labels    map[string]struct{}
	labelList []string // sorted, for requests and cache keying
	cacheSalt string   // model sequence + label set; keeps cached payloads from leaking across configs
	httpc     *http.Client
	sem       chan struct{}
	cache     DetectionCache
	log       *logger.Logger
	m         *metrics.Metrics
}

// NewClient builds a Client. models must contain at least the primary model;
// later entries are fallbacks tried when the service reports the model as
// unavailable. labels is the allowlist of spaCy labels to request; empty
// means every label the model emits.
func NewClient(endpoint string, models, labels []string, cache DetectionCache, log *logger.Logger, m *metrics.Metrics) *Client {
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
	}
	labelList := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labelList = append(labelList, l)
	}
	sort.Strings(labelList)
	if cache == nil {
		cache = newMemoryCache()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Client{
		endpoint:  endpoint,
		models:    models,
		labels:    labelSet,
		labelList: labelList,
		cacheSalt: strings.Join(models, ",") + "\x00" + strings.Join(labelList, ",") + "\x00",
		httpc:     &http.Client{Timeout: 60 * time.Second},
		sem:       make(chan struct{}, 1),
		cache:     cache,
		log:       log,
		m:         m,
	}
}

type nerRequest struct {
	Text   string   `json:"text"`
	Model  string   `json:"model"`
	Labels []string `json:"labels,omitempty"`
}

type nerResponse struct {
	Entities []wireEntity `json:"entities"`
}

type wireEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Detect returns the entity occurrences the NER service finds in text.
// Offsets are byte offsets into text as sent. Results are cached by content
// hash; a later Detect call with identical text never re-queries the service.
func (c *Client) Detect(ctx context.Context, text string) ([]entity.Occurrence, error) {
	// Cached payloads are post-filter, so the key must cover everything that
	// shapes the result: model sequence, label allowlist, and the text.
	key := fmt.Sprintf("%x", md5.Sum([]byte(c.cacheSalt+text))) // #nosec G401 -- cache key, not crypto

	if payload, ok := c.cache.Get(key); ok {
		var occs []entity.Occurrence
		if err := json.Unmarshal(payload, &occs); err == nil {
			c.m.NERCacheHits.Add(1)
			c.log.Debugf("ner", "cache hit for %d bytes of text", len(text))
			return occs, nil
		}
		// Corrupt entry: fall through to a fresh query that overwrites it.
	}
	c.m.NERCacheMisses.Add(1)

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	started := time.Now()
	wire, model, err := c.queryWithFallback(ctx, text)
	if err != nil {
		return nil, err
	}
	c.m.RecordNERLatency(time.Since(started))

	occs := c.filter(text, wire)
	c.log.Infof("ner", "model %s found %d entities, kept %d", model, len(wire), len(occs))

	if payload, err := json.Marshal(occs); err == nil {
		c.cache.Set(key, payload)
	}
	return occs, nil
}

// queryWithFallback tries each configured model in order. A 404 from the
// service means the model is not installed; any other failure aborts.
func (c *Client) queryWithFallback(ctx context.Context, text string) ([]wireEntity, string, error) {
	var lastErr error
	for i, model := range c.models {
		wire, err := c.query(ctx, text, model)
		if err == nil {
			if i > 0 {
				c.log.Warnf("ner", "primary model unavailable, using fallback %s", model)
			}
			return wire, model, nil
		}
		var ne *notFoundError
		if !errors.As(err, &ne) {
			return nil, "", err
		}
		c.log.Debugf("ner", "model %s not available: %v", model, err)
		lastErr = err
	}
	return nil, "", fmt.Errorf("no configured NER model is available: %w", lastErr)
}

type notFoundError struct{ model string }

func (e *notFoundError) Error() string { return fmt.Sprintf("model %q not found", e.model) }

func (c *Client) query(ctx context.Context, text, model string) ([]wireEntity, error) {
	reqBody, err := json.Marshal(nerRequest{Text: text, Model: model, Labels: c.labelList})
	if err != nil {
		return nil, fmt.Errorf("encode NER request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create NER request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req) // #nosec G704 -- URL from trusted config, not user input
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on HTTP response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, &notFoundError{model: model}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NER service returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("NER response exceeds %d bytes", maxResponseBytes)
	}

	var nr nerResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, fmt.Errorf("decode NER response: %w", err)
	}
	return nr.Entities, nil
}

// filter applies entity hygiene to raw detections: out-of-range or
// misaligned spans are dropped, labels outside the allowlist are dropped,
// single-rune entities are dropped, and purely numeric entities are demoted
// to the catch-all type regardless of label.
func (c *Client) filter(text string, wire []wireEntity) []entity.Occurrence {
	var occs []entity.Occurrence
	for _, w := range wire {
		if w.Start < 0 || w.End > len(text) || w.End <= w.Start {
			c.log.Warnf("ner", "dropping detection %q: span [%d,%d) out of range", w.Text, w.Start, w.End)
			continue
		}
		got := text[w.Start:w.End]
		if w.Text != "" && got != w.Text {
			c.log.Warnf("ner", "dropping detection %q: span text mismatch (%q)", w.Text, got)
			continue
		}
		if len(c.labels) > 0 {
			if _, ok := c.labels[w.Label]; !ok {
				continue
			}
		}
		if utf8.RuneCountInString(got) < 2 {
			continue
		}
		typ := entity.TypeForLabel(w.Label)
		if numericOnly(got) && demotable(typ) {
			typ = entity.TypeMisc
		}
		occs = append(occs, entity.Occurrence{Text: got, Type: typ, Start: w.Start, End: w.End})
	}
	return occs
}

// demotable reports whether a purely numeric detection under this type is
// implausible enough to reclassify. Dates and money are legitimately
// numeric and keep their type.
func demotable(t entity.Type) bool {
	switch t {
	case entity.TypePerson, entity.TypeOrg, entity.TypePlace, entity.TypeThing:
		return true
	}
	return false
}

func numericOnly(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			return false
		}
	}
	return hasDigit
}
