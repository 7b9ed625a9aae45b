package status

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ner-anonymizer/internal/config"
	"ner-anonymizer/internal/logger"
	"ner-anonymizer/internal/metrics"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *ExclusionRegistry) {
	t.Helper()
	log := logger.New("status-test", "error")
	reg := NewExclusionRegistry(cfg, "", log)
	return New(cfg, reg, metrics.New(), log), reg
}

func TestStatusEndpoint(t *testing.T) {
	cfg := &config.Config{
		NEREndpoint: "http://localhost:8800/ent",
		NERModel:    "en_core_web_md",
		Exclusions:  []string{"Acme Corp"},
	}
	srv, _ := newTestServer(t, cfg)
	srv.SetLastRun(RunSummary{
		ID:        "run-1",
		File:      "notes.md",
		Mode:      "anonymize",
		Entities:  5,
		Replaced:  5,
		Completed: time.Now(),
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp struct {
		Status     string      `json:"status"`
		Exclusions []string    `json:"exclusions"`
		LastRun    *RunSummary `json:"lastRun"`
		NER        struct {
			Models []string `json:"models"`
		} `json:"ner"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "running" {
		t.Errorf("Status: got %s", resp.Status)
	}
	if !reflect.DeepEqual(resp.Exclusions, []string{"Acme Corp"}) {
		t.Errorf("Exclusions: got %v", resp.Exclusions)
	}
	if resp.LastRun == nil || resp.LastRun.ID != "run-1" || resp.LastRun.Mode != "anonymize" {
		t.Errorf("LastRun: got %+v", resp.LastRun)
	}
	if !reflect.DeepEqual(resp.NER.Models, []string{"en_core_web_md"}) {
		t.Errorf("Models: got %v", resp.NER.Models)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &config.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := snap["runs"]; !ok {
		t.Errorf("snapshot missing runs: %v", snap)
	}
}

func TestAddRemoveExclusion(t *testing.T) {
	srv, reg := newTestServer(t, &config.Config{})

	body, _ := json.Marshal(map[string]string{"text": "Jane Doe"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exclusions/add", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("add: status %d: %s", rec.Code, rec.Body.String())
	}
	if !reg.Set().Contains("jane doe") {
		t.Error("normalized exclusion missing after add")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exclusions/remove", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: status %d", rec.Code)
	}
	if reg.Set().Contains("jane doe") {
		t.Error("exclusion still present after remove")
	}
}

func TestAddExclusionRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, &config.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exclusions/add", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exclusions/add", bytes.NewReader([]byte(`{}`))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text: status %d, want 400", rec.Code)
	}
}

func TestExclusionRegistryPersistence(t *testing.T) {
	log := logger.New("status-test", "error")
	path := filepath.Join(t.TempDir(), "exclusions.json")

	reg := NewExclusionRegistry(&config.Config{}, path, log)
	reg.Add("Acme Corp")
	reg.Add("Jane Doe")
	reg.Remove("Jane Doe")

	// A fresh registry loads the persisted state, overriding config seeds.
	reg2 := NewExclusionRegistry(&config.Config{Exclusions: []string{"Ignored"}}, path, log)
	if got := reg2.All(); !reflect.DeepEqual(got, []string{"Acme Corp"}) {
		t.Errorf("got %v", got)
	}
}

func TestExclusionRegistryMissingFileUsesConfig(t *testing.T) {
	log := logger.New("status-test", "error")
	path := filepath.Join(t.TempDir(), "nope.json")

	reg := NewExclusionRegistry(&config.Config{Exclusions: []string{"Acme Corp"}}, path, log)
	if got := reg.All(); !reflect.DeepEqual(got, []string{"Acme Corp"}) {
		t.Errorf("got %v", got)
	}
}

func TestExclusionRegistryCorruptFileFallsBack(t *testing.T) {
	log := logger.New("status-test", "error")
	path := filepath.Join(t.TempDir(), "exclusions.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewExclusionRegistry(&config.Config{Exclusions: []string{"Seed"}}, path, log)
	if got := reg.All(); !reflect.DeepEqual(got, []string{"Seed"}) {
		t.Errorf("got %v", got)
	}
}
