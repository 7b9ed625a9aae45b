// Package config loads and holds all anonymizer configuration.
// Settings are read from anonymizer-config.json first, then environment
// variables; flags set on the command line override both.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds the full anonymizer configuration.
type Config struct {
	NEREndpoint    string   `json:"nerEndpoint"`
	NERModel       string   `json:"nerModel"`
	FallbackModels []string `json:"fallbackModels"`
	Labels         []string `json:"labels"`
	Exclusions     []string `json:"exclusions"`

	CachePath  string `json:"cachePath"`
	StatusPort int    `json:"statusPort"`
	LogLevel   string `json:"logLevel"`

	WrapBold          bool `json:"wrapBold"`
	LastNameShorthand bool `json:"lastNameShorthand"`
}

// Models returns the full model fallback sequence, primary first.
func (c *Config) Models() []string {
	return append([]string{c.NERModel}, c.FallbackModels...)
}

// Load returns config with defaults overridden by anonymizer-config.json
// and env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "anonymizer-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		NEREndpoint:    "http://localhost:8800/ent",
		NERModel:       "en_core_web_md",
		FallbackModels: []string{"en_core_web_sm"},
		Labels:         []string{"PERSON"},
		StatusPort:     8081,
		LogLevel:       "info",
	}
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) // #nosec G304 -- well-known config file name
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("NER_ENDPOINT"); v != "" {
		cfg.NEREndpoint = v
	}
	if v := os.Getenv("NER_MODEL"); v != "" {
		cfg.NERModel = v
	}
	if v := os.Getenv("NER_FALLBACK_MODELS"); v != "" {
		cfg.FallbackModels = splitList(v)
	}
	if v := os.Getenv("NER_LABELS"); v != "" {
		cfg.Labels = splitList(v)
	}
	if v := os.Getenv("EXCLUSIONS"); v != "" {
		cfg.Exclusions = splitList(v)
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("STATUS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StatusPort = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WRAP_BOLD"); v == "true" {
		cfg.WrapBold = true
	}
	if v := os.Getenv("LAST_NAME_SHORTHAND"); v == "true" {
		cfg.LastNameShorthand = true
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
