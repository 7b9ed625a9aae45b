// Package cli wires the anonymizer commands together. Each command is a
// cobra.Command registered on rootCmd from its file's init func; shared
// services (config, logger, metrics, engine, NER client) are built once per
// invocation in newApp.
package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"ner-anonymizer/internal/config"
	"ner-anonymizer/internal/engine"
	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/logger"
	"ner-anonymizer/internal/metrics"
	"ner-anonymizer/internal/ner"
	"ner-anonymizer/internal/status"
)

var version = "dev"

var (
	flagLogLevel  string
	flagCachePath string
	flagModel     string
	flagExclude   string
	flagWrapBold  bool
	flagShorthand bool
)

var rootCmd = &cobra.Command{
	Use:   "anonymizer",
	Short: "Reversible entity anonymization for text and Markdown documents",
	Long: `anonymizer replaces named entities in a document with stable
placeholders (person_001, org_002, ...) and keeps the mapping in a CSV file,
so the transformation can be reversed exactly.

Entity detection is delegated to an external NER service; documents can also
be anonymized from an existing mapping file with no service at all.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagCachePath, "cache", "", "path to the NER detection cache database")
	pf.StringVar(&flagModel, "model", "", "NER model, overriding configuration")
	pf.StringVar(&flagExclude, "exclude", "", "comma-separated entities to leave untouched")
	pf.BoolVar(&flagWrapBold, "wrap-bold", false, "wrap placeholders in ** when anonymizing")
	pf.BoolVar(&flagShorthand, "shorthand", false, "shorten repeated person names to last name when de-anonymizing")
}

// app holds the services shared by all commands.
type app struct {
	cfg *config.Config
	log *logger.Logger
	m   *metrics.Metrics
	eng *engine.Engine

	// registry, when set (watch mode), is the live exclusion source; runtime
	// edits through the status API take effect on the next run.
	registry *status.ExclusionRegistry
}

func newApp() *app {
	cfg := config.Load()
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagCachePath != "" {
		cfg.CachePath = flagCachePath
	}
	if flagModel != "" {
		cfg.NERModel = flagModel
		cfg.FallbackModels = nil
	}
	if flagExclude != "" {
		cfg.Exclusions = append(cfg.Exclusions, strings.Split(flagExclude, ",")...)
	}
	if flagWrapBold {
		cfg.WrapBold = true
	}
	if flagShorthand {
		cfg.LastNameShorthand = true
	}

	log := logger.New("anonymizer", cfg.LogLevel)
	m := metrics.New()
	return &app{cfg: cfg, log: log, m: m, eng: engine.New(log, m)}
}

func (a *app) engineOpts() engine.Options {
	return engine.Options{WrapBold: a.cfg.WrapBold, LastNameShorthand: a.cfg.LastNameShorthand}
}

func (a *app) exclusions() entity.ExclusionSet {
	if a.registry != nil {
		return a.registry.Set()
	}
	return entity.NewExclusionSet(a.cfg.Exclusions)
}

// nerClient builds the NER client with its detection cache. The returned
// cleanup closes the cache and must be called when the command finishes.
func (a *app) nerClient() (*ner.Client, func(), error) {
	cache, err := ner.NewCache(a.cfg.CachePath, a.log)
	if err != nil {
		return nil, nil, err
	}
	client := ner.NewClient(a.cfg.NEREndpoint, a.cfg.Models(), a.cfg.Labels, cache, a.log, a.m)
	cleanup := func() {
		if err := cache.Close(); err != nil {
			a.log.Warnf("cache", "close: %v", err)
		}
	}
	return client, cleanup, nil
}
