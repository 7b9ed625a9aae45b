package cli

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"ner-anonymizer/internal/document"
	"ner-anonymizer/internal/status"
)

var watchExclusionsFile string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and anonymize documents as they change",
	Long: `Watches a directory for new or modified .md and .txt files and runs the
anonymize pipeline (with detection) on each. Derived outputs and mapping
files are ignored. A status HTTP server runs for the lifetime of the watch;
its exclusion list can be edited at runtime and is persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchExclusionsFile, "exclusions-file", "", "path for persisting runtime exclusion edits")
	rootCmd.AddCommand(watchCmd)
}

// debounceDelay coalesces the burst of write events editors emit per save.
const debounceDelay = 500 * time.Millisecond

func runWatch(cmd *cobra.Command, args []string) error {
	a := newApp()
	dir := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := status.NewExclusionRegistry(a.cfg, watchExclusionsFile, a.log)
	a.registry = registry
	srv := status.New(a.cfg, registry, a.m, a.log)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			a.log.Errorf("watch", "status server: %v", err)
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck // process is exiting

	if err := watcher.Add(dir); err != nil {
		return err
	}
	a.log.Infof("watch", "watching %s", dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("watch", "shutting down")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !watchable(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warnf("watch", "watcher error: %v", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < debounceDelay {
					continue
				}
				delete(pending, path)
				a.processWatched(ctx, srv, path)
			}
		}
	}
}

func (a *app) processWatched(ctx context.Context, srv *status.Server, path string) {
	mappingPath := document.DeriveMappingPath(path)
	outPath := document.DeriveOutputPath(path, document.AnonymizedSuffix)

	run, err := a.anonymizeFile(ctx, path, mappingPath, outPath, true)
	srv.SetLastRun(run)
	if err != nil {
		a.log.Errorf("watch", "%s: %v", path, err)
		return
	}
	a.log.Infof("watch", "%s: replaced %d occurrences", path, run.Replaced)
}

// watchable reports whether the file is a source document the watcher should
// process: .md or .txt, and not one of our own derived outputs.
func watchable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
	default:
		return false
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.HasSuffix(base, document.AnonymizedSuffix) ||
		strings.HasSuffix(base, document.DeanonymizedSuffix) {
		return false
	}
	return true
}
