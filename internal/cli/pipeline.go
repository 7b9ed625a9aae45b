package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"ner-anonymizer/internal/document"
	"ner-anonymizer/internal/entity"
	"ner-anonymizer/internal/mapping"
	"ner-anonymizer/internal/ner"
	"ner-anonymizer/internal/status"
)

// detectEntities runs the NER service over the document. Markdown is cleaned
// to plain prose first; the resulting occurrences identify entities by name
// and type, not by span into the original document.
func (a *app) detectEntities(ctx context.Context, doc, path string) ([]entity.Occurrence, error) {
	text := doc
	if document.IsMarkdown(path) {
		cleaned, err := ner.CleanMarkdown(doc)
		if err != nil {
			return nil, fmt.Errorf("clean markdown: %w", err)
		}
		text = cleaned
	}

	client, cleanup, err := a.nerClient()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return client.Detect(ctx, text)
}

// readDocument loads the input file, warning once for extensions the
// pipeline does not formally support (they are still treated as plain text).
func (a *app) readDocument(path string) (string, error) {
	if !document.IsKnownExtension(path) {
		a.log.Warnf("pipeline", "%s: unrecognized extension, treating as plain text", path)
	}
	return document.Read(path)
}

// populateTable allocates placeholders for the detected occurrences in
// document order, honoring exclusions. Returns how many new placeholders
// were created.
func (a *app) populateTable(tbl *mapping.Table, occs []entity.Occurrence, exclusions entity.ExclusionSet) int {
	ordered := make([]entity.Occurrence, len(occs))
	copy(ordered, occs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	created := 0
	for _, occ := range ordered {
		if exclusions.Contains(entity.Normalize(occ.Text)) {
			a.m.EntitiesExcluded.Add(1)
			continue
		}
		if _, isNew := tbl.Allocate(occ.Type, occ.Text); isNew {
			created++
			a.m.PlaceholdersAllocated.Add(1)
		}
	}
	return created
}

// loadTable reads the mapping CSV at path.
func loadTable(path string) (*mapping.Table, error) {
	f, err := os.Open(path) // #nosec G304 -- path from CLI args
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	tbl, err := mapping.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// saveTable writes the mapping CSV to path.
func saveTable(path string, tbl *mapping.Table) error {
	f, err := os.Create(path) // #nosec G304 -- path from CLI args
	if err != nil {
		return err
	}
	if err := mapping.Save(f, tbl); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// anonymizeFile runs the full forward pipeline on one file. When detect is
// true the NER service extends the mapping before substitution; otherwise
// the mapping file must already exist. Returns the run summary for status
// reporting.
func (a *app) anonymizeFile(ctx context.Context, input, mappingPath, outPath string, detect bool) (status.RunSummary, error) {
	runID := uuid.NewString()
	log := a.log.WithRun(runID)
	a.m.RunsTotal.Add(1)

	run := status.RunSummary{ID: runID, File: input, Mode: "anonymize"}
	fail := func(err error) (status.RunSummary, error) {
		a.m.RunsFailed.Add(1)
		run.Error = err.Error()
		run.Completed = time.Now()
		return run, err
	}

	doc, err := a.readDocument(input)
	if err != nil {
		return fail(err)
	}

	var tbl *mapping.Table
	switch _, statErr := os.Stat(mappingPath); {
	case statErr == nil:
		if tbl, err = loadTable(mappingPath); err != nil {
			return fail(err)
		}
		log.Infof("pipeline", "loaded mapping %s (%d entries)", mappingPath, tbl.Len())
	case detect:
		tbl = mapping.NewTable()
	default:
		return fail(fmt.Errorf("mapping file %s not found (run generate first, or pass --detect)", mappingPath))
	}

	exclusions := a.exclusions()
	if detect {
		occs, err := a.detectEntities(ctx, doc, input)
		if err != nil {
			return fail(err)
		}
		created := a.populateTable(tbl, occs, exclusions)
		log.Infof("pipeline", "detection found %d entities, %d new placeholders", len(occs), created)
	}

	occs := a.eng.FindOccurrences(doc, tbl)
	run.Entities = len(occs)

	replacedBefore := a.m.SpansReplaced.Load()
	out, err := a.eng.Anonymize(ctx, doc, occs, tbl, exclusions, a.engineOpts())
	if err != nil {
		return fail(err)
	}
	run.Replaced = int(a.m.SpansReplaced.Load() - replacedBefore)

	if err := document.Write(outPath, out); err != nil {
		return fail(err)
	}
	if detect {
		if err := saveTable(mappingPath, tbl); err != nil {
			return fail(err)
		}
	}

	run.Completed = time.Now()
	log.Infof("pipeline", "wrote %s", outPath)
	return run, nil
}

// deanonymizeFile runs the reverse pipeline on one file.
func (a *app) deanonymizeFile(input, mappingPath, outPath string) (status.RunSummary, error) {
	runID := uuid.NewString()
	log := a.log.WithRun(runID)
	a.m.RunsTotal.Add(1)

	run := status.RunSummary{ID: runID, File: input, Mode: "deanonymize"}
	fail := func(err error) (status.RunSummary, error) {
		a.m.RunsFailed.Add(1)
		run.Error = err.Error()
		run.Completed = time.Now()
		return run, err
	}

	doc, err := a.readDocument(input)
	if err != nil {
		return fail(err)
	}
	tbl, err := loadTable(mappingPath)
	if err != nil {
		return fail(err)
	}

	out, err := a.eng.Deanonymize(doc, tbl, a.engineOpts())
	if err != nil {
		return fail(err)
	}
	if err := document.Write(outPath, out); err != nil {
		return fail(err)
	}

	run.Completed = time.Now()
	log.Infof("pipeline", "wrote %s", outPath)
	return run, nil
}
