package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ner-anonymizer/internal/document"
	"ner-anonymizer/internal/mapping"
)

var generateMappingOut string

var generateCmd = &cobra.Command{
	Use:   "generate <input>",
	Short: "Detect entities and generate a mapping file",
	Long: `Runs NER over the input document and writes a placeholder mapping CSV.
If a mapping file already exists, newly detected entities are appended to it;
existing placeholders are never renumbered.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateMappingOut, "mapping", "m", "", "mapping file path (default: <input>_entity_map.csv)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a := newApp()
	input := args[0]
	mappingPath := generateMappingOut
	if mappingPath == "" {
		mappingPath = document.DeriveMappingPath(input)
	}

	doc, err := a.readDocument(input)
	if err != nil {
		return err
	}

	tbl := mapping.NewTable()
	if _, err := os.Stat(mappingPath); err == nil {
		if tbl, err = loadTable(mappingPath); err != nil {
			return err
		}
		a.log.Infof("generate", "extending existing mapping %s (%d entries)", mappingPath, tbl.Len())
	}

	occs, err := a.detectEntities(cmd.Context(), doc, input)
	if err != nil {
		return err
	}
	created := a.populateTable(tbl, occs, a.exclusions())

	if err := saveTable(mappingPath, tbl); err != nil {
		return err
	}

	cmd.Printf("Detected %d entities, %d new placeholders.\n", len(occs), created)
	cmd.Printf("Mapping written to %s\n", mappingPath)
	if created > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Review the mapping before anonymizing; edits to entity names are picked up automatically.")
	}
	return nil
}
