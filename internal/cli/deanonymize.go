package cli

import (
	"github.com/spf13/cobra"

	"ner-anonymizer/internal/document"
)

var (
	deanonMappingPath string
	deanonOutputPath  string
)

var deanonymizeCmd = &cobra.Command{
	Use:   "deanonymize <input>",
	Short: "Restore original entities from placeholders",
	Long: `Rewrites the input document, expanding every placeholder token back to the
entity recorded in the mapping file. A placeholder with no mapping entry is
an error; no output is written in that case.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeanonymize,
}

func init() {
	deanonymizeCmd.Flags().StringVarP(&deanonMappingPath, "mapping", "m", "", "mapping file path (default: <input>_entity_map.csv)")
	deanonymizeCmd.Flags().StringVarP(&deanonOutputPath, "output", "o", "", "output path (default: <input>_de-anonymized.<ext>)")
	rootCmd.AddCommand(deanonymizeCmd)
}

func runDeanonymize(cmd *cobra.Command, args []string) error {
	a := newApp()
	input := args[0]

	mappingPath := deanonMappingPath
	if mappingPath == "" {
		mappingPath = document.DeriveMappingPath(input)
	}
	outPath := deanonOutputPath
	if outPath == "" {
		outPath = document.DeriveOutputPath(input, document.DeanonymizedSuffix)
	}

	if _, err := a.deanonymizeFile(input, mappingPath, outPath); err != nil {
		return err
	}

	cmd.Printf("Output written to %s\n", outPath)
	return nil
}
