package cli

import (
	"github.com/spf13/cobra"

	"ner-anonymizer/internal/document"
)

var (
	anonMappingPath string
	anonOutputPath  string
	anonDetect      bool
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize <input>",
	Short: "Replace entities in a document with placeholders",
	Long: `Rewrites the input document, replacing every entity from the mapping file
with its placeholder. Markdown structure (code, links, emphasis) is left
intact. With --detect, the NER service is queried first and the mapping file
is extended with any newly found entities.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnonymize,
}

func init() {
	anonymizeCmd.Flags().StringVarP(&anonMappingPath, "mapping", "m", "", "mapping file path (default: <input>_entity_map.csv)")
	anonymizeCmd.Flags().StringVarP(&anonOutputPath, "output", "o", "", "output path (default: <input>_anonymized.<ext>)")
	anonymizeCmd.Flags().BoolVar(&anonDetect, "detect", false, "run entity detection before anonymizing")
	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	a := newApp()
	input := args[0]

	mappingPath := anonMappingPath
	if mappingPath == "" {
		mappingPath = document.DeriveMappingPath(input)
	}
	outPath := anonOutputPath
	if outPath == "" {
		outPath = document.DeriveOutputPath(input, document.AnonymizedSuffix)
	}

	run, err := a.anonymizeFile(cmd.Context(), input, mappingPath, outPath, anonDetect)
	if err != nil {
		return err
	}

	cmd.Printf("Replaced %d of %d occurrences.\n", run.Replaced, run.Entities)
	cmd.Printf("Output written to %s\n", outPath)
	return nil
}
