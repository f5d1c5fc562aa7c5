// File: cmd/extract.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var extractFlags struct {
	schemaFile string
	markupFile string
	profileID  string
	timeoutMs  int
}

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Extract structured fields from a page using a selector schema.",
	Long: `Extract evaluates a JSON schema of named fields against a live page
(or against raw markup with --markup) and prints the structured result.

Schema file format:
  {"title": {"selector": "h1", "mode": "text"},
   "price": {"selector": ".price", "mode": "attribute", "attribute": "data-value"},
   "rows":  {"selector": "table.results", "mode": "table"}}`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var schema map[string]schemas.ExtractField
		if err := readJSONFile(extractFlags.schemaFile, &schema); err != nil {
			return err
		}

		params := schemas.ExtractParams{
			Schema:    schema,
			ProfileID: extractFlags.profileID,
			TimeoutMs: extractFlags.timeoutMs,
		}
		switch {
		case extractFlags.markupFile != "" && len(args) > 0:
			return fmt.Errorf("provide a URL or --markup, not both")
		case extractFlags.markupFile != "":
			var raw string
			if err := readRawFile(extractFlags.markupFile, &raw); err != nil {
				return err
			}
			params.Markup = raw
		case len(args) == 1:
			params.URL = args[0]
		default:
			return fmt.Errorf("a URL argument or --markup file is required")
		}

		var out map[string]any
		if err := callEngine(schemas.MethodExtract, params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFlags.schemaFile, "schema", "", "path to the JSON field schema (required, - for stdin)")
	extractCmd.Flags().StringVar(&extractFlags.markupFile, "markup", "", "path to raw HTML to extract from instead of a URL")
	extractCmd.Flags().StringVar(&extractFlags.profileID, "profile", "", "browser profile id")
	extractCmd.Flags().IntVar(&extractFlags.timeoutMs, "timeout-ms", 0, "operation timeout in milliseconds")
	_ = extractCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(extractCmd)
}
