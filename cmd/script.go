// File: cmd/script.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var scriptFlags struct {
	file      string
	profileID string
	timeoutMs int
}

var scriptCmd = &cobra.Command{
	Use:   "script [expression]",
	Short: "Evaluate a JavaScript expression in a profile's page and print the result.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var source string
		switch {
		case scriptFlags.file != "":
			if err := readRawFile(scriptFlags.file, &source); err != nil {
				return err
			}
		case len(args) == 1:
			source = args[0]
		default:
			return cmd.Usage()
		}

		params := schemas.ExecuteScriptParams{
			Script:    source,
			ProfileID: scriptFlags.profileID,
			TimeoutMs: scriptFlags.timeoutMs,
		}
		var out any
		if err := callEngine(schemas.MethodExecuteScript, params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	scriptCmd.Flags().StringVarP(&scriptFlags.file, "file", "f", "", "read the script from a file (- for stdin)")
	scriptCmd.Flags().StringVar(&scriptFlags.profileID, "profile", "", "browser profile id")
	scriptCmd.Flags().IntVar(&scriptFlags.timeoutMs, "timeout-ms", 0, "operation timeout in milliseconds")
	rootCmd.AddCommand(scriptCmd)
}
