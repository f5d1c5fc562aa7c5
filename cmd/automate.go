// File: cmd/automate.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var automateFlags struct {
	actionsFile string
	url         string
	profileID   string
	timeoutMs   int
	pro         bool
}

var automateCmd = &cobra.Command{
	Use:   "automate",
	Short: "Run an ordered sequence of page actions from a JSON file.",
	Long: `Automate executes actions (click, type, wait, scroll, press, select,
navigate, screenshot) in order against a browser profile, halting on the
first failure.

Actions file format:
  [{"type": "navigate", "url": "https://example.com/login"},
   {"type": "type", "selector": "#user", "value": "alice"},
   {"type": "press", "key": "Enter"},
   {"type": "wait", "durationMs": 500}]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var actions []schemas.Action
		if err := readJSONFile(automateFlags.actionsFile, &actions); err != nil {
			return err
		}

		params := schemas.AutomateParams{
			URL:       automateFlags.url,
			Actions:   actions,
			ProfileID: automateFlags.profileID,
			TimeoutMs: automateFlags.timeoutMs,
		}
		method := schemas.MethodAutomate
		if automateFlags.pro {
			method = schemas.MethodAutomatePro
		}
		var out map[string]any
		if err := callEngine(method, params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	automateCmd.Flags().StringVar(&automateFlags.actionsFile, "actions", "", "path to the JSON action list (required, - for stdin)")
	automateCmd.Flags().StringVar(&automateFlags.url, "url", "", "navigate here before running actions")
	automateCmd.Flags().StringVar(&automateFlags.profileID, "profile", "", "browser profile id")
	automateCmd.Flags().IntVar(&automateFlags.timeoutMs, "timeout-ms", 0, "operation timeout in milliseconds")
	automateCmd.Flags().BoolVar(&automateFlags.pro, "pro", false, "halt and report when a CAPTCHA is detected")
	_ = automateCmd.MarkFlagRequired("actions")
	rootCmd.AddCommand(automateCmd)
}
