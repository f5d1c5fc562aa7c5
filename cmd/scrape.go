// File: cmd/scrape.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var scrapeFlags struct {
	format       string
	waitSelector string
	profileID    string
	timeoutMs    int
	pro          bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Fetch a page through a browser profile and print its content.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := schemas.ScrapeParams{
			URL:          args[0],
			Format:       schemas.ContentFormat(scrapeFlags.format),
			WaitSelector: scrapeFlags.waitSelector,
			ProfileID:    scrapeFlags.profileID,
			TimeoutMs:    scrapeFlags.timeoutMs,
		}
		method := schemas.MethodScrape
		if scrapeFlags.pro {
			method = schemas.MethodScrapePro
		}
		var out map[string]any
		if err := callEngine(method, params, &out); err != nil {
			return err
		}
		return printJSON(out)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeFlags.format, "format", "markdown", "output format: markup, text or markdown")
	scrapeCmd.Flags().StringVar(&scrapeFlags.waitSelector, "wait-for", "", "CSS selector to wait for before capture")
	scrapeCmd.Flags().StringVar(&scrapeFlags.profileID, "profile", "", "browser profile id")
	scrapeCmd.Flags().IntVar(&scrapeFlags.timeoutMs, "timeout-ms", 0, "operation timeout in milliseconds")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.pro, "pro", false, "halt and report when a CAPTCHA is detected")
	rootCmd.AddCommand(scrapeCmd)
}
