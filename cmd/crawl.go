// File: cmd/crawl.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkaelum/harrier/api/schemas"
)

var crawlFlags struct {
	maxPages  int
	maxDepth  int
	include   []string
	exclude   []string
	profileID string
	sessionID string
}

var crawlCmd = &cobra.Command{
	Use:   "crawl <start-url>",
	Short: "Breadth-first crawl from a start URL, same origin by default.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := schemas.CrawlParams{
			StartURL:        args[0],
			MaxPages:        crawlFlags.maxPages,
			MaxDepth:        crawlFlags.maxDepth,
			IncludePatterns: crawlFlags.include,
			ExcludePatterns: crawlFlags.exclude,
			ProfileID:       crawlFlags.profileID,
			SessionID:       crawlFlags.sessionID,
		}
		var pages []*schemas.Page
		if err := callEngine(schemas.MethodCrawl, params, &pages); err != nil {
			return err
		}
		return printJSON(pages)
	},
}

func init() {
	crawlCmd.Flags().IntVar(&crawlFlags.maxPages, "max-pages", 0, "page budget (0 uses config default)")
	crawlCmd.Flags().IntVar(&crawlFlags.maxDepth, "max-depth", 0, "link depth limit (0 uses config default)")
	crawlCmd.Flags().StringArrayVar(&crawlFlags.include, "include", nil, "regexp a URL must match to be crawled (repeatable)")
	crawlCmd.Flags().StringArrayVar(&crawlFlags.exclude, "exclude", nil, "regexp that excludes a URL (repeatable, wins over include)")
	crawlCmd.Flags().StringVar(&crawlFlags.profileID, "profile", "", "browser profile id")
	crawlCmd.Flags().StringVar(&crawlFlags.sessionID, "session", "", "session id attached to stored page content")
	rootCmd.AddCommand(crawlCmd)
}
