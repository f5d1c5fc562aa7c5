// File: cmd/screenshot.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/observability"
)

var screenshotFlags struct {
	output       string
	fullPage     bool
	waitSelector string
	profileID    string
	timeoutMs    int
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot <url>",
	Short: "Capture a page screenshot and write it to a file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := schemas.ScreenshotParams{
			URL:          args[0],
			FullPage:     screenshotFlags.fullPage,
			WaitSelector: screenshotFlags.waitSelector,
			ProfileID:    screenshotFlags.profileID,
			TimeoutMs:    screenshotFlags.timeoutMs,
		}
		var result schemas.ScreenshotResult
		if err := callEngine(schemas.MethodScreenshot, params, &result); err != nil {
			return err
		}
		if len(result.Data) == 0 {
			return fmt.Errorf("engine returned an empty image")
		}
		if err := os.WriteFile(screenshotFlags.output, result.Data, 0o644); err != nil {
			return err
		}
		observability.GetLogger().Info("Screenshot written",
			zap.String("path", screenshotFlags.output),
			zap.Int("width", result.Width),
			zap.Int("height", result.Height),
		)
		return nil
	},
}

func init() {
	screenshotCmd.Flags().StringVarP(&screenshotFlags.output, "output", "o", "screenshot.png", "output file path")
	screenshotCmd.Flags().BoolVar(&screenshotFlags.fullPage, "full-page", false, "capture the full scroll height")
	screenshotCmd.Flags().StringVar(&screenshotFlags.waitSelector, "wait-for", "", "CSS selector to wait for before capture")
	screenshotCmd.Flags().StringVar(&screenshotFlags.profileID, "profile", "", "browser profile id")
	screenshotCmd.Flags().IntVar(&screenshotFlags.timeoutMs, "timeout-ms", 0, "operation timeout in milliseconds")
	rootCmd.AddCommand(screenshotCmd)
}
