// File: internal/browser/stealth.go
package browser

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
)

//go:embed evasions.js
var evasionsScript string

// ApplyStealth builds the CDP task sequence that makes the headless browser
// present as a user-operated one, coherent with the profile identity: the
// user-agent, platform, timezone, locale and Accept-Language all agree.
func ApplyStealth(meta schemas.ProfileMetadata, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying stealth persona.",
		zap.String("profile", meta.ID),
		zap.String("user_agent", meta.UserAgent),
	)

	tasks := chromedp.Tasks{
		emulation.SetUserAgentOverride(meta.UserAgent),

		// The evasions script must run before any page script, so it is
		// registered for every new document. Do() returns two values, hence
		// the ActionFunc wrapper.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(evasionsScript).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}

	if meta.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(meta.Timezone))
	}
	if meta.Locale != "" {
		tasks = append(tasks,
			emulation.SetLocaleOverride().WithLocale(meta.Locale),
			network.SetExtraHTTPHeaders(network.Headers{
				"Accept-Language": fmt.Sprintf("%s,en;q=0.9", meta.Locale),
			}),
		)
	}
	return tasks
}
