// File: internal/browser/screenshot.go
package browser

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chromedp/chromedp"

	"github.com/xkaelum/harrier/api/schemas"
)

const screenshotQuality = 90

// Screenshot navigates with the same contract as Scrape, then captures a
// raster image of the viewport or the full page.
func (pl *Pool) Screenshot(ctx context.Context, params schemas.ScreenshotParams) (*schemas.ScreenshotResult, error) {
	if params.URL == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "screenshot requires a url")
	}

	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := pl.navigate(ctx, prof, params.URL, params.WaitSelector); err != nil {
		return nil, err
	}
	return pl.capture(ctx, prof, params.FullPage)
}

// capture grabs the raster for an already-navigated profile.
func (pl *Pool) capture(ctx context.Context, prof *Profile, fullPage bool) (*schemas.ScreenshotResult, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, screenshotQuality)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := prof.Run(ctx, action); err != nil {
		return nil, err
	}

	result := &schemas.ScreenshotResult{Data: buf}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf)); err == nil {
		result.Width = cfg.Width
		result.Height = cfg.Height
	}
	return result, nil
}
