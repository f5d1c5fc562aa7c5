// File: internal/browser/scrape.go
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
)

// Scrape navigates the profile's context to the requested URL, waits for the
// page to be ready, and extracts the title, markup, links, images, metadata
// and the content in the requested format.
func (pl *Pool) Scrape(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, error) {
	if params.URL == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "scrape requires a url")
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
	return pl.capturePage(ctx, prof, params.Format)
}

// ScrapePro is the CAPTCHA-aware variant: after navigation it runs challenge
// detection and, when a challenge is present, returns the challenge instead of
// a page. The challenge is an interrupt outcome, not an error.
func (pl *Pool) ScrapePro(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, *schemas.CaptchaChallenge, error) {
	if params.URL == "" {
		return nil, nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "scrape requires a url")
	}

	ctx, cancel := pl.opContext(ctx, params.TimeoutMs)
	defer cancel()

	prof, err := pl.GetOrCreate(params.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	if err := pl.navigate(ctx, prof, params.URL, params.WaitSelector); err != nil {
		return nil, nil, err
	}

	challenge, err := pl.DetectCaptcha(ctx, prof)
	if err != nil {
		pl.logger.Debug("CAPTCHA detection failed; continuing with scrape.", zap.Error(err))
	}
	if challenge != nil {
		return nil, challenge, nil
	}

	page, err := pl.capturePage(ctx, prof, params.Format)
	return page, nil, err
}

// navigate loads the URL and blocks until the wait selector is visible, or
// the document body is ready when no selector is given.
func (pl *Pool) navigate(ctx context.Context, prof *Profile, url, waitSelector string) error {
	tasks := chromedp.Tasks{chromedp.Navigate(url)}
	if waitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if wait := pl.cfg.Browser.StabilizeWait; wait > 0 {
		tasks = append(tasks, chromedp.Sleep(wait))
	}

	if err := prof.Run(ctx, tasks...); err != nil {
		if coded, ok := err.(*schemas.Error); ok {
			return coded
		}
		return schemas.NewError(schemas.ErrCodeNavigation, "navigation to %s failed: %v", url, err)
	}
	// A fresh document voids any previous CAPTCHA negotiation.
	prof.gate.ResetOnNavigation()
	return nil
}

// capturePage pulls the current document state out of the browser and shapes
// it into a Page in the requested content format.
func (pl *Pool) capturePage(ctx context.Context, prof *Profile, format schemas.ContentFormat) (*schemas.Page, error) {
	if format == "" {
		format = schemas.FormatMarkup
	}

	var markup, location string
	if err := prof.Run(ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	); err != nil {
		return nil, err
	}

	data, err := parsePageData(markup, location)
	if err != nil {
		return nil, schemas.NewError(schemas.ErrCodeInternal, "failed to parse page markup: %v", err)
	}

	page := &schemas.Page{
		URL:       location,
		Title:     data.Title,
		Markup:    markup,
		Format:    format,
		Metadata:  data.Metadata,
		FetchedAt: time.Now().UTC(),
	}
	for _, l := range data.Links {
		page.Links = append(page.Links, schemas.Link{URL: l.URL, Text: l.Text})
	}
	for _, img := range data.Images {
		page.Images = append(page.Images, schemas.Image{URL: img.URL, Alt: img.Alt})
	}

	switch format {
	case schemas.FormatMarkup:
		page.Content = markup
	case schemas.FormatText:
		var text string
		if err := prof.Run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
			return nil, err
		}
		page.Content = text
	case schemas.FormatMarkdown:
		page.Content = renderMarkdown(data.Body)
	default:
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown content format %q", format)
	}
	return page, nil
}

// opContext derives the per-operation deadline from the caller's timeout or
// the configured default.
func (pl *Pool) opContext(ctx context.Context, timeoutMs int) (context.Context, context.CancelFunc) {
	timeout := pl.cfg.Engine.DefaultTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}
