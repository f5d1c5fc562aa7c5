// File: internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/browser"
	"github.com/xkaelum/harrier/internal/config"
	"github.com/xkaelum/harrier/internal/crawl"
	"github.com/xkaelum/harrier/internal/store"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// BrowserOps is the slice of the browser pool the engine dispatches onto.
// Narrowing to an interface keeps the dispatcher testable without Chrome.
type BrowserOps interface {
	crawl.Scraper
	ScrapePro(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, *schemas.CaptchaChallenge, error)
	Extract(ctx context.Context, params schemas.ExtractParams) (map[string]any, error)
	Screenshot(ctx context.Context, params schemas.ScreenshotParams) (*schemas.ScreenshotResult, error)
	Automate(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, error)
	AutomatePro(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, *schemas.CaptchaChallenge, error)
	ExecuteScript(ctx context.Context, params schemas.ExecuteScriptParams) (any, error)
	GetCaptcha(profileID string) (*schemas.CaptchaChallenge, error)
	ApplyCaptchaSolution(ctx context.Context, profileID string, solution *schemas.CaptchaSolution) (*schemas.CaptchaApplyResult, error)
	ListProfiles() []schemas.ProfileMetadata
	DeleteProfile(id string) error
}

var _ BrowserOps = (*browser.Pool)(nil)

// Engine dispatches RPC methods onto the browser pool and the crawl
// orchestrator. One engine serves many concurrent callers; per-profile
// serialization happens below it, in the pool.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	ops    BrowserOps
	sink   store.Sink
}

// Option customizes engine construction.
type Option func(*Engine)

// WithSink attaches a content sink; every crawled page is written through it.
func WithSink(s store.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithBrowserOps substitutes the browser implementation. Tests use this.
func WithBrowserOps(ops BrowserOps) Option {
	return func(e *Engine) { e.ops = ops }
}

// New builds an engine backed by a lazily-initialized browser pool.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ops == nil {
		e.ops = browser.NewPool(ctx, cfg, logger)
	}
	return e
}

// Pool exposes the underlying pool when the engine owns a real one; nil when
// a test substituted the ops.
func (e *Engine) Pool() *browser.Pool {
	if p, ok := e.ops.(*browser.Pool); ok {
		return p
	}
	return nil
}

// Close tears down the browser pool.
func (e *Engine) Close() {
	if p := e.Pool(); p != nil {
		p.Close()
	}
}

// Dispatch routes one RPC method to its implementation. Unknown methods and
// malformed parameter payloads are invalid requests, never retried upstream.
func (e *Engine) Dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	started := time.Now()
	e.logger.Debug("Dispatching method.", zap.String("method", method))

	var (
		data any
		err  error
	)
	switch method {
	case schemas.MethodTest:
		data = map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}

	case schemas.MethodScrape:
		var params schemas.ScrapeParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.Scrape(ctx, params)
		}

	case schemas.MethodScrapePro:
		var params schemas.ScrapeParams
		if err = decodeParams(raw, &params); err == nil {
			var page *schemas.Page
			var challenge *schemas.CaptchaChallenge
			page, challenge, err = e.ops.ScrapePro(ctx, params)
			if challenge != nil {
				// The interrupt is a success payload, not an error.
				data = challenge
			} else {
				data = page
			}
		}

	case schemas.MethodCrawl:
		var params schemas.CrawlParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.runCrawl(ctx, params)
		}

	case schemas.MethodExtract:
		var params schemas.ExtractParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.Extract(ctx, params)
		}

	case schemas.MethodAutomate:
		var params schemas.AutomateParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.Automate(ctx, params)
		}

	case schemas.MethodAutomatePro:
		var params schemas.AutomateParams
		if err = decodeParams(raw, &params); err == nil {
			var result *schemas.AutomationResult
			var challenge *schemas.CaptchaChallenge
			result, challenge, err = e.ops.AutomatePro(ctx, params)
			if challenge != nil {
				data = challenge
			} else {
				data = result
			}
		}

	case schemas.MethodScreenshot:
		var params schemas.ScreenshotParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.Screenshot(ctx, params)
		}

	case schemas.MethodGetCaptcha:
		var params schemas.CaptchaParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.GetCaptcha(params.ProfileID)
		}

	case schemas.MethodApplyCaptchaSolution:
		var params schemas.CaptchaParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.ApplyCaptchaSolution(ctx, params.ProfileID, params.Solution)
		}

	case schemas.MethodExecuteScript:
		var params schemas.ExecuteScriptParams
		if err = decodeParams(raw, &params); err == nil {
			data, err = e.ops.ExecuteScript(ctx, params)
		}

	case schemas.MethodListProfiles:
		data = e.ops.ListProfiles()

	case schemas.MethodDeleteProfile:
		var params schemas.ProfileParams
		if err = decodeParams(raw, &params); err == nil {
			if params.ProfileID == "" {
				err = schemas.NewError(schemas.ErrCodeInvalidRequest, "delete_profile requires a profileId")
			} else if err = e.ops.DeleteProfile(params.ProfileID); err == nil {
				data = map[string]string{"deleted": params.ProfileID}
			}
		}

	default:
		err = schemas.NewError(schemas.ErrCodeInvalidRequest, "unknown method %q", method)
	}

	e.logger.Debug("Dispatch finished.",
		zap.String("method", method),
		zap.Duration("took", time.Since(started)),
		zap.Bool("ok", err == nil),
	)
	return data, err
}

// runCrawl wires a crawl invocation: defaults from config, sink capture when
// one is attached.
func (e *Engine) runCrawl(ctx context.Context, params schemas.CrawlParams) ([]*schemas.Page, error) {
	maxPages := params.MaxPages
	if maxPages <= 0 {
		maxPages = e.cfg.Crawl.MaxPages
	}
	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = e.cfg.Crawl.MaxDepth
	}

	crawler := crawl.New(e.ops, e.logger, e.cfg.Crawl.RequestsPerSecond)
	if e.sink != nil {
		sessionID := params.SessionID
		crawler.OnPage = func(ctx context.Context, page *schemas.Page) error {
			_, err := e.sink.Store(ctx, sessionID, page.URL, page.Title, page.Content,
				string(page.Format), store.Metadata{
					"depth": strconv.Itoa(page.Depth),
				})
			return err
		}
	}

	return crawler.Crawl(ctx, crawl.Request{
		StartURL:        params.StartURL,
		MaxPages:        maxPages,
		MaxDepth:        maxDepth,
		IncludePatterns: params.IncludePatterns,
		ExcludePatterns: params.ExcludePatterns,
		ProfileID:       params.ProfileID,
		SameOriginOnly:  true,
	})
}

// decodeParams unmarshals a raw params payload, mapping failures to the
// invalid_request code.
func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := jsonAPI.Unmarshal(raw, out); err != nil {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "malformed params: %v", err)
	}
	return nil
}
