// File: internal/engine/engine_test.go
package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/config"
	"github.com/xkaelum/harrier/internal/store"
)

// fakeOps satisfies BrowserOps without a browser. Each hook defaults to a
// benign response so tests only wire what they assert on.
type fakeOps struct {
	scrapeFn    func(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, error)
	scrapeProFn func(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, *schemas.CaptchaChallenge, error)
	automateFn  func(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, error)

	deleted []string
}

func (f *fakeOps) Scrape(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, error) {
	if f.scrapeFn != nil {
		return f.scrapeFn(ctx, params)
	}
	return &schemas.Page{URL: params.URL, Title: "stub"}, nil
}

func (f *fakeOps) ScrapePro(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, *schemas.CaptchaChallenge, error) {
	if f.scrapeProFn != nil {
		return f.scrapeProFn(ctx, params)
	}
	page, err := f.Scrape(ctx, params)
	return page, nil, err
}

func (f *fakeOps) Extract(context.Context, schemas.ExtractParams) (map[string]any, error) {
	return map[string]any{"field": "value"}, nil
}

func (f *fakeOps) Screenshot(context.Context, schemas.ScreenshotParams) (*schemas.ScreenshotResult, error) {
	return &schemas.ScreenshotResult{Data: []byte{0x89}, Width: 1, Height: 1}, nil
}

func (f *fakeOps) Automate(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, error) {
	if f.automateFn != nil {
		return f.automateFn(ctx, params)
	}
	return &schemas.AutomationResult{Completed: true}, nil
}

func (f *fakeOps) AutomatePro(ctx context.Context, params schemas.AutomateParams) (*schemas.AutomationResult, *schemas.CaptchaChallenge, error) {
	result, err := f.Automate(ctx, params)
	return result, nil, err
}

func (f *fakeOps) ExecuteScript(context.Context, schemas.ExecuteScriptParams) (any, error) {
	return "done", nil
}

func (f *fakeOps) GetCaptcha(string) (*schemas.CaptchaChallenge, error) {
	return nil, schemas.NewError(schemas.ErrCodeNotFound, "no pending challenge")
}

func (f *fakeOps) ApplyCaptchaSolution(context.Context, string, *schemas.CaptchaSolution) (*schemas.CaptchaApplyResult, error) {
	return &schemas.CaptchaApplyResult{State: schemas.CaptchaResolved}, nil
}

func (f *fakeOps) ListProfiles() []schemas.ProfileMetadata {
	return []schemas.ProfileMetadata{{ID: "default"}}
}

func (f *fakeOps) DeleteProfile(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestEngine(t *testing.T, ops BrowserOps, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithBrowserOps(ops)}, opts...)
	return New(context.Background(), config.Default(), zaptest.NewLogger(t), opts...)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("test method answers without touching the browser", func(t *testing.T) {
		e := newTestEngine(t, &fakeOps{})
		data, err := e.Dispatch(ctx, schemas.MethodTest, nil)
		require.NoError(t, err)
		payload, ok := data.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "ok", payload["status"])
	})

	t.Run("unknown method is an invalid request", func(t *testing.T) {
		e := newTestEngine(t, &fakeOps{})
		_, err := e.Dispatch(ctx, "walk_the_dog", nil)
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	})

	t.Run("malformed params are an invalid request", func(t *testing.T) {
		e := newTestEngine(t, &fakeOps{})
		_, err := e.Dispatch(ctx, schemas.MethodScrape, json.RawMessage(`{"url": 42}`))
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	})

	t.Run("scrape routes params through", func(t *testing.T) {
		var gotURL string
		e := newTestEngine(t, &fakeOps{
			scrapeFn: func(_ context.Context, params schemas.ScrapeParams) (*schemas.Page, error) {
				gotURL = params.URL
				return &schemas.Page{URL: params.URL, Title: "Example"}, nil
			},
		})
		data, err := e.Dispatch(ctx, schemas.MethodScrape, json.RawMessage(`{"url":"https://example.com"}`))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", gotURL)
		assert.Equal(t, "Example", data.(*schemas.Page).Title)
	})

	t.Run("scrape_pro returns the challenge as the success payload", func(t *testing.T) {
		challenge := &schemas.CaptchaChallenge{
			Detected: true,
			Type:     "recaptcha_v2",
			State:    schemas.CaptchaDetected,
			PageURL:  "https://guarded.example.com",
		}
		e := newTestEngine(t, &fakeOps{
			scrapeProFn: func(context.Context, schemas.ScrapeParams) (*schemas.Page, *schemas.CaptchaChallenge, error) {
				return nil, challenge, nil
			},
		})
		data, err := e.Dispatch(ctx, schemas.MethodScrapePro, json.RawMessage(`{"url":"https://guarded.example.com"}`))
		require.NoError(t, err, "a detected challenge is an interrupt, never an error")
		assert.Same(t, challenge, data)
	})

	t.Run("get_captcha surfaces not_found when nothing is pending", func(t *testing.T) {
		e := newTestEngine(t, &fakeOps{})
		_, err := e.Dispatch(ctx, schemas.MethodGetCaptcha, json.RawMessage(`{"profileId":"default"}`))
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeNotFound, schemas.CodeOf(err))
	})

	t.Run("list_profiles reports known identities", func(t *testing.T) {
		e := newTestEngine(t, &fakeOps{})
		data, err := e.Dispatch(ctx, schemas.MethodListProfiles, nil)
		require.NoError(t, err)
		profiles := data.([]schemas.ProfileMetadata)
		require.Len(t, profiles, 1)
		assert.Equal(t, "default", profiles[0].ID)
	})

	t.Run("delete_profile routes to the pool", func(t *testing.T) {
		ops := &fakeOps{}
		e := newTestEngine(t, ops)
		data, err := e.Dispatch(ctx, schemas.MethodDeleteProfile, json.RawMessage(`{"profileId":"stale"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"deleted": "stale"}, data)
		assert.Equal(t, []string{"stale"}, ops.deleted)
	})

	t.Run("delete_profile without an id is an invalid request", func(t *testing.T) {
		ops := &fakeOps{}
		e := newTestEngine(t, ops)
		_, err := e.Dispatch(ctx, schemas.MethodDeleteProfile, json.RawMessage(`{}`))
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
		assert.Empty(t, ops.deleted)
	})
}

func TestDispatchCrawlStoresPages(t *testing.T) {
	// Two-page site: the start links to /about, nothing else.
	site := map[string]*schemas.Page{
		"https://example.com": {
			URL:     "https://example.com",
			Title:   "Home",
			Content: "home content",
			Format:  schemas.FormatMarkup,
			Links:   []schemas.Link{{URL: "/about"}},
		},
		"https://example.com/about": {
			URL:     "https://example.com/about",
			Title:   "About",
			Content: "about content",
			Format:  schemas.FormatMarkup,
		},
	}
	ops := &fakeOps{
		scrapeFn: func(_ context.Context, params schemas.ScrapeParams) (*schemas.Page, error) {
			page, ok := site[params.URL]
			if !ok {
				return nil, schemas.NewError(schemas.ErrCodeNavigation, "no such page")
			}
			clone := *page
			return &clone, nil
		},
	}

	sink := store.NewMemorySink()
	e := newTestEngine(t, ops, WithSink(sink))

	data, err := e.Dispatch(context.Background(), schemas.MethodCrawl,
		json.RawMessage(`{"startUrl":"https://example.com","maxPages":5,"maxDepth":2,"sessionId":"sess-1"}`))
	require.NoError(t, err)

	pages := data.([]*schemas.Page)
	require.Len(t, pages, 2)
	assert.Equal(t, 0, pages[0].Depth)
	assert.Equal(t, 1, pages[1].Depth)

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "sess-1", records[0].SessionID)
	assert.Equal(t, "https://example.com/about", records[1].URL)
	assert.Equal(t, "1", records[1].Meta["depth"])
}
