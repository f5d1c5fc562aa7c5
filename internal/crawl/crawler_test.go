// File: internal/crawl/crawler_test.go
package crawl

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkaelum/harrier/api/schemas"
)

// fakeScraper serves pages from an in-memory site map and records fetch order.
type fakeScraper struct {
	mu      sync.Mutex
	site    map[string]*schemas.Page
	fetched []string
}

func (f *fakeScraper) Scrape(_ context.Context, params schemas.ScrapeParams) (*schemas.Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, params.URL)
	f.mu.Unlock()

	page, ok := f.site[params.URL]
	if !ok {
		return nil, schemas.NewError(schemas.ErrCodeNavigation, "failed to load %s", params.URL)
	}
	clone := *page
	return &clone, nil
}

func page(url string, links ...string) *schemas.Page {
	p := &schemas.Page{URL: url, Title: url, Format: schemas.FormatMarkup}
	for _, l := range links {
		p.Links = append(p.Links, schemas.Link{URL: l})
	}
	return p
}

func newTestCrawler(t *testing.T, site map[string]*schemas.Page) (*Crawler, *fakeScraper) {
	t.Helper()
	scraper := &fakeScraper{site: site}
	return New(scraper, zaptest.NewLogger(t), 0), scraper
}

func TestCrawlBreadthFirst(t *testing.T) {
	// Depth 0: root. Depth 1: a, b. Depth 2: deep (reachable from a).
	c, scraper := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/":     page("https://site.test/", "/a", "/b"),
		"https://site.test/a":    page("https://site.test/a", "/deep"),
		"https://site.test/b":    page("https://site.test/b"),
		"https://site.test/deep": page("https://site.test/deep"),
	})

	pages, err := c.Crawl(context.Background(), Request{
		StartURL:       "https://site.test/",
		MaxPages:       10,
		MaxDepth:       2,
		SameOriginOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, pages, 4)

	// Breadth order: the whole of depth 1 before anything at depth 2.
	assert.Equal(t, []string{
		"https://site.test/",
		"https://site.test/a",
		"https://site.test/b",
		"https://site.test/deep",
	}, scraper.fetched)
	assert.Equal(t, 0, pages[0].Depth)
	assert.Equal(t, 1, pages[1].Depth)
	assert.Equal(t, 2, pages[3].Depth)
}

func TestCrawlMaxPages(t *testing.T) {
	c, _ := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/":  page("https://site.test/", "/a", "/b", "/c"),
		"https://site.test/a": page("https://site.test/a"),
		"https://site.test/b": page("https://site.test/b"),
		"https://site.test/c": page("https://site.test/c"),
	})

	pages, err := c.Crawl(context.Background(), Request{
		StartURL: "https://site.test/",
		MaxPages: 2,
		MaxDepth: 3,
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestCrawlMaxDepthStopsEnqueueing(t *testing.T) {
	c, scraper := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/":  page("https://site.test/", "/a"),
		"https://site.test/a": page("https://site.test/a", "/b"),
		"https://site.test/b": page("https://site.test/b"),
	})

	pages, err := c.Crawl(context.Background(), Request{
		StartURL: "https://site.test/",
		MaxPages: 10,
		MaxDepth: 1,
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.NotContains(t, scraper.fetched, "https://site.test/b")
}

func TestCrawlDeduplicatesURLs(t *testing.T) {
	// Every page links back to the root and to each other.
	c, scraper := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/":  page("https://site.test/", "/a", "/"),
		"https://site.test/a": page("https://site.test/a", "/", "/a", "/a#section"),
	})

	pages, err := c.Crawl(context.Background(), Request{
		StartURL: "https://site.test/",
		MaxPages: 10,
		MaxDepth: 5,
	})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Len(t, scraper.fetched, 2, "fragments and repeats must not refetch")
}

func TestCrawlSkipsFailedPages(t *testing.T) {
	c, _ := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/":  page("https://site.test/", "/broken", "/a"),
		"https://site.test/a": page("https://site.test/a"),
	})

	pages, err := c.Crawl(context.Background(), Request{
		StartURL: "https://site.test/",
		MaxPages: 10,
		MaxDepth: 1,
	})
	require.NoError(t, err, "a failed page is skipped, not fatal")
	require.Len(t, pages, 2)
	assert.Equal(t, "https://site.test/a", pages[1].URL)
}

func TestCrawlSameOrigin(t *testing.T) {
	c, scraper := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/": page("https://site.test/", "https://elsewhere.test/x", "/a"),
		"https://site.test/a": page("https://site.test/a"),
	})

	_, err := c.Crawl(context.Background(), Request{
		StartURL:       "https://site.test/",
		MaxPages:       10,
		MaxDepth:       2,
		SameOriginOnly: true,
	})
	require.NoError(t, err)
	assert.NotContains(t, scraper.fetched, "https://elsewhere.test/x")
}

func TestCrawlPatternFilters(t *testing.T) {
	site := map[string]*schemas.Page{
		"https://site.test/":           page("https://site.test/", "/docs/intro", "/docs/admin", "/blog/post"),
		"https://site.test/docs/intro": page("https://site.test/docs/intro"),
		"https://site.test/docs/admin": page("https://site.test/docs/admin"),
		"https://site.test/blog/post":  page("https://site.test/blog/post"),
	}

	t.Run("include restricts the frontier", func(t *testing.T) {
		c, scraper := newTestCrawler(t, site)
		_, err := c.Crawl(context.Background(), Request{
			StartURL:        "https://site.test/",
			MaxPages:        10,
			MaxDepth:        1,
			IncludePatterns: []string{`/docs/`},
		})
		require.NoError(t, err)
		assert.Contains(t, scraper.fetched, "https://site.test/docs/intro")
		assert.NotContains(t, scraper.fetched, "https://site.test/blog/post")
	})

	t.Run("exclude beats include", func(t *testing.T) {
		c, scraper := newTestCrawler(t, site)
		_, err := c.Crawl(context.Background(), Request{
			StartURL:        "https://site.test/",
			MaxPages:        10,
			MaxDepth:        1,
			IncludePatterns: []string{`/docs/`},
			ExcludePatterns: []string{`admin`},
		})
		require.NoError(t, err)
		assert.Contains(t, scraper.fetched, "https://site.test/docs/intro")
		assert.NotContains(t, scraper.fetched, "https://site.test/docs/admin")
	})

	t.Run("bad pattern is an invalid request", func(t *testing.T) {
		c, _ := newTestCrawler(t, site)
		_, err := c.Crawl(context.Background(), Request{
			StartURL:        "https://site.test/",
			IncludePatterns: []string{`([`},
		})
		require.Error(t, err)
		assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
	})
}

func TestCrawlInvalidStartURL(t *testing.T) {
	c, _ := newTestCrawler(t, nil)

	_, err := c.Crawl(context.Background(), Request{StartURL: ""})
	assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))

	_, err = c.Crawl(context.Background(), Request{StartURL: "not a url"})
	assert.Equal(t, schemas.ErrCodeInvalidRequest, schemas.CodeOf(err))
}

func TestCrawlCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestCrawler(t, map[string]*schemas.Page{
		"https://site.test/": page("https://site.test/"),
	})
	_, err := c.Crawl(ctx, Request{StartURL: "https://site.test/", MaxPages: 5})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrCodeContextCanceled, schemas.CodeOf(err))
}

func TestVisitedSet(t *testing.T) {
	v := &visitedSet{seen: make(map[string]bool)}

	const workers = 16
	var wg sync.WaitGroup
	wins := 0
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.visit("https://site.test/contended") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one caller may claim a URL")
}
