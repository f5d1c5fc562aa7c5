// File: internal/crawl/crawler.go
package crawl

import (
	"context"
	"net/url"
	"regexp"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkaelum/harrier/api/schemas"
)

// Scraper is the single page fetch the orchestrator is built on. The browser
// pool satisfies it; tests substitute a fake.
type Scraper interface {
	Scrape(ctx context.Context, params schemas.ScrapeParams) (*schemas.Page, error)
}

// Request describes one crawl invocation.
type Request struct {
	StartURL        string
	MaxPages        int
	MaxDepth        int
	IncludePatterns []string
	ExcludePatterns []string
	ProfileID       string
	// SameOriginOnly restricts the frontier to the start URL's origin.
	// Enabled by default at the engine layer.
	SameOriginOnly bool
}

// queueItem is one frontier entry.
type queueItem struct {
	url   string
	depth int
}

// Crawler drives a breadth-first traversal of a link graph through repeated
// Scrape calls. Traversal is sequential by design; the limiter paces fetches.
type Crawler struct {
	scraper Scraper
	logger  *zap.Logger
	limiter *rate.Limiter
	// OnPage, when set, observes each successfully crawled page (e.g. a
	// content sink). Observer errors do not stop the crawl.
	OnPage func(ctx context.Context, page *schemas.Page) error
}

// New builds a crawler. requestsPerSecond of zero disables pacing.
func New(scraper Scraper, logger *zap.Logger, requestsPerSecond float64) *Crawler {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Crawler{
		scraper: scraper,
		logger:  logger.Named("crawl"),
		limiter: limiter,
	}
}

// Crawl runs the BFS: pop the head, skip visited, scrape, collect, enqueue
// the page's links at depth+1 subject to the filters. Pages that fail to
// scrape are skipped, not retried. Traversal stops when the queue drains or
// maxPages results are collected.
func (c *Crawler) Crawl(ctx context.Context, req Request) ([]*schemas.Page, error) {
	if req.StartURL == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "crawl requires a start url")
	}
	start, err := url.Parse(req.StartURL)
	if err != nil || start.Host == "" {
		return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "invalid start url %q", req.StartURL)
	}
	filter, err := newURLFilter(req.IncludePatterns, req.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 1
	}

	visited := &visitedSet{seen: make(map[string]bool)}
	queue := []queueItem{{url: req.StartURL, depth: 0}}
	var pages []*schemas.Page

	for len(queue) > 0 && len(pages) < req.MaxPages {
		if err := ctx.Err(); err != nil {
			return pages, schemas.NewError(schemas.ErrCodeContextCanceled, "crawl canceled: %v", err)
		}

		item := queue[0]
		queue = queue[1:]

		// Check-and-insert happens in one critical section so concurrent
		// crawls sharing a set can never double-visit a URL.
		if !visited.visit(item.url) {
			continue
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return pages, schemas.NewError(schemas.ErrCodeContextCanceled, "crawl canceled: %v", err)
			}
		}

		page, err := c.scraper.Scrape(ctx, schemas.ScrapeParams{
			URL:       item.url,
			Format:    schemas.FormatMarkup,
			ProfileID: req.ProfileID,
		})
		if err != nil {
			// Failed pages are skipped; the crawl carries on.
			c.logger.Debug("Skipping page that failed to scrape.",
				zap.String("url", item.url), zap.Int("depth", item.depth), zap.Error(err))
			continue
		}
		page.Depth = item.depth
		pages = append(pages, page)

		if c.OnPage != nil {
			if err := c.OnPage(ctx, page); err != nil {
				c.logger.Warn("Page observer failed.", zap.String("url", item.url), zap.Error(err))
			}
		}

		if item.depth >= req.MaxDepth {
			continue
		}
		for _, link := range page.Links {
			target := c.normalize(page.URL, link.URL)
			if target == "" {
				continue
			}
			if req.SameOriginOnly && !sameOrigin(start, target) {
				continue
			}
			if !filter.allow(target) {
				continue
			}
			queue = append(queue, queueItem{url: target, depth: item.depth + 1})
		}
	}

	c.logger.Info("Crawl finished.",
		zap.String("start", req.StartURL),
		zap.Int("pages", len(pages)),
	)
	return pages, nil
}

// normalize resolves a link against its page and strips fragments. Only http
// and https links survive.
func (c *Crawler) normalize(pageURL, link string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

func sameOrigin(start *url.URL, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Host == start.Host
}

// visitedSet is the lock-protected exact-URL dedup set for one crawl.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

// visit marks the URL and reports whether this caller claimed it first.
func (v *visitedSet) visit(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[u] {
		return false
	}
	v.seen[u] = true
	return true
}

// urlFilter applies the include/exclude pattern rules: a URL must match at
// least one include pattern when any are given, and must match no exclude
// pattern. Exclusion always wins.
type urlFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func newURLFilter(include, exclude []string) (*urlFilter, error) {
	f := &urlFilter{}
	for _, p := range include {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "bad include pattern %q: %v", p, err)
		}
		f.include = append(f.include, re)
	}
	for _, p := range exclude {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, schemas.NewError(schemas.ErrCodeInvalidRequest, "bad exclude pattern %q: %v", p, err)
		}
		f.exclude = append(f.exclude, re)
	}
	return f, nil
}

func (f *urlFilter) allow(u string) bool {
	for _, re := range f.exclude {
		if re.MatchString(u) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, re := range f.include {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}
