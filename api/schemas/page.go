package schemas

import "time"

// -- Page Schemas --

// ContentFormat selects the representation of scraped page content.
type ContentFormat string

const (
	FormatMarkup   ContentFormat = "markup"
	FormatText     ContentFormat = "text"
	FormatMarkdown ContentFormat = "markdown"
)

// Link is a single anchor discovered on a page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Image is a single image reference discovered on a page.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Page is the immutable result of a scrape operation. Ownership transfers to
// the caller; the engine keeps no reference once the response is written.
type Page struct {
	URL        string            `json:"url"`
	Title      string            `json:"title"`
	Markup     string            `json:"markup,omitempty"`
	Content    string            `json:"content"`
	Format     ContentFormat     `json:"format"`
	Links      []Link            `json:"links"`
	Images     []Image           `json:"images"`
	Metadata   map[string]string `json:"metadata"`
	Screenshot []byte            `json:"screenshot,omitempty"`
	FetchedAt  time.Time         `json:"fetchedAt"`
	// Depth is set by the crawl orchestrator; zero for direct scrapes.
	Depth int `json:"depth"`
}

// ScreenshotResult carries a raster capture and its decoded dimensions.
type ScreenshotResult struct {
	Data   []byte `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
