// File: internal/browser/pagedata.go
package browser

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// pageData is everything parsed out of a page's markup in one pass.
type pageData struct {
	Title    string
	Links    []pageLink
	Images   []pageImage
	Metadata map[string]string
	Body     *html.Node
}

type pageLink struct {
	URL  string
	Text string
}

type pageImage struct {
	URL string
	Alt string
}

// parsePageData walks the markup once, collecting the title, anchors, images
// and document meta tags. Relative URLs are resolved against base; references
// that cannot be resolved are kept verbatim rather than dropped.
func parsePageData(markup, base string) (*pageData, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	baseURL, _ := url.Parse(base)
	data := &pageData{Metadata: make(map[string]string)}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if data.Title == "" {
					data.Title = strings.TrimSpace(textContent(n))
				}
			case "a":
				if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "javascript:") {
					data.Links = append(data.Links, pageLink{
						URL:  resolveRef(baseURL, href),
						Text: strings.TrimSpace(textContent(n)),
					})
				}
			case "img":
				if src := attr(n, "src"); src != "" {
					data.Images = append(data.Images, pageImage{
						URL: resolveRef(baseURL, src),
						Alt: attr(n, "alt"),
					})
				}
			case "meta":
				name := attr(n, "name")
				if name == "" {
					name = attr(n, "property")
				}
				if content := attr(n, "content"); name != "" && content != "" {
					data.Metadata[name] = content
				}
			case "body":
				if data.Body == nil {
					data.Body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return data, nil
}

// resolveRef resolves ref against base, stripping fragments. A nil base or an
// unparsable ref passes through untouched.
func resolveRef(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	parsed.Fragment = ""
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates all text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
