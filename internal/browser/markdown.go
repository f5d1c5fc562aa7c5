// File: internal/browser/markdown.go
package browser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// renderMarkdown converts a parsed element tree into a markdown rendering.
// Recognized block and inline tags map to their markdown equivalents; anything
// else recurses into its children so no text is lost.
func renderMarkdown(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	renderNode(&sb, n, mdState{})
	out := strings.TrimSpace(sb.String())
	return blankRuns.ReplaceAllString(out, "\n\n")
}

// mdState carries list context down the recursion.
type mdState struct {
	listDepth int
	ordered   bool
}

func renderNode(sb *strings.Builder, n *html.Node, st mdState) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(collapseSpace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		// fallthrough to the tag switch below
	default:
		renderChildren(sb, n, st)
		return
	}

	switch n.Data {
	case "script", "style", "noscript", "head", "template", "iframe":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		sb.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		renderChildren(sb, n, st)
		sb.WriteString("\n\n")
	case "p", "div", "section", "article", "header", "footer", "main":
		sb.WriteString("\n")
		renderChildren(sb, n, st)
		sb.WriteString("\n")
	case "br":
		sb.WriteString("\n")
	case "hr":
		sb.WriteString("\n\n---\n\n")
	case "a":
		href := attr(n, "href")
		var inner strings.Builder
		renderChildren(&inner, n, st)
		text := strings.TrimSpace(inner.String())
		if text == "" {
			text = href
		}
		if href == "" {
			sb.WriteString(text)
		} else {
			fmt.Fprintf(sb, "[%s](%s)", text, href)
		}
	case "img":
		fmt.Fprintf(sb, "![%s](%s)", attr(n, "alt"), attr(n, "src"))
	case "strong", "b":
		sb.WriteString("**")
		renderChildren(sb, n, st)
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("*")
		renderChildren(sb, n, st)
		sb.WriteString("*")
	case "code":
		// Inline code; block code is handled under pre.
		sb.WriteString("`")
		sb.WriteString(strings.TrimSpace(textContent(n)))
		sb.WriteString("`")
	case "pre":
		sb.WriteString("\n\n```\n")
		sb.WriteString(strings.Trim(textContent(n), "\n"))
		sb.WriteString("\n```\n\n")
	case "blockquote":
		var inner strings.Builder
		renderChildren(&inner, n, st)
		sb.WriteString("\n")
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			sb.WriteString("> " + strings.TrimSpace(line) + "\n")
		}
		sb.WriteString("\n")
	case "ul":
		sb.WriteString("\n")
		renderChildren(sb, n, mdState{listDepth: st.listDepth + 1, ordered: false})
		sb.WriteString("\n")
	case "ol":
		sb.WriteString("\n")
		renderChildren(sb, n, mdState{listDepth: st.listDepth + 1, ordered: true})
		sb.WriteString("\n")
	case "li":
		indent := strings.Repeat("  ", max(st.listDepth-1, 0))
		if st.ordered {
			fmt.Fprintf(sb, "%s%d. ", indent, countPrecedingItems(n)+1)
		} else {
			sb.WriteString(indent + "- ")
		}
		renderChildren(sb, n, st)
		sb.WriteString("\n")
	case "table":
		renderTable(sb, n)
	case "tr", "td", "th", "thead", "tbody":
		// reached only outside a table element; recurse plainly
		renderChildren(sb, n, st)
	default:
		renderChildren(sb, n, st)
	}
}

func renderChildren(sb *strings.Builder, n *html.Node, st mdState) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c, st)
	}
}

// renderTable emits a pipe table. The header row comes from th cells, or the
// first row when the table has none.
func renderTable(sb *strings.Builder, table *html.Node) {
	var rows [][]string
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, strings.TrimSpace(collapseSpace(textContent(c))))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(table)
	if len(rows) == 0 {
		return
	}

	sb.WriteString("\n\n")
	sb.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(rows[0])) + "\n")
	for _, row := range rows[1:] {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	sb.WriteString("\n")
}

// countPrecedingItems numbers an ordered list item by its li siblings.
func countPrecedingItems(li *html.Node) int {
	count := 0
	for s := li.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == "li" {
			count++
		}
	}
	return count
}

// collapseSpace squeezes runs of whitespace into single spaces. Boundary
// whitespace collapses to one space so inline elements stay separated.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
