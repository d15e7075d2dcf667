// Package snapshot produces page snapshots: title, URL, meta description,
// selection and readable body text of a tab.
package snapshot

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/pagechat/pkg/composer"
	"github.com/entrhq/pagechat/pkg/types"
)

var (
	trailingSpace = regexp.MustCompile(`\s+\n`)
	leadingSpace  = regexp.MustCompile(`\n[ \t]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
	inlineSpace   = regexp.MustCompile(`\s+`)
)

// FromHTML extracts a snapshot from a page's HTML. Body text comes from the
// first <main> or <article>, else <body>, without navigation chrome, scripts
// or hidden elements. A document that cannot be parsed yields a snapshot
// holding only the URL.
func FromHTML(rawHTML, pageURL, selection string) *types.PageSnapshot {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return &types.PageSnapshot{URL: pageURL}
	}

	snap := &types.PageSnapshot{
		Title:     extractTitle(doc),
		URL:       pageURL,
		Meta:      extractMetaDescription(doc),
		Selection: strings.TrimSpace(selection),
	}
	if root := primaryNode(doc); root != nil {
		var b strings.Builder
		writeText(root, &b, false)
		snap.Text = NormalizeText(b.String())
	}
	return Normalize(snap)
}

// Normalize clamps the free-form fields of snap in place and returns it.
func Normalize(snap *types.PageSnapshot) *types.PageSnapshot {
	if snap == nil {
		return nil
	}
	snap.Selection = composer.Clamp(snap.Selection, composer.DefaultClampChars)
	snap.Meta = composer.Clamp(snap.Meta, composer.DefaultClampChars)
	return snap
}

// NormalizeText collapses whitespace before line breaks, squeezes runs of
// blank lines and trims the result.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = leadingSpace.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// primaryNode returns the first <main> or <article> in document order, or <body>.
func primaryNode(doc *html.Node) *html.Node {
	if n := findElement(doc, func(n *html.Node) bool { return n.Data == "main" || n.Data == "article" }); n != nil {
		return n
	}
	return findElement(doc, func(n *html.Node) bool { return n.Data == "body" })
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

// writeText renders the text of n roughly the way a browser lays it out:
// block elements start new lines, inline whitespace collapses.
func writeText(n *html.Node, b *strings.Builder, pre bool) {
	switch n.Type {
	case html.TextNode:
		if pre {
			b.WriteString(n.Data)
			return
		}
		b.WriteString(inlineSpace.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) || isHidden(n) {
			return
		}
		if tag == "br" {
			b.WriteString("\n")
			return
		}
		block := isBlockElement(tag)
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(c, b, pre || tag == "pre")
		}
		if block {
			b.WriteString("\n")
		} else if tag == "td" || tag == "th" {
			b.WriteString("\t")
		}
		return
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b, pre)
	}
}

// isSkippedElement returns true for elements whose text is never part of the page body.
func isSkippedElement(tagName string) bool {
	switch tagName {
	case "script", "style", "nav", "header", "footer", "aside", "noscript",
		"template", "iframe", "svg", "head":
		return true
	}
	return false
}

// isHidden reports statically hidden elements.
func isHidden(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "true") {
				return true
			}
		case "style":
			style := strings.ToLower(strings.Join(strings.Fields(attr.Val), ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// isBlockElement returns true for elements rendered on their own lines.
func isBlockElement(tagName string) bool {
	switch tagName {
	case "div", "p", "section", "article", "main", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd", "table", "tr", "form", "fieldset",
		"blockquote", "pre", "figure", "figcaption", "hr", "address", "details", "summary":
		return true
	}
	return false
}

// extractTitle extracts the page title from the document
func extractTitle(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

// extractMetaDescription returns the first meta description or og:description.
func extractMetaDescription(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool {
		if n.Data != "meta" {
			return false
		}
		for _, attr := range n.Attr {
			if (attr.Key == "name" && strings.EqualFold(attr.Val, "description")) ||
				(attr.Key == "property" && attr.Val == "og:description") {
				return true
			}
		}
		return false
	})
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == "content" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}
