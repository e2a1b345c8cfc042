package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseDocument parses a page or fragment into a queryable document.
func ParseDocument(page string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "nav": true, "section": true, "table": true, "ul": true, "ol": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\x{00a0}]+`)
	newlineRun = regexp.MustCompile(`\s*\n\s*`)
)

// visibleText renders the text a user would see, with block boundaries and
// <br> turned into newlines and scripts dropped.
func visibleText(nodes ...*html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && n.Data != "br" {
			b.WriteByte('\n')
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	text := spaceRun.ReplaceAllString(b.String(), " ")
	text = newlineRun.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// selectionText is visibleText over a goquery selection.
func selectionText(sel *goquery.Selection) string {
	return visibleText(sel.Nodes...)
}

// flatten collapses all whitespace, including newlines, to single spaces.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
