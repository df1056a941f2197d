// Package htmltext reduces an HTML page to line-delimited plain text.
//
// Block-level elements and <br> start new lines, table cells on one row are
// joined by spaces, and script-like elements are dropped. Whitespace inside
// text runs is collapsed the way a browser renders it, so line breaks in the
// output follow the page structure rather than the markup's formatting.
package htmltext

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var skipTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
	"canvas":   true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "caption": true, "dd": true, "details": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "tbody": true, "tfoot": true, "thead": true,
	"tr": true, "ul": true,
}

var cellTags = map[string]bool{
	"td": true,
	"th": true,
}

// FromHTML converts the whole document read from r.
func FromHTML(r io.Reader) (string, error) {
	return FromHTMLScoped(r, "")
}

// FromHTMLScoped converts only the elements matching the CSS selector scope,
// in document order. An empty scope converts the whole document. A scope that
// matches nothing yields "".
func FromHTMLScoped(r io.Reader, scope string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	sel := doc.Selection
	if scope != "" {
		sel = doc.Find(scope)
	}

	var b strings.Builder
	for _, n := range sel.Nodes {
		render(&b, n)
		b.WriteByte('\n')
	}
	return tidy(b.String()), nil
}

func render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		switch {
		case skipTags[tag]:
			return
		case tag == "br":
			b.WriteByte('\n')
			return
		case blockTags[tag]:
			b.WriteByte('\n')
			defer b.WriteByte('\n')
		case cellTags[tag]:
			b.WriteByte(' ')
			defer b.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(b, c)
	}
}

func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		if s == "" {
			return ""
		}
		return " "
	}
	lead := s[0] == ' ' || s[0] == '\n' || s[0] == '\t' || s[0] == '\r'
	last := s[len(s)-1]
	trail := last == ' ' || last == '\n' || last == '\t' || last == '\r'

	out := strings.Join(strings.Fields(s), " ")
	if lead {
		out = " " + out
	}
	if trail {
		out += " "
	}
	return out
}

// tidy collapses spaces within each line and drops the empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
