// Package content converts between HTML and Telegraph page content.
package content

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ochronus/gotelegraph/pkg/telegraph"
	"golang.org/x/net/html"
)

// renamed maps HTML tags onto the closest tag Telegraph accepts.
var renamed = map[string]string{
	"h1":     "h3",
	"h2":     "h3",
	"h5":     "h4",
	"h6":     "h4",
	"del":    "s",
	"strike": "s",
	"ins":    "u",
}

// dropped elements are removed together with their children.
var dropped = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

var voidTags = map[string]bool{
	"br":  true,
	"hr":  true,
	"img": true,
}

// FromHTML parses an HTML document or fragment into page content. Elements
// Telegraph does not support are unwrapped, keeping their children, and only
// href and src attributes survive.
func FromHTML(r io.Reader) ([]telegraph.Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	return convert(doc.Find("body").First(), false), nil
}

func convert(sel *goquery.Selection, inPre bool) []telegraph.Node {
	var nodes []telegraph.Node

	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)

		switch n.Type {
		case html.TextNode:
			if !inPre && strings.TrimSpace(n.Data) == "" && strings.Contains(n.Data, "\n") {
				return
			}
			nodes = append(nodes, telegraph.Text(n.Data))

		case html.ElementNode:
			tag := goquery.NodeName(s)
			if dropped[tag] {
				return
			}
			if to, ok := renamed[tag]; ok {
				tag = to
			}

			children := convert(s, inPre || tag == "pre")
			if !telegraph.IsAllowedTag(tag) {
				nodes = append(nodes, children...)
				return
			}

			var attrs map[string]string
			for _, name := range []string{"href", "src"} {
				if v, ok := s.Attr(name); ok {
					if attrs == nil {
						attrs = make(map[string]string)
					}
					attrs[name] = v
				}
			}
			nodes = append(nodes, telegraph.Element(tag, attrs, children...))
		}
	})

	return nodes
}

// ToHTML renders page content as HTML.
func ToHTML(nodes []telegraph.Node) string {
	var b strings.Builder
	render(&b, nodes)
	return b.String()
}

func render(b *strings.Builder, nodes []telegraph.Node) {
	for _, n := range nodes {
		if n.IsText() {
			b.WriteString(html.EscapeString(n.Text))
			continue
		}

		el := n.Element
		b.WriteString("<" + el.Tag)

		names := make([]string, 0, len(el.Attrs))
		for name := range el.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(b, ` %s="%s"`, name, html.EscapeString(el.Attrs[name]))
		}
		b.WriteString(">")

		if voidTags[el.Tag] {
			continue
		}
		render(b, el.Children)
		b.WriteString("</" + el.Tag + ">")
	}
}

// PlainText returns the text of the content with tags stripped.
func PlainText(nodes []telegraph.Node) string {
	var b strings.Builder
	var walk func([]telegraph.Node)
	walk = func(nodes []telegraph.Node) {
		for _, n := range nodes {
			if n.IsText() {
				b.WriteString(n.Text)
				continue
			}
			walk(n.Element.Children)
		}
	}
	walk(nodes)
	return b.String()
}
