package dataset

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements kept by Sanitize. Anything else is unwrapped, except the
// dropped elements which vanish with their content.
var (
	allowedTags = map[string]bool{
		"p": true, "br": true, "b": true, "strong": true, "i": true, "em": true,
		"u": true, "ul": true, "ol": true, "li": true, "h1": true, "h2": true,
		"h3": true, "h4": true, "a": true, "img": true, "span": true,
		"blockquote": true, "code": true, "pre": true,
	}
	droppedTags = map[string]bool{
		"script": true, "style": true, "iframe": true, "object": true,
		"embed": true, "noscript": true, "form": true,
	}
	allowedAttrs = map[string]map[string]bool{
		"a":   {"href": true, "title": true},
		"img": {"src": true, "alt": true, "width": true, "height": true},
	}
)

// safeURL accepts web links and inline images only.
func safeURL(tag, v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return true
	}
	return tag == "img" && (strings.HasPrefix(v, "data:image/png") || strings.HasPrefix(v, "data:image/jpeg"))
}

// Sanitize reduces rich text to a small allowlist of formatting elements.
func Sanitize(fragment string) string {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return html.EscapeString(fragment)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		for _, clean := range sanitizeNode(n) {
			if err := html.Render(&buf, clean); err != nil {
				return html.EscapeString(fragment)
			}
		}
	}
	return buf.String()
}

// sanitizeNode returns the cleaned replacement nodes for n, detached.
func sanitizeNode(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{{Type: html.TextNode, Data: n.Data}}
	case html.ElementNode:
		// handled below
	default:
		return nil
	}

	if droppedTags[n.Data] {
		return nil
	}

	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, sanitizeNode(c)...)
	}
	if !allowedTags[n.Data] {
		return children
	}

	out := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	for _, a := range n.Attr {
		if a.Namespace != "" || !allowedAttrs[n.Data][a.Key] {
			continue
		}
		if (a.Key == "href" || a.Key == "src") && !safeURL(n.Data, a.Val) {
			continue
		}
		out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range children {
		out.AppendChild(c)
	}
	return []*html.Node{out}
}

// PlainText extracts readable text from an HTML fragment.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && droppedTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	// collapse whitespace
	return strings.Join(strings.Fields(sb.String()), " ")
}
