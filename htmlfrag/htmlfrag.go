// Package htmlfrag models HTML fragments stored as escaped text inside XML
// elements of a course package.
//
// A fragment rarely has a single root: lesson contents are usually a run of
// sibling paragraphs. Parse hangs the top-level nodes under a synthetic
// container element; String renders the children of that container and
// never the container itself.
//
// Usage:
//
//	frag, err := htmlfrag.Parse(el.Text())
//	for _, n := range frag.FindByClass("os-raise-ib-input") { ... }
//	el.SetText(frag.String())
package htmlfrag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is a parsed HTML fragment.
type Fragment struct {
	root *html.Node // synthetic container, never rendered
}

// Parse parses raw HTML in a <body> context.
func Parse(raw string) (*Fragment, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), context)
	if err != nil {
		return nil, fmt.Errorf("htmlfrag: parse: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Fragment{root: root}, nil
}

// IsDocument reports whether raw is a whole HTML document rather than a
// fragment: it has a doctype or an <html>, <head> or <body> tag. Parse drops
// those tags, so String would not reproduce them.
func IsDocument(raw string) bool {
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Html, atom.Head, atom.Body:
				return true
			}
		}
	}
}

// Root returns the synthetic container. Its children are the fragment's
// top-level nodes.
func (f *Fragment) Root() *html.Node { return f.root }

// Nodes returns the top-level nodes of the fragment.
func (f *Fragment) Nodes() []*html.Node {
	var out []*html.Node
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// String serialises the fragment as HTML (see render.go for the rules).
func (f *Fragment) String() string {
	var sb strings.Builder
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		render(&sb, c)
	}
	return sb.String()
}

// Text returns the visible text of the fragment, whitespace-collapsed.
func (f *Fragment) Text() string {
	var parts []string
	walk(f.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return false
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, strings.Join(strings.Fields(t), " "))
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}

// Select returns the elements matching a CSS selector, in document order.
// The container itself is never matched.
func (f *Fragment) Select(selector string) []*html.Node {
	return goquery.NewDocumentFromNode(f.root).Find(selector).Nodes
}

// FindByClass returns elements whose class attribute contains name as one
// of its whitespace-separated tokens: "bar" matches class="foo bar".
func (f *Fragment) FindByClass(name string) []*html.Node {
	return goquery.NewDocumentFromNode(f.root).
		Find("[class]").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.HasClass(name)
		}).Nodes
}

// FindByClasses is FindByClass for several names at once. Each element is
// returned once, in document order.
func (f *Fragment) FindByClasses(names ...string) []*html.Node {
	return goquery.NewDocumentFromNode(f.root).
		Find("[class]").
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			for _, name := range names {
				if s.HasClass(name) {
					return true
				}
			}
			return false
		}).Nodes
}

// IsFragment reports whether n stands alone among its siblings: every other
// sibling is whitespace-only text. A block wrapped by nothing but
// indentation is the whole fragment, not a block mentioned in passing.
func IsFragment(n *html.Node) bool {
	if n.Parent == nil {
		return true
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == n {
			continue
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		return false
	}
	return true
}

// CollectAttributeValues gathers the values of attr across every element of
// the fragment, skipping elements whose tag is excludeTag (empty: none).
func (f *Fragment) CollectAttributeValues(attr, excludeTag string) []string {
	var values []string
	walk(f.root, func(n *html.Node) bool {
		if n == f.root || n.Type != html.ElementNode {
			return true
		}
		if excludeTag != "" && n.Data == excludeTag {
			return true
		}
		if v, ok := Attr(n, attr); ok {
			values = append(values, v)
		}
		return true
	})
	return values
}

// RewriteAttributeValues replaces, for each attribute named in attrs, any
// value found as a key of mapping. It returns the changed old→new pairs,
// empty when nothing matched.
func (f *Fragment) RewriteAttributeValues(attrs []string, mapping map[string]string) map[string]string {
	changed := make(map[string]string)
	walk(f.root, func(n *html.Node) bool {
		if n == f.root || n.Type != html.ElementNode {
			return true
		}
		for i := range n.Attr {
			a := &n.Attr[i]
			if a.Namespace != "" || !slices.Contains(attrs, a.Key) {
				continue
			}
			if repl, ok := mapping[a.Val]; ok && repl != a.Val {
				changed[a.Val] = repl
				a.Val = repl
			}
		}
		return true
	})
	return changed
}

// RemoveAttribute strips name from every element and returns how many
// distinct top-level nodes had at least one occurrence removed.
func (f *Fragment) RemoveAttribute(name string) int {
	touched := 0
	for top := f.root.FirstChild; top != nil; top = top.NextSibling {
		removed := false
		walk(top, func(n *html.Node) bool {
			if n.Type == html.ElementNode && DelAttr(n, name) {
				removed = true
			}
			return true
		})
		if removed {
			touched++
		}
	}
	return touched
}

// Attr returns the value of a non-namespaced attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets (or appends) a non-namespaced attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// DelAttr removes every occurrence of a non-namespaced attribute and
// reports whether anything was removed.
func DelAttr(n *html.Node, key string) bool {
	kept := n.Attr[:0]
	removed := false
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
	return removed
}

// HasClass reports whether n carries class as a class token.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the current node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
