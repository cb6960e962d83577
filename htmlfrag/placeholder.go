package htmlfrag

import (
	"strings"

	"golang.org/x/net/html"
)

// Placeholder returns the reference markup that stands in for extracted
// content: <div class="{class}" {attr}="{id}"></div>.
func Placeholder(class, attr, id string) string {
	return `<div class="` + attrEscaper.Replace(class) + `" ` + attr + `="` + attrEscaper.Replace(id) + `"></div>`
}

// PlaceholderID reports whether the fragment consists of exactly one
// placeholder div (ignoring surrounding whitespace) and returns the id it
// references.
func (f *Fragment) PlaceholderID(class, attr string) (string, bool) {
	var only *html.Node
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if only != nil {
			return "", false
		}
		only = c
	}
	if only == nil || only.Type != html.ElementNode || only.Namespace != "" || only.Data != "div" {
		return "", false
	}
	if !HasClass(only, class) {
		return "", false
	}
	id, ok := Attr(only, attr)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
