package contentmap

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Preview returns the plain text of an HTML fragment with whitespace
// collapsed, cut to at most max runes (max <= 0 means no limit).
func Preview(fragment string, max int) string {
	text := html.UnescapeString(strict.Sanitize(fragment))
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "…"
}
