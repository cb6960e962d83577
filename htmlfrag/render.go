package htmlfrag

import (
	"strings"

	"golang.org/x/net/html"
)

// html.Render writes void elements as "<br/>", which downstream renderers
// and the diff tooling treat as a change. Fragments are rendered by hand:
//   - void elements get neither a self-closing slash nor an end tag
//   - every other element gets an explicit end tag, foreign ones included
//   - text is escaped for &, < and >; attribute values for & and "
//   - raw text elements (script, style, ...) are written verbatim

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

var rawTextElements = map[string]bool{
	"iframe": true, "noembed": true, "noframes": true, "noscript": true,
	"plaintext": true, "script": true, "style": true, "xmp": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
)

// EscapeXMLText escapes s for use as XML element text. The XML writer does
// this when a fragment is stored back into its element; it is exposed for
// callers that assemble XML by hand.
func EscapeXMLText(s string) string {
	return textEscaper.Replace(s)
}

func render(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if p := n.Parent; p != nil && p.Type == html.ElementNode && p.Namespace == "" && rawTextElements[p.Data] {
			sb.WriteString(n.Data)
			return
		}
		sb.WriteString(textEscaper.Replace(n.Data))

	case html.CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.Data)
		sb.WriteString("-->")

	case html.DoctypeNode:
		sb.WriteString("<!DOCTYPE ")
		sb.WriteString(n.Data)
		sb.WriteByte('>')

	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(sb, c)
		}

	case html.ElementNode:
		sb.WriteByte('<')
		sb.WriteString(n.Data)
		for _, a := range n.Attr {
			sb.WriteByte(' ')
			if a.Namespace != "" {
				sb.WriteString(a.Namespace)
				sb.WriteByte(':')
			}
			sb.WriteString(a.Key)
			sb.WriteString(`="`)
			sb.WriteString(attrEscaper.Replace(a.Val))
			sb.WriteByte('"')
		}
		sb.WriteByte('>')
		if n.Namespace == "" && voidElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(sb, c)
		}
		sb.WriteString("</")
		sb.WriteString(n.Data)
		sb.WriteByte('>')
	}
}
