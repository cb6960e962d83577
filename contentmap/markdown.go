package contentmap

import (
	"fmt"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/mbzmig/horosafe"
)

// Markdown renders extracted HTML as Markdown review copies.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown builds a converter with CommonMark and table support.
func NewMarkdown() *Markdown {
	return &Markdown{conv: converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)}
}

// Convert returns the Markdown rendition of an HTML fragment.
func (md *Markdown) Convert(html string) (string, error) {
	out, err := md.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("contentmap: markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// WriteDir writes dir/{id}.md for every entry and returns the number of
// files written.
func (md *Markdown) WriteDir(m *Map, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("contentmap: mkdir %s: %w", dir, err)
	}
	n := 0
	for _, e := range m.entries {
		path, err := idPath(dir, e.ID, ".md")
		if err != nil {
			return n, err
		}
		text, err := md.Convert(e.HTML)
		if err != nil {
			return n, fmt.Errorf("contentmap: %s: %w", e.ID, err)
		}
		if err := horosafe.WriteFileAtomic(path, []byte(text+"\n"), 0o644); err != nil {
			return n, fmt.Errorf("contentmap: %s: %w", e.ID, err)
		}
		n++
	}
	return n, nil
}
