package contentmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hazyhaar/mbzmig/horosafe"
)

// MainVariant names the canonical (top-level) rendition of a document.
const MainVariant = "main"

// WriteDir writes every entry to dir/{id}.html and returns the number of
// files written.
func WriteDir(m *Map, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("contentmap: mkdir %s: %w", dir, err)
	}
	n := 0
	for _, e := range m.entries {
		path, err := idPath(dir, e.ID, ".html")
		if err != nil {
			return n, err
		}
		if err := horosafe.WriteFileAtomic(path, []byte(e.HTML), 0o644); err != nil {
			return n, fmt.Errorf("contentmap: %s: %w", e.ID, err)
		}
		n++
	}
	return n, nil
}

// ReadDir loads dir/*.html back into a Map, in file name order. The id is
// the file name without extension. Subdirectories are ignored.
func ReadDir(dir string) (*Map, error) {
	names, err := htmlFiles(dir)
	if err != nil {
		return nil, err
	}
	m := New()
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("contentmap: %w", err)
		}
		if err := m.Put(strings.TrimSuffix(name, ".html"), string(data), path); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Variant is one rendition of a document.
type Variant struct {
	Variant string `json:"variant"`
	HTML    string `json:"html"`
}

// Document is the JSON shape consumed by downstream content stores.
type Document struct {
	ID      string    `json:"id"`
	Content []Variant `json:"content"`
}

// LoadVariants builds one Document per id found in dir. Top-level
// {id}.html files are the MainVariant; dir/{variant}/{id}.html files add a
// variant named after the subdirectory. Documents come back sorted by id,
// main first then variants by name.
func LoadVariants(dir string) ([]Document, error) {
	docs := make(map[string]*Document)
	add := func(id, variant, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("contentmap: %w", err)
		}
		d, ok := docs[id]
		if !ok {
			d = &Document{ID: id}
			docs[id] = d
		}
		d.Content = append(d.Content, Variant{Variant: variant, HTML: string(data)})
		return nil
	}

	names, err := htmlFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := add(strings.TrimSuffix(name, ".html"), MainVariant, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}

	subdirs, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("contentmap: %w", err)
	}
	for _, sd := range subdirs {
		if !sd.IsDir() {
			continue
		}
		vdir := filepath.Join(dir, sd.Name())
		vnames, err := htmlFiles(vdir)
		if err != nil {
			return nil, err
		}
		for _, name := range vnames {
			if err := add(strings.TrimSuffix(name, ".html"), sd.Name(), filepath.Join(vdir, name)); err != nil {
				return nil, err
			}
		}
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, *docs[id])
	}
	return out, nil
}

// FromMap wraps every entry of m as a single-variant Document.
func FromMap(m *Map) []Document {
	out := make([]Document, 0, m.Len())
	for _, e := range m.entries {
		out = append(out, Document{ID: e.ID, Content: []Variant{{Variant: MainVariant, HTML: e.HTML}}})
	}
	return out
}

// WriteJSON writes each document to dir/{id}.json and returns the number of
// files written.
func WriteJSON(docs []Document, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("contentmap: mkdir %s: %w", dir, err)
	}
	n := 0
	for _, d := range docs {
		path, err := idPath(dir, d.ID, ".json")
		if err != nil {
			return n, err
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return n, fmt.Errorf("contentmap: marshal %s: %w", d.ID, err)
		}
		if err := horosafe.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
			return n, fmt.Errorf("contentmap: %s: %w", d.ID, err)
		}
		n++
	}
	return n, nil
}

func idPath(dir, id, ext string) (string, error) {
	if err := horosafe.ValidateIdentifier(id); err != nil {
		return "", fmt.Errorf("contentmap: content id %q: %w", id, err)
	}
	return horosafe.SafePath(dir, id+ext)
}

func htmlFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("contentmap: %w", err)
	}
	var names []string
	for _, e := range ents {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".html") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
