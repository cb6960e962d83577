// Package xmldoc binds course package XML files to the HTML fragments
// embedded in their elements.
//
// A File owns one etree document. HTMLElements point into that document;
// rewriting one only touches its own element text and marks the file dirty.
// Save serialises the whole document once, so a file with twenty rewritten
// fragments is still written in a single atomic replace.
package xmldoc

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/hazyhaar/mbzmig/horosafe"
	"github.com/hazyhaar/mbzmig/htmlfrag"
)

// File is an XML document loaded from disk.
type File struct {
	path  string
	doc   *etree.Document
	dirty bool
}

// Open reads and parses the XML file at path.
func Open(path string) (*File, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("xmldoc: read %s: %w", path, err)
	}
	// Moodle writes empty elements as <x></x>; keep that form on rewrite.
	doc.WriteSettings.CanonicalEndTags = true
	return &File{path: path, doc: doc}, nil
}

// Path returns the file path the document was read from.
func (f *File) Path() string { return f.path }

// Root returns the document element.
func (f *File) Root() *etree.Element { return f.doc.Root() }

// Document returns the underlying document.
func (f *File) Document() *etree.Document { return f.doc }

// Dirty reports whether the document has unsaved changes.
func (f *File) Dirty() bool { return f.dirty }

// MarkDirty flags the document for the next Save.
func (f *File) MarkDirty() { f.dirty = true }

// Bytes serialises the document.
func (f *File) Bytes() ([]byte, error) {
	b, err := f.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xmldoc: serialise %s: %w", f.path, err)
	}
	return b, nil
}

// Save writes the document back to its path if it is dirty. It reports
// whether a write happened.
func (f *File) Save() (bool, error) {
	if !f.dirty {
		return false, nil
	}
	b, err := f.Bytes()
	if err != nil {
		return false, err
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(f.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := horosafe.WriteFileAtomic(f.path, b, perm); err != nil {
		return false, fmt.Errorf("xmldoc: save %s: %w", f.path, err)
	}
	f.dirty = false
	return true, nil
}

// ChildText returns the trimmed text of the first element matching path
// under el, or "" when there is none.
func ChildText(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	c := el.FindElement(path)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

// HTMLElement is an XML element whose text is an HTML fragment.
type HTMLElement struct {
	file     *File
	elem     *etree.Element
	location string
}

// NewHTMLElement binds el (inside f) as an HTML-carrying element.
// location is a human-readable position used in logs and errors.
func NewHTMLElement(f *File, el *etree.Element, location string) *HTMLElement {
	return &HTMLElement{file: f, elem: el, location: location}
}

// File returns the document owning the element.
func (h *HTMLElement) File() *File { return h.file }

// Element returns the bound XML element.
func (h *HTMLElement) Element() *etree.Element { return h.elem }

// Location describes where the element sits, e.g. `lesson "Intro" page 2 answer 1`.
func (h *HTMLElement) Location() string { return h.location }

// Raw returns the unescaped element text, i.e. the HTML source.
func (h *HTMLElement) Raw() string { return h.elem.Text() }

// Blank reports whether the element carries no content.
func (h *HTMLElement) Blank() bool { return strings.TrimSpace(h.elem.Text()) == "" }

// Fragment parses the element text as HTML.
func (h *HTMLElement) Fragment() (*htmlfrag.Fragment, error) {
	frag, err := htmlfrag.Parse(h.elem.Text())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.location, err)
	}
	return frag, nil
}

// SetHTML replaces the element text with s. The XML writer escapes it.
// Setting identical text is a no-op and leaves the file clean.
func (h *HTMLElement) SetHTML(s string) {
	if h.elem.Text() == s {
		return
	}
	h.elem.SetText(s)
	h.file.MarkDirty()
}

// Files returns the distinct files owning elems, in first-seen order.
func Files(elems []*HTMLElement) []*File {
	seen := make(map[*File]bool)
	var out []*File
	for _, e := range elems {
		if !seen[e.file] {
			seen[e.file] = true
			out = append(out, e.file)
		}
	}
	return out
}
