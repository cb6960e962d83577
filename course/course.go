// Package course loads a Moodle course package (backup manifest plus
// activity XML files) into typed activities whose HTML-carrying elements can
// be rewritten in place and saved once per file.
//
// Usage:
//
//	c, err := course.Load("/path/to/mbz")
//	for _, el := range c.HTMLElements() { ... el.SetHTML(...) }
//	n, err := c.Save()
package course

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hazyhaar/mbzmig/horosafe"
	"github.com/hazyhaar/mbzmig/xmldoc"
)

// ManifestFile is the backup manifest at the package root.
const ManifestFile = "moodle_backup.xml"

// ManifestEntry is one activity listed in the backup manifest.
type ManifestEntry struct {
	ModuleID   string
	ModuleName string
	Title      string
	Directory  string
}

// Course is a loaded course package.
type Course struct {
	root       string
	manifest   []ManifestEntry
	activities []Activity
	logger     *slog.Logger
}

type options struct {
	logger *slog.Logger
}

// Option customises Load.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Load parses the manifest and every lesson, page and quiz activity it
// lists. Unknown module types are skipped.
func Load(root string, opts ...Option) (*Course, error) {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}

	manifestPath := filepath.Join(root, ManifestFile)
	if _, err := os.Stat(manifestPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, manifestPath)
		}
		return nil, fmt.Errorf("course: stat manifest: %w", err)
	}
	mf, err := xmldoc.Open(manifestPath)
	if err != nil {
		return nil, err
	}

	c := &Course{root: root, manifest: parseManifest(mf), logger: o.logger}
	for _, entry := range c.manifest {
		kind := Kind(entry.ModuleName)
		if !kind.Known() {
			c.logger.Debug("skipping activity", "module", entry.ModuleName, "directory", entry.Directory)
			continue
		}
		act, err := loadActivity(root, kind, entry)
		if err != nil {
			return nil, err
		}
		c.activities = append(c.activities, act)
	}

	c.logger.Debug("course loaded", "root", root, "manifest", len(c.manifest), "activities", len(c.activities))
	return c, nil
}

func parseManifest(f *xmldoc.File) []ManifestEntry {
	var entries []ManifestEntry
	for _, el := range f.Root().FindElements("./information/contents/activities/activity") {
		entries = append(entries, ManifestEntry{
			ModuleID:   xmldoc.ChildText(el, "./moduleid"),
			ModuleName: xmldoc.ChildText(el, "./modulename"),
			Title:      xmldoc.ChildText(el, "./title"),
			Directory:  xmldoc.ChildText(el, "./directory"),
		})
	}
	return entries
}

func loadActivity(root string, kind Kind, entry ManifestEntry) (Activity, error) {
	dir, err := horosafe.SafePath(root, entry.Directory)
	if err != nil {
		return nil, fmt.Errorf("course: activity directory %q: %w", entry.Directory, err)
	}
	path := filepath.Join(dir, entry.ModuleName+".xml")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ActivityFileMissingError{ModuleName: entry.ModuleName, Directory: entry.Directory, Path: path}
		}
		return nil, fmt.Errorf("course: stat %s: %w", path, err)
	}
	f, err := xmldoc.Open(path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindLesson:
		return parseLesson(f, entry)
	case KindPage:
		return parsePage(f, entry)
	case KindQuiz:
		return parseQuiz(f, entry)
	default:
		return nil, fmt.Errorf("course: unsupported module %q", entry.ModuleName)
	}
}

// Root returns the package root directory.
func (c *Course) Root() string { return c.root }

// Manifest returns every manifest entry, including skipped module types.
func (c *Course) Manifest() []ManifestEntry { return c.manifest }

// Activities returns the loaded activities in manifest order.
func (c *Course) Activities() []Activity { return c.activities }

// Lessons returns the lesson activities in manifest order.
func (c *Course) Lessons() []*Lesson {
	var out []*Lesson
	for _, a := range c.activities {
		if l, ok := a.(*Lesson); ok {
			out = append(out, l)
		}
	}
	return out
}

// Pages returns the page activities in manifest order.
func (c *Course) Pages() []*Page {
	var out []*Page
	for _, a := range c.activities {
		if p, ok := a.(*Page); ok {
			out = append(out, p)
		}
	}
	return out
}

// Quizzes returns the quiz activities in manifest order.
func (c *Course) Quizzes() []*Quiz {
	var out []*Quiz
	for _, a := range c.activities {
		if q, ok := a.(*Quiz); ok {
			out = append(out, q)
		}
	}
	return out
}

// HTMLElements returns every HTML-carrying element of every activity, in
// manifest order then document order.
func (c *Course) HTMLElements() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	for _, a := range c.activities {
		out = append(out, a.HTMLElements()...)
	}
	return out
}

// Save writes every activity file with pending changes, once each, and
// returns how many files were written. Files already written stay written
// if a later one fails.
func (c *Course) Save() (int, error) {
	written := 0
	for _, a := range c.activities {
		ok, err := a.File().Save()
		if err != nil {
			return written, err
		}
		if ok {
			written++
			c.logger.Info("activity saved", "path", a.File().Path())
		}
	}
	return written, nil
}
