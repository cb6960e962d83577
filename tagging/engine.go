// Package tagging moves HTML fragments out of a course package and back.
//
// Extract replaces every untagged fragment with a reference placeholder
//
//	<div class="os-raise-content" data-content-id="{id}"></div>
//
// and returns the original HTML keyed by id. Fragments that already are a
// placeholder are skipped, so a second run changes nothing. Restore does the
// reverse from a content map.
//
// Every operation parses and plans all fragments first, mutates in memory,
// then saves each source once. A parse or lookup failure leaves the files
// untouched. ExtractTo hands the extracted map to a Sink before any source
// is written, so the original HTML is persisted before the placeholders.
package tagging

import (
	"log/slog"

	"github.com/hazyhaar/mbzmig/contentmap"
	"github.com/hazyhaar/mbzmig/htmlfrag"
	"github.com/hazyhaar/mbzmig/xmldoc"
)

// Source is a set of HTML-carrying XML elements that can be saved.
// *course.Course and *qbank.Bank implement it.
type Source interface {
	HTMLElements() []*xmldoc.HTMLElement
	Save() (int, error)
}

// Lookup resolves a content id to HTML. *contentmap.Map implements it.
type Lookup interface {
	Get(id string) (string, bool)
}

// Report counts what an operation did.
type Report struct {
	Elements     int // HTML-carrying elements visited
	Blank        int // skipped, no content
	Tagged       int // already a placeholder
	Extracted    int
	Restored     int
	Touched      int // fragments changed by StripAttribute or RewriteLinks
	FilesWritten int
}

// Engine runs the extraction and restoration passes.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, logger: cfg.Logger}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Placeholder returns the reference markup for id.
func (e *Engine) Placeholder(id string) string {
	return htmlfrag.Placeholder(e.cfg.PlaceholderClass, e.cfg.ContentIDAttr, id)
}

type edit struct {
	el   *xmldoc.HTMLElement
	html string
}

// Sink persists an extracted map. An error from the sink aborts the
// extraction with every source left as it was.
type Sink func(m *contentmap.Map) error

// Extract tags every raw fragment of the sources and returns the extracted
// HTML. The map holds the fragment's serialised form, so Restore reproduces
// it exactly. Callers that store the map should use ExtractTo: once Extract
// returns, the sources only hold placeholders.
func (e *Engine) Extract(sources ...Source) (*contentmap.Map, Report, error) {
	return e.ExtractTo(nil, sources...)
}

// ExtractTo is Extract with sink called on the complete map after planning
// and before any source is modified. A nil sink is skipped.
func (e *Engine) ExtractTo(sink Sink, sources ...Source) (*contentmap.Map, Report, error) {
	var rep Report
	m := contentmap.New()
	var edits []edit

	for _, src := range sources {
		for _, el := range src.HTMLElements() {
			rep.Elements++
			if el.Blank() {
				rep.Blank++
				continue
			}
			frag, err := el.Fragment()
			if err != nil {
				return nil, rep, err
			}
			if _, ok := frag.PlaceholderID(e.cfg.PlaceholderClass, e.cfg.ContentIDAttr); ok {
				rep.Tagged++
				continue
			}
			id := e.cfg.NewID()
			if err := m.Put(id, frag.String(), el.Location()); err != nil {
				return nil, rep, err
			}
			edits = append(edits, edit{el: el, html: e.Placeholder(id)})
			e.logger.Debug("fragment extracted", "id", id, "location", el.Location())
		}
	}

	rep.Extracted = len(edits)
	if sink != nil {
		if err := sink(m); err != nil {
			return m, rep, err
		}
	}
	if err := e.apply(edits, sources, &rep); err != nil {
		return m, rep, err
	}
	e.logger.Info("extraction done",
		"elements", rep.Elements, "extracted", rep.Extracted,
		"already_tagged", rep.Tagged, "files", rep.FilesWritten)
	return m, rep, nil
}

// Restore replaces every placeholder with the HTML lookup holds for its id.
// Every id is checked before anything is written; a missing one yields a
// *ContentIDNotFoundError.
func (e *Engine) Restore(lookup Lookup, sources ...Source) (Report, error) {
	var rep Report
	var edits []edit

	for _, src := range sources {
		for _, el := range src.HTMLElements() {
			rep.Elements++
			if el.Blank() {
				rep.Blank++
				continue
			}
			frag, err := el.Fragment()
			if err != nil {
				return rep, err
			}
			id, ok := frag.PlaceholderID(e.cfg.PlaceholderClass, e.cfg.ContentIDAttr)
			if !ok {
				continue
			}
			rep.Tagged++
			html, ok := lookup.Get(id)
			if !ok {
				return rep, &ContentIDNotFoundError{ID: id, Location: el.Location()}
			}
			edits = append(edits, edit{el: el, html: html})
		}
	}

	rep.Restored = len(edits)
	if err := e.apply(edits, sources, &rep); err != nil {
		return rep, err
	}
	e.logger.Info("restore done", "restored", rep.Restored, "files", rep.FilesWritten)
	return rep, nil
}

// StripAttribute removes attr from every raw fragment. Placeholders are left
// alone. Report.Touched counts the top-level nodes that lost the attribute.
func (e *Engine) StripAttribute(attr string, sources ...Source) (Report, error) {
	var rep Report
	var edits []edit

	err := e.eachRaw(sources, &rep, func(el *xmldoc.HTMLElement, frag *htmlfrag.Fragment) {
		if n := frag.RemoveAttribute(attr); n > 0 {
			rep.Touched += n
			edits = append(edits, edit{el: el, html: frag.String()})
		}
	})
	if err != nil {
		return rep, err
	}
	if err := e.apply(edits, sources, &rep); err != nil {
		return rep, err
	}
	e.logger.Info("attribute stripped", "attr", attr, "count", rep.Touched, "files", rep.FilesWritten)
	return rep, nil
}

// RewriteLinks replaces link attribute values found in mapping across every
// raw fragment. It returns the old → new pairs actually applied.
func (e *Engine) RewriteLinks(mapping map[string]string, sources ...Source) (map[string]string, Report, error) {
	var rep Report
	var edits []edit
	applied := make(map[string]string)

	err := e.eachRaw(sources, &rep, func(el *xmldoc.HTMLElement, frag *htmlfrag.Fragment) {
		changed := frag.RewriteAttributeValues(e.cfg.LinkAttrs, mapping)
		if len(changed) == 0 {
			return
		}
		for k, v := range changed {
			applied[k] = v
		}
		rep.Touched++
		edits = append(edits, edit{el: el, html: frag.String()})
	})
	if err != nil {
		return nil, rep, err
	}
	if err := e.apply(edits, sources, &rep); err != nil {
		return applied, rep, err
	}
	e.logger.Info("links rewritten", "links", len(applied), "count", rep.Touched, "files", rep.FilesWritten)
	return applied, rep, nil
}

// eachRaw parses every non-blank, non-placeholder fragment and hands it to
// fn. Parsing stops at the first error.
func (e *Engine) eachRaw(sources []Source, rep *Report, fn func(*xmldoc.HTMLElement, *htmlfrag.Fragment)) error {
	for _, src := range sources {
		for _, el := range src.HTMLElements() {
			rep.Elements++
			if el.Blank() {
				rep.Blank++
				continue
			}
			frag, err := el.Fragment()
			if err != nil {
				return err
			}
			if _, ok := frag.PlaceholderID(e.cfg.PlaceholderClass, e.cfg.ContentIDAttr); ok {
				rep.Tagged++
				continue
			}
			fn(el, frag)
		}
	}
	return nil
}

// apply writes the planned edits into their elements, then saves each
// source once.
func (e *Engine) apply(edits []edit, sources []Source, rep *Report) error {
	for _, ed := range edits {
		ed.el.SetHTML(ed.html)
	}
	for _, src := range sources {
		n, err := src.Save()
		rep.FilesWritten += n
		if err != nil {
			return err
		}
	}
	return nil
}
