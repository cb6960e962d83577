// Package qbank indexes the course package question bank (questions.xml):
// categories → entries → versions → questions.
//
// The bank is loaded once, queried by question id or by (entry, version),
// and can be mutated in place: entry idnumber injection and pruning of
// unused entries and empty categories. Save writes the document once.
package qbank

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/hazyhaar/mbzmig/idgen"
	"github.com/hazyhaar/mbzmig/xmldoc"
)

// File is the question bank document at the package root.
const File = "questions.xml"

// NullSentinel marks an unassigned idnumber, and "latest" in version
// references.
const NullSentinel = "$@NULL@$"

// Bank is a loaded question bank.
type Bank struct {
	file       *xmldoc.File
	categories []*Category
	entries    map[string]*Entry
	questions  []*Question
}

// Category is a question category.
type Category struct {
	ID      string
	Name    string
	elem    *etree.Element
	entries []*Entry
}

// IDNumber returns the category idnumber. It is not an entry identifier and
// is never rewritten by this package.
func (c *Category) IDNumber() string { return xmldoc.ChildText(c.elem, "./idnumber") }

// Entries returns the category's entries in document order.
func (c *Category) Entries() []*Entry { return c.entries }

// Entry is a question bank entry with one or more versions.
type Entry struct {
	ID       string
	Category *Category
	Versions []*Version
	elem     *etree.Element
}

// IDNumber returns the entry idnumber: NullSentinel or a v4 UUID.
func (e *Entry) IDNumber() string { return xmldoc.ChildText(e.elem, "./idnumber") }

// Latest returns the version with the highest number, or nil.
func (e *Entry) Latest() *Version {
	var best *Version
	for _, v := range e.Versions {
		if v.Question == nil {
			continue
		}
		if best == nil || v.Number > best.Number {
			best = v
		}
	}
	return best
}

// Version is one version of an entry.
type Version struct {
	ID       string
	Number   int
	Status   string
	Question *Question
}

// Question is the question body held by one version.
type Question struct {
	ID      string
	Name    string
	QType   string
	Entry   *Entry
	Version int

	file *xmldoc.File
	elem *etree.Element
}

// IDNumber returns the owning entry's idnumber.
func (q *Question) IDNumber() string { return q.Entry.IDNumber() }

func (q *Question) location() string {
	return fmt.Sprintf("question %s (entry %s v%d)", q.ID, q.Entry.ID, q.Version)
}

// Text returns the question text element, or nil.
func (q *Question) Text() *xmldoc.HTMLElement {
	el := q.elem.SelectElement("questiontext")
	if el == nil {
		return nil
	}
	return xmldoc.NewHTMLElement(q.file, el, q.location()+" questiontext")
}

// Answers returns the answer text elements of choice-style questions.
func (q *Question) Answers() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	for i, a := range q.elem.FindElements(".//answers/answer") {
		if el := a.SelectElement("answertext"); el != nil {
			out = append(out, xmldoc.NewHTMLElement(q.file, el, fmt.Sprintf("%s answer %d", q.location(), i+1)))
		}
	}
	return out
}

// Matches returns the sub-question and answer elements of matching questions.
func (q *Question) Matches() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	for i, m := range q.elem.FindElements(".//matches/match") {
		for _, tag := range []string{"questiontext", "answertext"} {
			if el := m.SelectElement(tag); el != nil {
				out = append(out, xmldoc.NewHTMLElement(q.file, el, fmt.Sprintf("%s match %d %s", q.location(), i+1, tag)))
			}
		}
	}
	return out
}

// HTMLElements returns every HTML-carrying element of the question:
// question text, general feedback, answers with their feedback, matches.
func (q *Question) HTMLElements() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	if t := q.Text(); t != nil {
		out = append(out, t)
	}
	if el := q.elem.SelectElement("generalfeedback"); el != nil {
		out = append(out, xmldoc.NewHTMLElement(q.file, el, q.location()+" generalfeedback"))
	}
	for i, a := range q.elem.FindElements(".//answers/answer") {
		for _, tag := range []string{"answertext", "feedback"} {
			if el := a.SelectElement(tag); el != nil {
				out = append(out, xmldoc.NewHTMLElement(q.file, el, fmt.Sprintf("%s answer %d %s", q.location(), i+1, tag)))
			}
		}
	}
	out = append(out, q.Matches()...)
	return out
}

// Load parses root/questions.xml.
func Load(root string) (*Bank, error) {
	f, err := xmldoc.Open(filepath.Join(root, File))
	if err != nil {
		return nil, fmt.Errorf("qbank: %w", err)
	}
	return parse(f)
}

func parse(f *xmldoc.File) (*Bank, error) {
	b := &Bank{file: f, entries: make(map[string]*Entry)}
	if f.Root() == nil {
		return nil, fmt.Errorf("qbank: %s: empty document", f.Path())
	}
	for _, ce := range f.Root().SelectElements("question_category") {
		cat := &Category{
			ID:   ce.SelectAttrValue("id", ""),
			Name: xmldoc.ChildText(ce, "./name"),
			elem: ce,
		}
		for _, ee := range ce.FindElements("./question_bank_entries/question_bank_entry") {
			entry := &Entry{ID: ee.SelectAttrValue("id", ""), Category: cat, elem: ee}
			if _, dup := b.entries[entry.ID]; dup {
				return nil, fmt.Errorf("qbank: duplicate question bank entry %s", entry.ID)
			}
			for _, ve := range ee.FindElements("./question_version/question_versions") {
				v, err := parseVersion(f, entry, ve)
				if err != nil {
					return nil, err
				}
				entry.Versions = append(entry.Versions, v)
				if v.Question != nil {
					b.questions = append(b.questions, v.Question)
				}
			}
			cat.entries = append(cat.entries, entry)
			b.entries[entry.ID] = entry
		}
		b.categories = append(b.categories, cat)
	}
	return b, nil
}

func parseVersion(f *xmldoc.File, entry *Entry, ve *etree.Element) (*Version, error) {
	v := &Version{
		ID:     ve.SelectAttrValue("id", ""),
		Status: xmldoc.ChildText(ve, "./status"),
	}
	n, err := strconv.Atoi(xmldoc.ChildText(ve, "./version"))
	if err != nil {
		return nil, fmt.Errorf("qbank: entry %s version %s: %w", entry.ID, v.ID, err)
	}
	v.Number = n
	if qe := ve.FindElement("./questions/question"); qe != nil {
		v.Question = &Question{
			ID:      qe.SelectAttrValue("id", ""),
			Name:    xmldoc.ChildText(qe, "./name"),
			QType:   xmldoc.ChildText(qe, "./qtype"),
			Entry:   entry,
			Version: n,
			file:    f,
			elem:    qe,
		}
	}
	return v, nil
}

// Categories returns the categories in document order.
func (b *Bank) Categories() []*Category { return b.categories }

// Entry returns the entry with the given id.
func (b *Bank) Entry(id string) (*Entry, bool) {
	e, ok := b.entries[id]
	return e, ok
}

// Entries returns every entry in document order.
func (b *Bank) Entries() []*Entry {
	var out []*Entry
	for _, c := range b.categories {
		out = append(out, c.entries...)
	}
	return out
}

// Questions returns every question when ids is empty. Otherwise it returns
// exactly one question per id, in the order given.
func (b *Bank) Questions(ids ...string) ([]*Question, error) {
	if len(ids) == 0 {
		return append([]*Question(nil), b.questions...), nil
	}
	byID := make(map[string]*Question, len(b.questions))
	for _, q := range b.questions {
		byID[q.ID] = q
	}
	out := make([]*Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, &QuestionNotFoundError{QuestionID: id}
		}
		out = append(out, q)
	}
	return out, nil
}

// QuestionByEntry resolves an entry reference. version is either an
// explicit number or NullSentinel for the latest version.
func (b *Bank) QuestionByEntry(entryID, version string) (*Question, error) {
	entry, ok := b.entries[entryID]
	if !ok {
		return nil, &QuestionNotFoundError{EntryID: entryID}
	}
	version = strings.TrimSpace(version)
	if version == NullSentinel {
		latest := entry.Latest()
		if latest == nil {
			return nil, &VersionNotFoundError{EntryID: entryID, Version: version}
		}
		return latest.Question, nil
	}
	n, err := strconv.Atoi(version)
	if err != nil {
		return nil, &VersionNotFoundError{EntryID: entryID, Version: version}
	}
	for _, v := range entry.Versions {
		if v.Number == n && v.Question != nil {
			return v.Question, nil
		}
	}
	return nil, &VersionNotFoundError{EntryID: entryID, Version: version}
}

// InjectEntryUUIDs replaces every entry-level NullSentinel idnumber with a
// fresh id from gen and returns how many were written. Entries that already
// carry a value and category idnumbers are left alone.
func (b *Bank) InjectEntryUUIDs(gen idgen.Generator) int {
	n := 0
	for _, entry := range b.Entries() {
		el := entry.elem.SelectElement("idnumber")
		if el == nil || strings.TrimSpace(el.Text()) != NullSentinel {
			continue
		}
		el.SetText(gen())
		n++
	}
	if n > 0 {
		b.file.MarkDirty()
	}
	return n
}

// InvalidEntryIDNumbers returns the ids of entries whose idnumber is
// neither NullSentinel nor a v4 UUID.
func (b *Bank) InvalidEntryIDNumbers() []string {
	var out []string
	for _, entry := range b.Entries() {
		v := entry.IDNumber()
		if v != NullSentinel && !idgen.IsUUID4(v) {
			out = append(out, entry.ID)
		}
	}
	return out
}

// DeleteUnusedEntries removes every entry whose id is not in used and
// returns how many were removed. Categories are kept, even when emptied;
// call DeleteEmptyCategories afterwards.
func (b *Bank) DeleteUnusedEntries(used map[string]bool) int {
	removed := 0
	for _, cat := range b.categories {
		kept := cat.entries[:0]
		for _, entry := range cat.entries {
			if used[entry.ID] {
				kept = append(kept, entry)
				continue
			}
			if p := entry.elem.Parent(); p != nil {
				p.RemoveChild(entry.elem)
			}
			delete(b.entries, entry.ID)
			removed++
		}
		cat.entries = kept
	}
	if removed > 0 {
		b.rebuildQuestions()
		b.file.MarkDirty()
	}
	return removed
}

// DeleteEmptyCategories removes every category without entries and returns
// how many were removed.
func (b *Bank) DeleteEmptyCategories() int {
	removed := 0
	kept := b.categories[:0]
	for _, cat := range b.categories {
		if len(cat.entries) > 0 {
			kept = append(kept, cat)
			continue
		}
		if p := cat.elem.Parent(); p != nil {
			p.RemoveChild(cat.elem)
		}
		removed++
	}
	b.categories = kept
	if removed > 0 {
		b.file.MarkDirty()
	}
	return removed
}

func (b *Bank) rebuildQuestions() {
	b.questions = b.questions[:0]
	for _, entry := range b.Entries() {
		for _, v := range entry.Versions {
			if v.Question != nil {
				b.questions = append(b.questions, v.Question)
			}
		}
	}
}

// HTMLElements returns the HTML-carrying elements of every question.
func (b *Bank) HTMLElements() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	for _, q := range b.questions {
		out = append(out, q.HTMLElements()...)
	}
	return out
}

// Path returns the question bank file path.
func (b *Bank) Path() string { return b.file.Path() }

// Save writes questions.xml if it changed. It returns the number of files
// written (0 or 1).
func (b *Bank) Save() (int, error) {
	ok, err := b.file.Save()
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}
