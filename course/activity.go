package course

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/hazyhaar/mbzmig/xmldoc"
)

// Kind is a manifest module name.
type Kind string

const (
	KindLesson Kind = "lesson"
	KindPage   Kind = "page"
	KindQuiz   Kind = "quiz"
)

// Known reports whether the loader handles this module type.
func (k Kind) Known() bool {
	switch k {
	case KindLesson, KindPage, KindQuiz:
		return true
	}
	return false
}

// Activity is one lesson, page or quiz. The set of implementations is
// closed: *Lesson, *Page and *Quiz.
type Activity interface {
	Kind() Kind
	ID() string
	Name() string
	Entry() ManifestEntry
	File() *xmldoc.File
	HTMLElements() []*xmldoc.HTMLElement
	activity()
}

type base struct {
	entry ManifestEntry
	id    string
	name  string
	file  *xmldoc.File
}

func (b *base) ID() string           { return b.id }
func (b *base) Name() string         { return b.name }
func (b *base) Entry() ManifestEntry { return b.entry }
func (b *base) File() *xmldoc.File   { return b.file }
func (b *base) activity()            {}

// Page is a single content page.
type Page struct {
	base
	Content *xmldoc.HTMLElement
}

func (p *Page) Kind() Kind { return KindPage }

// HTMLElements returns the page content element.
func (p *Page) HTMLElements() []*xmldoc.HTMLElement {
	if p.Content == nil {
		return nil
	}
	return []*xmldoc.HTMLElement{p.Content}
}

func parsePage(f *xmldoc.File, entry ManifestEntry) (*Page, error) {
	el, err := moduleElement(f, "page")
	if err != nil {
		return nil, err
	}
	p := &Page{base: base{
		entry: entry,
		id:    el.SelectAttrValue("id", ""),
		name:  xmldoc.ChildText(el, "./name"),
		file:  f,
	}}
	if c := el.SelectElement("content"); c != nil {
		p.Content = xmldoc.NewHTMLElement(f, c, fmt.Sprintf("page %q", p.name))
	}
	return p, nil
}

// QuestionInstance is one question slot of a quiz, referencing a question
// bank entry and a version ("$@NULL@$" meaning latest).
type QuestionInstance struct {
	ID      string
	Slot    int
	Page    int
	EntryID string
	Version string
}

// Quiz is a quiz activity.
type Quiz struct {
	base
	Instances []QuestionInstance
}

func (q *Quiz) Kind() Kind { return KindQuiz }

// HTMLElements returns nothing: quiz question content lives in the
// question bank.
func (q *Quiz) HTMLElements() []*xmldoc.HTMLElement { return nil }

func parseQuiz(f *xmldoc.File, entry ManifestEntry) (*Quiz, error) {
	el, err := moduleElement(f, "quiz")
	if err != nil {
		return nil, err
	}
	q := &Quiz{base: base{
		entry: entry,
		id:    el.SelectAttrValue("id", ""),
		name:  xmldoc.ChildText(el, "./name"),
		file:  f,
	}}
	for _, ie := range el.FindElements("./question_instances/question_instance") {
		inst := QuestionInstance{
			ID:      ie.SelectAttrValue("id", ""),
			EntryID: xmldoc.ChildText(ie, "./question_reference/questionbankentryid"),
			Version: xmldoc.ChildText(ie, "./question_reference/version"),
		}
		if inst.Slot, err = atoiField(ie, "slot"); err != nil {
			return nil, fmt.Errorf("course: quiz %q instance %s: %w", q.name, inst.ID, err)
		}
		if inst.Page, err = atoiField(ie, "page"); err != nil {
			return nil, fmt.Errorf("course: quiz %q instance %s: %w", q.name, inst.ID, err)
		}
		q.Instances = append(q.Instances, inst)
	}
	return q, nil
}

// moduleElement returns the <{tag}> element under the <activity> root.
func moduleElement(f *xmldoc.File, tag string) (*etree.Element, error) {
	root := f.Root()
	if root == nil {
		return nil, fmt.Errorf("course: %s: empty document", f.Path())
	}
	el := root.SelectElement(tag)
	if el == nil {
		return nil, fmt.Errorf("course: %s: missing <%s>", f.Path(), tag)
	}
	return el, nil
}

func atoiField(el *etree.Element, tag string) (int, error) {
	s := xmldoc.ChildText(el, "./"+tag)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", tag, s, err)
	}
	return n, nil
}
