package course

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/hazyhaar/mbzmig/xmldoc"
)

// Lesson is a lesson activity. Pages are in link order, not file order.
type Lesson struct {
	base
	Pages []*LessonPage
}

// LessonPage is one page of a lesson.
type LessonPage struct {
	ID      string
	PrevID  string
	NextID  string
	Title   string
	Content *xmldoc.HTMLElement
	Answers []*xmldoc.HTMLElement

	contentEl *etree.Element
	answerEls []*etree.Element
}

func (l *Lesson) Kind() Kind { return KindLesson }

// HTMLElements returns, page by page, the content element followed by the
// answer elements.
func (l *Lesson) HTMLElements() []*xmldoc.HTMLElement {
	var out []*xmldoc.HTMLElement
	for _, p := range l.Pages {
		if p.Content != nil {
			out = append(out, p.Content)
		}
		out = append(out, p.Answers...)
	}
	return out
}

func parseLesson(f *xmldoc.File, entry ManifestEntry) (*Lesson, error) {
	el, err := moduleElement(f, "lesson")
	if err != nil {
		return nil, err
	}
	l := &Lesson{base: base{
		entry: entry,
		id:    el.SelectAttrValue("id", ""),
		name:  xmldoc.ChildText(el, "./name"),
		file:  f,
	}}

	var pages []*LessonPage
	for _, pe := range el.FindElements("./pages/page") {
		p := &LessonPage{
			ID:        pe.SelectAttrValue("id", ""),
			PrevID:    xmldoc.ChildText(pe, "./prevpageid"),
			NextID:    xmldoc.ChildText(pe, "./nextpageid"),
			Title:     xmldoc.ChildText(pe, "./title"),
			contentEl: pe.SelectElement("contents"),
		}
		for _, ae := range pe.FindElements("./answers/answer") {
			for _, tag := range []string{"answer_text", "response"} {
				if te := ae.SelectElement(tag); te != nil {
					p.answerEls = append(p.answerEls, te)
				}
			}
		}
		pages = append(pages, p)
	}

	if l.Pages, err = orderPages(l.name, pages); err != nil {
		return nil, err
	}

	for i, p := range l.Pages {
		loc := fmt.Sprintf("lesson %q page %d (%s)", l.name, i+1, p.Title)
		if p.contentEl != nil {
			p.Content = xmldoc.NewHTMLElement(f, p.contentEl, loc)
		}
		for j, ae := range p.answerEls {
			p.Answers = append(p.Answers, xmldoc.NewHTMLElement(f, ae, fmt.Sprintf("%s answer %d %s", loc, j+1, ae.Tag)))
		}
		p.contentEl, p.answerEls = nil, nil
	}
	return l, nil
}

// orderPages rebuilds the prev/next chain: the head is the page whose
// prevpageid is 0, then nextpageid pointers are followed until 0. Every page
// must be reached exactly once.
func orderPages(lesson string, pages []*LessonPage) ([]*LessonPage, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	byID := make(map[string]*LessonPage, len(pages))
	var head *LessonPage
	for _, p := range pages {
		if _, dup := byID[p.ID]; dup {
			return nil, &BrokenChainError{Lesson: lesson, PageID: p.ID, Reason: "duplicate page id"}
		}
		byID[p.ID] = p
		if isNullPageID(p.PrevID) {
			if head != nil {
				return nil, &BrokenChainError{Lesson: lesson, PageID: p.ID, Reason: "more than one head page"}
			}
			head = p
		}
	}
	if head == nil {
		return nil, &BrokenChainError{Lesson: lesson, Reason: "no page with prevpageid 0"}
	}

	ordered := make([]*LessonPage, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	for p := head; ; {
		if seen[p.ID] {
			return nil, &BrokenChainError{Lesson: lesson, PageID: p.ID, Reason: "cycle in nextpageid chain"}
		}
		seen[p.ID] = true
		ordered = append(ordered, p)
		if isNullPageID(p.NextID) {
			break
		}
		next, ok := byID[p.NextID]
		if !ok {
			return nil, &BrokenChainError{Lesson: lesson, PageID: p.ID, Reason: fmt.Sprintf("nextpageid %s does not exist", p.NextID)}
		}
		p = next
	}

	if len(ordered) != len(pages) {
		for _, p := range pages {
			if !seen[p.ID] {
				return nil, &BrokenChainError{Lesson: lesson, PageID: p.ID, Reason: "page not reachable from head"}
			}
		}
	}
	return ordered, nil
}

func isNullPageID(id string) bool { return id == "" || id == "0" }
