// Package quizref resolves quiz question slots to question bank questions.
package quizref

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/mbzmig/course"
	"github.com/hazyhaar/mbzmig/qbank"
)

// Lookup resolves a (question bank entry, version) reference.
// *qbank.Bank implements it.
type Lookup interface {
	QuestionByEntry(entryID, version string) (*qbank.Question, error)
}

// Slot is one resolved quiz slot.
type Slot struct {
	Slot     int
	Page     int
	Instance course.QuestionInstance
	Question *qbank.Question
}

// UnresolvedError reports a slot whose reference could not be resolved.
type UnresolvedError struct {
	Quiz    string
	Slot    int
	EntryID string
	Version string
	Err     error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("quizref: quiz %q slot %d (entry %s, version %s): %v",
		e.Quiz, e.Slot, e.EntryID, e.Version, e.Err)
}

func (e *UnresolvedError) Unwrap() error { return e.Err }

// Resolve returns the quiz's questions ordered by slot number. Either every
// slot resolves or an *UnresolvedError is returned with no partial result.
func Resolve(q *course.Quiz, bank Lookup) ([]Slot, error) {
	instances := append([]course.QuestionInstance(nil), q.Instances...)
	sort.SliceStable(instances, func(i, j int) bool { return instances[i].Slot < instances[j].Slot })

	out := make([]Slot, 0, len(instances))
	for _, inst := range instances {
		question, err := bank.QuestionByEntry(inst.EntryID, inst.Version)
		if err != nil {
			return nil, &UnresolvedError{
				Quiz:    q.Name(),
				Slot:    inst.Slot,
				EntryID: inst.EntryID,
				Version: inst.Version,
				Err:     err,
			}
		}
		out = append(out, Slot{Slot: inst.Slot, Page: inst.Page, Instance: inst, Question: question})
	}
	return out, nil
}

// UsedEntryIDs returns the question bank entry of every instance in file
// order. Duplicates are kept; callers that prune union the ids across all
// quizzes.
func UsedEntryIDs(q *course.Quiz) []string {
	ids := make([]string, 0, len(q.Instances))
	for _, inst := range q.Instances {
		ids = append(ids, inst.EntryID)
	}
	return ids
}

// Row is a flat, printable view of a resolved slot.
type Row struct {
	Quiz       string `json:"quiz"`
	Slot       int    `json:"slot"`
	Page       int    `json:"page"`
	EntryID    string `json:"entry_id"`
	Version    int    `json:"version"`
	QuestionID string `json:"question_id"`
	Name       string `json:"name"`
	QType      string `json:"qtype"`
	IDNumber   string `json:"idnumber"`
}

// Rows resolves every quiz and flattens the slots for reporting, quiz by
// quiz in the order given.
func Rows(quizzes []*course.Quiz, bank Lookup) ([]Row, error) {
	var rows []Row
	for _, q := range quizzes {
		slots, err := Resolve(q, bank)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			rows = append(rows, Row{
				Quiz:       q.Name(),
				Slot:       s.Slot,
				Page:       s.Page,
				EntryID:    s.Instance.EntryID,
				Version:    s.Question.Version,
				QuestionID: s.Question.ID,
				Name:       s.Question.Name,
				QType:      s.Question.QType,
				IDNumber:   s.Question.IDNumber(),
			})
		}
	}
	return rows, nil
}
