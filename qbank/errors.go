package qbank

import "fmt"

// QuestionNotFoundError is returned when a question id, or the entry a
// lookup names, has no match in the bank.
type QuestionNotFoundError struct {
	QuestionID string
	EntryID    string
}

func (e *QuestionNotFoundError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("qbank: question bank entry not found: %s", e.EntryID)
	}
	return fmt.Sprintf("qbank: question not found: %s", e.QuestionID)
}

// VersionNotFoundError is returned when an explicit version number has no
// question under the entry.
type VersionNotFoundError struct {
	EntryID string
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("qbank: entry %s has no version %s", e.EntryID, e.Version)
}
