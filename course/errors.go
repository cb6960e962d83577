package course

import (
	"errors"
	"fmt"
)

// ErrManifestMissing is returned when the package root has no backup manifest.
var ErrManifestMissing = errors.New("course: backup manifest missing")

// ActivityFileMissingError is returned when a manifest entry points to a
// directory that lacks the XML file for its declared module type.
type ActivityFileMissingError struct {
	ModuleName string
	Directory  string
	Path       string
}

func (e *ActivityFileMissingError) Error() string {
	return fmt.Sprintf("course: %s activity file missing: %s", e.ModuleName, e.Path)
}

// BrokenChainError is returned when a lesson's prev/next page pointers do
// not form a single chain covering every page.
type BrokenChainError struct {
	Lesson string
	PageID string
	Reason string
}

func (e *BrokenChainError) Error() string {
	if e.PageID == "" {
		return fmt.Sprintf("course: lesson %q: %s", e.Lesson, e.Reason)
	}
	return fmt.Sprintf("course: lesson %q page %s: %s", e.Lesson, e.PageID, e.Reason)
}
