package tagging

import (
	"errors"
	"fmt"
)

// ErrNestedVariant is returned when a variant directory contains further
// directories. Only one level of variants is supported.
var ErrNestedVariant = errors.New("tagging: nested variant directory")

// ErrWholeDocument is returned when a content file carries a doctype or
// <html>, <head> or <body> tags. Content files hold fragments; rewriting a
// document as a fragment would drop its wrappers.
var ErrWholeDocument = errors.New("tagging: whole HTML document, expected a fragment")

// ContentIDNotFoundError is returned by Restore when a placeholder refers to
// an id missing from the content map.
type ContentIDNotFoundError struct {
	ID       string
	Location string
}

func (e *ContentIDNotFoundError) Error() string {
	return fmt.Sprintf("tagging: content id %s not found (%s)", e.ID, e.Location)
}
