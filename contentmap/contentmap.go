// Package contentmap holds the run-scoped mapping from content id to
// extracted HTML, and the writers that persist it for downstream tools:
// one file per id, JSON documents with variants, Markdown review copies and
// an SQLite ledger of runs.
package contentmap

import (
	"fmt"
)

// Entry is one extracted fragment.
type Entry struct {
	ID   string
	HTML string
	// Location is where the fragment came from (activity and position, or
	// a file path). Diagnostics only.
	Location string
}

// DuplicateIDError is returned by Put when an id is already mapped.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("contentmap: duplicate content id %s", e.ID)
}

// Map is an insertion-ordered id → HTML mapping.
type Map struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty Map.
func New() *Map {
	return &Map{index: make(map[string]int)}
}

// Put adds an entry. Ids are unique within a map.
func (m *Map) Put(id, html, location string) error {
	if _, ok := m.index[id]; ok {
		return &DuplicateIDError{ID: id}
	}
	m.index[id] = len(m.entries)
	m.entries = append(m.entries, Entry{ID: id, HTML: html, Location: location})
	return nil
}

// Get returns the HTML stored under id.
func (m *Map) Get(id string) (string, bool) {
	i, ok := m.index[id]
	if !ok {
		return "", false
	}
	return m.entries[i].HTML, true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Entries returns the entries in insertion order.
func (m *Map) Entries() []Entry { return append([]Entry(nil), m.entries...) }

// IDs returns the ids in insertion order.
func (m *Map) IDs() []string {
	ids := make([]string, len(m.entries))
	for i, e := range m.entries {
		ids[i] = e.ID
	}
	return ids
}

// Merge copies every entry of other into m, failing on the first
// duplicate id.
func (m *Map) Merge(other *Map) error {
	for _, e := range other.entries {
		if err := m.Put(e.ID, e.HTML, e.Location); err != nil {
			return err
		}
	}
	return nil
}
