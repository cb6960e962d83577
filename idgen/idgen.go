// Package idgen provides pluggable ID generation for the migration tools.
//
// Every component that mints identifiers (content tagging, block tagging,
// question bank idnumbers, ledger runs) accepts a Generator, so tests can
// swap in a deterministic sequence.
package idgen

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv4 returns a Generator that produces random RFC 9562 version 4 UUIDs.
// Content ids and question bank idnumbers must be v4.
func UUIDv4() Generator {
	return func() string {
		return uuid.NewString()
	}
}

// UUIDv7 returns a Generator that produces time-sortable UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator yielding prefix1, prefix2, ... in order.
// Meant for tests and dry runs where stable output matters.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}

// Default is the content id strategy: UUID v4.
var Default Generator = UUIDv4()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns its canonical form or an error.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}
	return u.String(), nil
}

// IsUUID4 reports whether s is a canonical (36 character) version 4 UUID.
func IsUUID4(s string) bool {
	if len(s) != 36 {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
