// Package audit records every mutating mbzmig command in an SQLite table,
// next to the content ledger: what ran, on which package, how long it took
// and whether it failed.
//
// Usage:
//
//	l := audit.NewSQLiteLogger(db)
//	l.Init()
//	err := audit.Run(ctx, l, "extract", map[string]string{"package": root}, func(ctx context.Context) (string, error) {
//	    ...
//	})
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/mbzmig/idgen"
)

// Entry is one audit record.
type Entry struct {
	EntryID    string
	Timestamp  int64 // unix milliseconds
	Action     string
	Parameters string // JSON
	Result     string
	Status     string // success | error
	Error      string
	DurationMs int64
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id       TEXT PRIMARY KEY,
    timestamp      INTEGER NOT NULL,
    action         TEXT NOT NULL,
    parameters     TEXT,
    result         TEXT,
    status         TEXT NOT NULL,
    error_message  TEXT,
    duration_ms    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action, timestamp);
`

// SQLiteLogger writes entries to the audit_log table.
type SQLiteLogger struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// Option customises a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator sets the entry id generator. Default: "aud_" + UUID v7.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// NewSQLiteLogger creates a logger on db. Call Init before the first Log.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.UUIDv7()),
		now:   time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Init creates the audit_log table.
func (l *SQLiteLogger) Init() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("audit: init: %w", err)
	}
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = l.now().UnixMilli()
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

// Log writes one entry, filling id, timestamp and status when unset.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log (entry_id, timestamp, action, parameters, result, status, error_message, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntryID, e.Timestamp, e.Action, e.Parameters, e.Result, e.Status, e.Error, e.DurationMs)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *SQLiteLogger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT entry_id, timestamp, action, COALESCE(parameters, ''), COALESCE(result, ''),
		        status, COALESCE(error_message, ''), COALESCE(duration_ms, 0)
		 FROM audit_log ORDER BY timestamp DESC, entry_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.Action, &e.Parameters, &e.Result,
			&e.Status, &e.Error, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Run executes fn and records it under action. params is stored as JSON and
// fn's result string as the entry result. fn's error is returned unchanged;
// a failure to write the audit entry is returned only when fn succeeded.
func Run(ctx context.Context, l *SQLiteLogger, action string, params any, fn func(context.Context) (string, error)) error {
	start := time.Now()
	result, err := fn(ctx)

	e := &Entry{
		Action:     action,
		Result:     result,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if params != nil {
		if b, merr := json.Marshal(params); merr == nil {
			e.Parameters = string(b)
		}
	}
	if err != nil {
		e.Error = err.Error()
	}
	if lerr := l.Log(ctx, e); lerr != nil && err == nil {
		return lerr
	}
	return err
}
