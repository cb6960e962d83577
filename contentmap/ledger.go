package contentmap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mbzmig/dbopen"
	"github.com/hazyhaar/mbzmig/idgen"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    root        TEXT NOT NULL,
    started_at  TEXT NOT NULL,
    entries     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contents (
    id          TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    location    TEXT NOT NULL,
    html        TEXT NOT NULL,
    preview     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contents_run ON contents(run_id, seq);
`

// previewRunes bounds the preview column.
const previewRunes = 120

// Ledger records every extraction run and the content it produced, so ids
// minted by past runs can be traced back to their source location.
type Ledger struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// Run is one recorded extraction run.
type Run struct {
	ID        string
	Root      string
	StartedAt time.Time
	Entries   int
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(ledgerSchema))
	if err != nil {
		return nil, fmt.Errorf("contentmap: ledger: %w", err)
	}
	return &Ledger{db: db, newID: idgen.Prefixed("run_", idgen.UUIDv7()), now: time.Now}, nil
}

// NewLedger wraps an open database, creating the tables if needed.
func NewLedger(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(ledgerSchema); err != nil {
		return nil, fmt.Errorf("contentmap: ledger schema: %w", err)
	}
	return &Ledger{db: db, newID: idgen.Prefixed("run_", idgen.UUIDv7()), now: time.Now}, nil
}

// DB returns the underlying database.
func (l *Ledger) DB() *sql.DB { return l.db }

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// RecordRun stores m under a new run for the package at root and returns
// the run id. An empty map still records the run.
func (l *Ledger) RecordRun(ctx context.Context, root string, m *Map) (string, error) {
	runID := l.newID()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("contentmap: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, started_at, entries) VALUES (?, ?, ?, ?)`,
		runID, root, l.now().UTC().Format(time.RFC3339Nano), m.Len()); err != nil {
		return "", fmt.Errorf("contentmap: insert run: %w", err)
	}
	for i, e := range m.entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO contents (id, run_id, seq, location, html, preview) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, runID, i, e.Location, e.HTML, Preview(e.HTML, previewRunes)); err != nil {
			return "", fmt.Errorf("contentmap: insert %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("contentmap: commit: %w", err)
	}
	return runID, nil
}

// Load returns the content recorded by runID, or by every run when runID is
// empty, in recording order.
func (l *Ledger) Load(ctx context.Context, runID string) (*Map, error) {
	q := `SELECT c.id, c.html, c.location FROM contents c JOIN runs r ON r.id = c.run_id`
	var args []any
	if runID != "" {
		q += ` WHERE c.run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY r.started_at, c.run_id, c.seq`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("contentmap: query contents: %w", err)
	}
	defer rows.Close()

	m := New()
	for rows.Next() {
		var id, html, loc string
		if err := rows.Scan(&id, &html, &loc); err != nil {
			return nil, fmt.Errorf("contentmap: scan: %w", err)
		}
		if err := m.Put(id, html, loc); err != nil {
			return nil, err
		}
	}
	return m, rows.Err()
}

// Runs lists recorded runs, oldest first.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, root, started_at, entries FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("contentmap: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &r.Root, &started, &r.Entries); err != nil {
			return nil, fmt.Errorf("contentmap: scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, r)
	}
	return out, rows.Err()
}
