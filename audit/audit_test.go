package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/mbzmig/dbopen"
	"github.com/hazyhaar/mbzmig/idgen"

	_ "modernc.org/sqlite"
)

func setupLogger(t *testing.T, opts ...Option) *SQLiteLogger {
	t.Helper()
	l := NewSQLiteLogger(dbopen.OpenMemory(t), opts...)
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestSQLiteLogger_Init(t *testing.T) {
	db := dbopen.OpenMemory(t)
	l := NewSQLiteLogger(db)
	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='audit_log'").Scan(&count)
	if count != 1 {
		t.Fatal("audit_log table not created")
	}
	if err := l.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestSQLiteLogger_Log(t *testing.T) {
	l := setupLogger(t)
	entry := &Entry{Action: "extract", Parameters: `{"package":"/pkg"}`}
	if err := l.Log(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	if entry.EntryID == "" || entry.Timestamp == 0 {
		t.Fatalf("defaults not filled: %+v", entry)
	}
	if entry.Status != "success" {
		t.Fatalf("status: got %q, want success", entry.Status)
	}

	var action string
	l.db.QueryRow("SELECT action FROM audit_log WHERE entry_id = ?", entry.EntryID).Scan(&action)
	if action != "extract" {
		t.Fatalf("DB action: got %q", action)
	}
}

func TestSQLiteLogger_ErrorStatus(t *testing.T) {
	l := setupLogger(t)
	entry := &Entry{Action: "restore", Error: "content id missing"}
	l.Log(context.Background(), entry)
	if entry.Status != "error" {
		t.Fatalf("status for error entry: got %q", entry.Status)
	}
}

func TestSQLiteLogger_WithIDGenerator(t *testing.T) {
	l := setupLogger(t, WithIDGenerator(idgen.Sequence("aud_")))
	entry := &Entry{Action: "custom_gen"}
	l.Log(context.Background(), entry)
	if entry.EntryID != "aud_1" {
		t.Fatalf("custom ID: got %q", entry.EntryID)
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	l := setupLogger(t, WithIDGenerator(idgen.Sequence("aud_")))

	err := Run(ctx, l, "prune-qbank", map[string]string{"package": "/pkg"}, func(context.Context) (string, error) {
		return "removed 2 entries", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	errFail := errors.New("questions.xml: no such file")
	err = Run(ctx, l, "inject-ids", nil, func(context.Context) (string, error) {
		return "", errFail
	})
	if !errors.Is(err, errFail) {
		t.Fatalf("Run must return fn's error, got %v", err)
	}

	entries, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	byAction := map[string]Entry{}
	for _, e := range entries {
		byAction[e.Action] = e
	}
	ok := byAction["prune-qbank"]
	if ok.Status != "success" || ok.Result != "removed 2 entries" || ok.Parameters != `{"package":"/pkg"}` {
		t.Fatalf("success entry: %+v", ok)
	}
	bad := byAction["inject-ids"]
	if bad.Status != "error" || bad.Error != errFail.Error() || bad.Parameters != "" {
		t.Fatalf("error entry: %+v", bad)
	}
}
