package contentmap

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/mbzmig/dbopen"
	"github.com/hazyhaar/mbzmig/idgen"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	l.newID = idgen.Sequence("run_")
	return l
}

func TestLedger_RecordAndLoad(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	runID, err := l.RecordRun(ctx, "/pkg", sampleMap(t))
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run_1" {
		t.Fatalf("run id: %s", runID)
	}

	second := New()
	if err := second.Put("c-3", "<p>Third</p>", "page \"C\""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RecordRun(ctx, "/pkg", second); err != nil {
		t.Fatal(err)
	}

	m, err := l.Load(ctx, "run_1")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(m.IDs(), ","); got != "b-2,a-1" {
		t.Fatalf("run_1 ids: %s", got)
	}

	all, err := l.Load(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(all.IDs(), ","); got != "b-2,a-1,c-3" {
		t.Fatalf("all ids: %s", got)
	}
	if html, _ := all.Get("c-3"); html != "<p>Third</p>" {
		t.Fatalf("c-3 html: %q", html)
	}

	runs, err := l.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Entries != 2 || runs[1].Entries != 1 || runs[0].Root != "/pkg" {
		t.Fatalf("runs: %+v", runs)
	}
	if runs[0].StartedAt.IsZero() {
		t.Fatal("started_at not parsed")
	}
}

func TestLedger_Preview(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	if _, err := l.RecordRun(ctx, "/pkg", sampleMap(t)); err != nil {
		t.Fatal(err)
	}
	var preview string
	if err := l.DB().QueryRowContext(ctx, `SELECT preview FROM contents WHERE id = 'b-2'`).Scan(&preview); err != nil {
		t.Fatal(err)
	}
	if preview != "Second" {
		t.Fatalf("preview: %q", preview)
	}
}

func TestOpenLedger_File(t *testing.T) {
	path := t.TempDir() + "/sub/ledger.db"
	l, err := OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if _, err := l.RecordRun(context.Background(), "/pkg", New()); err != nil {
		t.Fatal(err)
	}
	runs, err := l.Runs(context.Background())
	if err != nil || len(runs) != 1 || runs[0].Entries != 0 {
		t.Fatalf("runs: %+v, %v", runs, err)
	}
}
