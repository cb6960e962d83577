package qbank

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/mbzmig/course/coursetest"
	"github.com/hazyhaar/mbzmig/idgen"
)

func loadSample(t *testing.T) (*Bank, string) {
	t.Helper()
	root := coursetest.Sample(t)
	b, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return b, root
}

func TestLoad_Structure(t *testing.T) {
	b, _ := loadSample(t)
	if got := len(b.Categories()); got != 3 {
		t.Fatalf("categories: got %d, want 3", got)
	}
	var ids []string
	for _, e := range b.Entries() {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "101,102,201,202" {
		t.Fatalf("entries: got %s", got)
	}
	qs, err := b.Questions()
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 5 {
		t.Fatalf("questions: got %d, want 5", len(qs))
	}
	e, ok := b.Entry("101")
	if !ok || len(e.Versions) != 2 || e.Latest().Question.ID != "1002" {
		t.Fatalf("entry 101 versions not indexed: %+v", e)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing questions.xml")
	}
}

func TestQuestions_ByID(t *testing.T) {
	b, _ := loadSample(t)
	qs, err := b.Questions("1003", "1001")
	if err != nil {
		t.Fatal(err)
	}
	if qs[0].Name != "Q102" || qs[1].Name != "Q101 v1" {
		t.Fatalf("order not preserved: %s, %s", qs[0].Name, qs[1].Name)
	}

	_, err = b.Questions("1001", "9999")
	var nf *QuestionNotFoundError
	if !errors.As(err, &nf) || nf.QuestionID != "9999" {
		t.Fatalf("expected QuestionNotFoundError for 9999, got %v", err)
	}
}

func TestQuestionByEntry(t *testing.T) {
	b, _ := loadSample(t)
	tests := []struct {
		entry, version string
		want           string
	}{
		{"101", NullSentinel, "1002"},
		{"101", "1", "1001"},
		{"101", "2", "1002"},
		{"102", "1", "1003"},
		{"102", NullSentinel, "1003"},
	}
	for _, tt := range tests {
		q, err := b.QuestionByEntry(tt.entry, tt.version)
		if err != nil {
			t.Errorf("QuestionByEntry(%s, %s): %v", tt.entry, tt.version, err)
			continue
		}
		if q.ID != tt.want {
			t.Errorf("QuestionByEntry(%s, %s) = %s, want %s", tt.entry, tt.version, q.ID, tt.want)
		}
	}
}

func TestQuestionByEntry_Errors(t *testing.T) {
	b, _ := loadSample(t)

	_, err := b.QuestionByEntry("101", "7")
	var vnf *VersionNotFoundError
	if !errors.As(err, &vnf) {
		t.Fatalf("expected VersionNotFoundError, got %v", err)
	}

	_, err = b.QuestionByEntry("999", "1")
	var qnf *QuestionNotFoundError
	if !errors.As(err, &qnf) || qnf.EntryID != "999" {
		t.Fatalf("expected QuestionNotFoundError for entry 999, got %v", err)
	}
}

func TestHTMLElements(t *testing.T) {
	b, _ := loadSample(t)
	els := b.HTMLElements()
	if len(els) != 14 {
		for _, el := range els {
			t.Log(el.Location())
		}
		t.Fatalf("HTMLElements: got %d, want 14", len(els))
	}

	qs, _ := b.Questions("1003")
	if got := len(qs[0].Answers()); got != 2 {
		t.Fatalf("Answers: got %d, want 2", got)
	}
	qs, _ = b.Questions("2002")
	m := qs[0].Matches()
	if len(m) != 2 || m[1].Raw() != "Right" {
		t.Fatalf("Matches: unexpected %d elements", len(m))
	}
}

func TestInjectEntryUUIDs(t *testing.T) {
	b, root := loadSample(t)
	n := b.InjectEntryUUIDs(idgen.UUIDv4())
	if n != 3 {
		t.Fatalf("injected %d, want 3", n)
	}
	if written, err := b.Save(); err != nil || written != 1 {
		t.Fatalf("Save: %d, %v", written, err)
	}

	reloaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range reloaded.Entries() {
		if !idgen.IsUUID4(e.IDNumber()) {
			t.Errorf("entry %s idnumber %q is not a v4 UUID", e.ID, e.IDNumber())
		}
	}
	if e, _ := reloaded.Entry("102"); e.IDNumber() != coursetest.EntryUUID {
		t.Errorf("pre-assigned idnumber changed to %q", e.IDNumber())
	}
	// Category idnumbers share the sentinel but are not entry identifiers.
	for _, c := range reloaded.Categories() {
		if c.IDNumber() != coursetest.CategoryIDNumber {
			t.Errorf("category %s idnumber rewritten to %q", c.ID, c.IDNumber())
		}
	}
	if bad := reloaded.InvalidEntryIDNumbers(); len(bad) != 0 {
		t.Errorf("invalid idnumbers after injection: %v", bad)
	}

	if n := reloaded.InjectEntryUUIDs(idgen.UUIDv4()); n != 0 {
		t.Fatalf("second injection wrote %d ids", n)
	}
	if written, _ := reloaded.Save(); written != 0 {
		t.Fatal("unchanged bank must not be rewritten")
	}
}

func TestInvalidEntryIDNumbers(t *testing.T) {
	root := coursetest.Sample(t)
	xml := strings.Replace(coursetest.QuestionsXML, coursetest.EntryUUID, "legacy-42", 1)
	coursetest.Write(t, root, File, xml)
	b, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	bad := b.InvalidEntryIDNumbers()
	if len(bad) != 1 || bad[0] != "102" {
		t.Fatalf("got %v, want [102]", bad)
	}
}

func TestPrune(t *testing.T) {
	b, root := loadSample(t)
	removed := b.DeleteUnusedEntries(map[string]bool{"101": true, "102": true})
	if removed != 2 {
		t.Fatalf("removed %d entries, want 2", removed)
	}
	if got := len(b.Categories()); got != 3 {
		t.Fatalf("entry deletion must keep categories, got %d", got)
	}
	if n := b.DeleteEmptyCategories(); n != 2 {
		t.Fatalf("removed %d categories, want 2", n)
	}
	if _, err := b.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, File))
	if err != nil {
		t.Fatal(err)
	}
	for _, gone := range []string{`id="201"`, `id="202"`, "<name>Unused</name>", "<name>Empty</name>"} {
		if strings.Contains(string(data), gone) {
			t.Errorf("%s still present after prune", gone)
		}
	}

	reloaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Categories()) != 1 || len(reloaded.Entries()) != 2 {
		t.Fatalf("reloaded: %d categories, %d entries", len(reloaded.Categories()), len(reloaded.Entries()))
	}
	if _, err := reloaded.Questions("2001"); err == nil {
		t.Fatal("pruned question still resolvable")
	}
}

func TestSave_Untouched(t *testing.T) {
	b, root := loadSample(t)
	before, _ := os.ReadFile(filepath.Join(root, File))
	if n, err := b.Save(); err != nil || n != 0 {
		t.Fatalf("Save: %d, %v", n, err)
	}
	after, _ := os.ReadFile(filepath.Join(root, File))
	if string(before) != string(after) {
		t.Fatal("untouched bank was rewritten")
	}
}
