package course

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/mbzmig/course/coursetest"
)

func TestLoad_Sample(t *testing.T) {
	c, err := Load(coursetest.Sample(t))
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Manifest()) != 4 {
		t.Fatalf("manifest entries = %d, want 4", len(c.Manifest()))
	}
	acts := c.Activities()
	if len(acts) != 3 {
		t.Fatalf("activities = %d, want 3 (forum skipped)", len(acts))
	}
	wantKinds := []Kind{KindLesson, KindPage, KindQuiz}
	for i, a := range acts {
		if a.Kind() != wantKinds[i] {
			t.Errorf("activity %d kind = %s, want %s", i, a.Kind(), wantKinds[i])
		}
	}
	if len(c.Lessons()) != 1 || len(c.Pages()) != 1 || len(c.Quizzes()) != 1 {
		t.Fatal("typed accessors mismatch")
	}
	if c.Pages()[0].Name() != "Welcome Page" || c.Pages()[0].ID() != "4" {
		t.Errorf("page = %q id %q", c.Pages()[0].Name(), c.Pages()[0].ID())
	}
}

func TestLoad_LessonPageOrder(t *testing.T) {
	c, err := Load(coursetest.Sample(t))
	if err != nil {
		t.Fatal(err)
	}
	lesson := c.Lessons()[0]
	var titles []string
	for _, p := range lesson.Pages {
		titles = append(titles, p.Title)
	}
	if got := strings.Join(titles, ","); got != "A,B,C" {
		t.Fatalf("page order = %s, want A,B,C", got)
	}
	if len(lesson.Pages[0].Answers) != 2 {
		t.Fatalf("page A answers = %d, want 2", len(lesson.Pages[0].Answers))
	}
	if loc := lesson.Pages[0].Answers[0].Location(); !strings.Contains(loc, `lesson "Lesson One" page 1 (A) answer 1`) {
		t.Errorf("answer location = %q", loc)
	}
	// content A, answer_text, response, content B, content C
	if n := len(lesson.HTMLElements()); n != 5 {
		t.Errorf("lesson HTML elements = %d, want 5", n)
	}
}

func TestLoad_QuizInstances(t *testing.T) {
	c, err := Load(coursetest.Sample(t))
	if err != nil {
		t.Fatal(err)
	}
	q := c.Quizzes()[0]
	if q.Name() != "Quiz One" {
		t.Errorf("quiz name = %q", q.Name())
	}
	if len(q.Instances) != 3 {
		t.Fatalf("instances = %d", len(q.Instances))
	}
	first := q.Instances[0]
	if first.Slot != 2 || first.Page != 1 || first.EntryID != "101" || first.Version != "$@NULL@$" {
		t.Errorf("first instance = %+v", first)
	}
	if q.HTMLElements() != nil {
		t.Error("quiz should expose no HTML elements")
	}
}

func TestLoad_ManifestMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("err = %v, want ErrManifestMissing", err)
	}
}

func TestLoad_ActivityFileMissing(t *testing.T) {
	root := coursetest.Sample(t)
	if err := os.Remove(filepath.Join(root, "activities", "page_11", "page.xml")); err != nil {
		t.Fatal(err)
	}
	_, err := Load(root)
	var missing *ActivityFileMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want ActivityFileMissingError", err)
	}
	if missing.ModuleName != "page" || missing.Directory != "activities/page_11" {
		t.Errorf("missing = %+v", missing)
	}
}

func TestLoad_TraversalDirectory(t *testing.T) {
	root := t.TempDir()
	coursetest.Write(t, root, ManifestFile, `<moodle_backup><information><contents><activities>
<activity><moduleid>1</moduleid><modulename>page</modulename><directory>../outside</directory></activity>
</activities></contents></information></moodle_backup>`)
	if _, err := Load(root); err == nil {
		t.Fatal("expected error for directory escaping the package root")
	}
}

func TestOrderPages(t *testing.T) {
	page := func(id, prev, next string) *LessonPage {
		return &LessonPage{ID: id, PrevID: prev, NextID: next, Title: id}
	}

	tests := []struct {
		name    string
		pages   []*LessonPage
		want    string
		wantErr bool
	}{
		{"file order reversed", []*LessonPage{page("C", "B", "0"), page("B", "A", "C"), page("A", "0", "B")}, "A,B,C", false},
		{"single", []*LessonPage{page("A", "0", "0")}, "A", false},
		{"empty", nil, "", false},
		{"no head", []*LessonPage{page("A", "B", "B"), page("B", "A", "A")}, "", true},
		{"two heads", []*LessonPage{page("A", "0", "0"), page("B", "0", "0")}, "", true},
		{"dangling", []*LessonPage{page("A", "0", "Z")}, "", true},
		{"cycle", []*LessonPage{page("A", "0", "B"), page("B", "A", "A")}, "", true},
		{"orphan", []*LessonPage{page("A", "0", "0"), page("B", "A", "0")}, "", true},
		{"duplicate", []*LessonPage{page("A", "0", "0"), page("A", "0", "0")}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderPages("L", tt.pages)
			if tt.wantErr {
				var broken *BrokenChainError
				if !errors.As(err, &broken) {
					t.Fatalf("err = %v, want BrokenChainError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if strings.Join(ids, ",") != tt.want {
				t.Fatalf("order = %v, want %s", ids, tt.want)
			}
		})
	}
}

func TestSave_OnlyDirtyFiles(t *testing.T) {
	root := coursetest.Sample(t)
	c, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}

	n, err := c.Save()
	if err != nil || n != 0 {
		t.Fatalf("Save on clean course: n=%d err=%v", n, err)
	}

	pagePath := filepath.Join(root, "activities", "page_11", "page.xml")
	lessonPath := filepath.Join(root, "activities", "lesson_10", "lesson.xml")
	lessonBefore, _ := os.ReadFile(lessonPath)

	page := c.Pages()[0]
	page.Content.SetHTML("<p>Replaced</p>")
	n, err = c.Save()
	if err != nil || n != 1 {
		t.Fatalf("Save: n=%d err=%v", n, err)
	}

	data, err := os.ReadFile(pagePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "&lt;p&gt;Replaced&lt;/p&gt;") {
		t.Fatalf("page not rewritten:\n%s", data)
	}
	if !strings.Contains(string(data), "<revision>1</revision>") {
		t.Fatal("sibling element lost")
	}
	lessonAfter, _ := os.ReadFile(lessonPath)
	if string(lessonBefore) != string(lessonAfter) {
		t.Fatal("untouched lesson file was rewritten")
	}

	again, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Pages()[0].Content.Raw(); got != "<p>Replaced</p>" {
		t.Fatalf("reloaded content = %q", got)
	}
}
