package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mbzmig/contentmap"
	"github.com/hazyhaar/mbzmig/course"
	"github.com/hazyhaar/mbzmig/idgen"
	"github.com/hazyhaar/mbzmig/qbank"
	"github.com/hazyhaar/mbzmig/quizref"
	"github.com/hazyhaar/mbzmig/tagging"
)

var errUsage = errors.New("missing arguments (see mbzmig help)")

// sources loads the course and, when configured, the question bank.
func (a *app) sources(root string) ([]tagging.Source, error) {
	c, err := course.Load(root, course.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	srcs := []tagging.Source{c}
	if a.cfg.Tagging.IncludeQuestionBank {
		bank, err := qbank.Load(root)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, bank)
	}
	return srcs, nil
}

func (a *app) engine() *tagging.Engine {
	return tagging.New(a.cfg.Engine(a.logger))
}

func (a *app) contentDir(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return a.cfg.Output.ContentDir
}

// cmdExtract writes the content map (and its JSON, Markdown and ledger
// copies) before the course files get their placeholders. A failed output
// leaves the package as it was.
func (a *app) cmdExtract(args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	root := args[0]
	srcs, err := a.sources(root)
	if err != nil {
		return "", err
	}
	_, rep, err := a.engine().ExtractTo(func(m *contentmap.Map) error {
		return a.persist(root, a.contentDir(args, 1), m)
	}, srcs...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("extracted %d fragments (%d already tagged), %d files updated",
		rep.Extracted, rep.Tagged, rep.FilesWritten), nil
}

func (a *app) persist(root, dir string, m *contentmap.Map) error {
	n, err := contentmap.WriteDir(m, dir)
	if err != nil {
		return err
	}
	a.logger.Info("content written", "dir", dir, "count", n)

	if out := a.cfg.Output.JSONDir; out != "" {
		if _, err := contentmap.WriteJSON(contentmap.FromMap(m), out); err != nil {
			return err
		}
	}
	if out := a.cfg.Output.MarkdownDir; out != "" {
		if _, err := contentmap.NewMarkdown().WriteDir(m, out); err != nil {
			return err
		}
	}
	if !a.cfg.Ledger.Enabled {
		return nil
	}
	ledger, err := a.ledger()
	if err != nil {
		return err
	}
	runID, err := ledger.RecordRun(a.ctx, root, m)
	if err != nil {
		return err
	}
	a.logger.Info("run recorded", "run", runID, "count", m.Len())
	return nil
}

func (a *app) cmdRestore(args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	m, err := contentmap.ReadDir(a.contentDir(args, 1))
	if err != nil {
		return "", err
	}
	srcs, err := a.sources(args[0])
	if err != nil {
		return "", err
	}
	rep, err := a.engine().Restore(m, srcs...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("restored %d fragments, %d files updated", rep.Restored, rep.FilesWritten), nil
}

func (a *app) cmdTagBlocks(args []string) (string, error) {
	dir := a.contentDir(args, 0)
	rep, err := tagging.NewBlockTagger(a.cfg.Engine(a.logger)).TagDir(dir)
	if err != nil {
		return "", err
	}
	for _, o := range rep.Orphans {
		fmt.Fprintf(os.Stderr, "  variant without canonical page: %s\n", o)
	}
	for _, c := range rep.Collisions {
		fmt.Fprintf(os.Stderr, "  id %s shared by %s\n", c.ID, strings.Join(c.Paths, ", "))
	}
	return fmt.Sprintf("%d blocks: %d variant ids replaced, %d ids assigned, %d files updated",
		rep.Blocks, rep.Retagged, rep.Assigned, rep.FilesWritten), nil
}

func (a *app) cmdToJSON(args []string) (string, error) {
	if len(args) < 2 {
		return "", errUsage
	}
	docs, err := contentmap.LoadVariants(args[0])
	if err != nil {
		return "", err
	}
	n, err := contentmap.WriteJSON(docs, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d documents to %s", n, args[1]), nil
}

func (a *app) cmdInjectIDs(args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	bank, err := qbank.Load(args[0])
	if err != nil {
		return "", err
	}
	n := bank.InjectEntryUUIDs(idgen.UUIDv4())
	if _, err := bank.Save(); err != nil {
		return "", err
	}
	for _, id := range bank.InvalidEntryIDNumbers() {
		a.logger.Warn("entry idnumber is not a UUID", "entry", id)
	}
	return fmt.Sprintf("assigned %d entry ids", n), nil
}

func (a *app) cmdPruneQBank(args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	c, err := course.Load(args[0], course.WithLogger(a.logger))
	if err != nil {
		return "", err
	}
	bank, err := qbank.Load(args[0])
	if err != nil {
		return "", err
	}
	used := make(map[string]bool)
	for _, q := range c.Quizzes() {
		for _, id := range quizref.UsedEntryIDs(q) {
			used[id] = true
		}
	}
	entries := bank.DeleteUnusedEntries(used)
	categories := bank.DeleteEmptyCategories()
	if _, err := bank.Save(); err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d entries and %d categories", entries, categories), nil
}

func (a *app) cmdQuizQuestions(args []string) (string, error) {
	if len(args) < 1 {
		return "", errUsage
	}
	c, err := course.Load(args[0], course.WithLogger(a.logger))
	if err != nil {
		return "", err
	}
	bank, err := qbank.Load(args[0])
	if err != nil {
		return "", err
	}
	rows, err := quizref.Rows(c.Quizzes(), bank)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (a *app) cmdStripAttr(args []string) (string, error) {
	if len(args) < 2 {
		return "", errUsage
	}
	srcs, err := a.sources(args[0])
	if err != nil {
		return "", err
	}
	rep, err := a.engine().StripAttribute(args[1], srcs...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %q from %d fragments, %d files updated", args[1], rep.Touched, rep.FilesWritten), nil
}

func (a *app) cmdRewriteLinks(args []string) (string, error) {
	if len(args) < 2 {
		return "", errUsage
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return "", err
	}
	var mapping map[string]string
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return "", fmt.Errorf("parse mapping %s: %w", args[1], err)
	}
	srcs, err := a.sources(args[0])
	if err != nil {
		return "", err
	}
	applied, rep, err := a.engine().RewriteLinks(mapping, srcs...)
	if err != nil {
		return "", err
	}
	for _, old := range slices.Sorted(maps.Keys(applied)) {
		fmt.Fprintf(os.Stderr, "  %s -> %s\n", old, applied[old])
	}
	return fmt.Sprintf("rewrote %d links in %d fragments, %d files updated", len(applied), rep.Touched, rep.FilesWritten), nil
}

func (a *app) cmdRuns(args []string) (string, error) {
	ledger, err := a.ledger()
	if err != nil {
		return "", err
	}
	runs, err := ledger.Runs(a.ctx)
	if err != nil {
		return "", err
	}
	for _, r := range runs {
		fmt.Printf("%s\t%s\t%d\t%s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Entries, r.Root)
	}
	return "", nil
}
