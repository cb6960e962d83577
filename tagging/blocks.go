package tagging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/mbzmig/horosafe"
	"github.com/hazyhaar/mbzmig/htmlfrag"
)

// BlockTagger assigns content ids to interactive blocks in a directory of
// extracted HTML files.
//
// Layout: dir/{name}.html are canonical pages, dir/{variant}/{name}.html are
// renditions of the same page. Variants start life as copies of the
// canonical page and inherit its block ids, which they must not share.
type BlockTagger struct {
	cfg    Config
	logger *slog.Logger
}

// NewBlockTagger creates a BlockTagger.
func NewBlockTagger(cfg Config) *BlockTagger {
	cfg.defaults()
	return &BlockTagger{cfg: cfg, logger: cfg.Logger}
}

// BlockReport counts what TagDir did.
type BlockReport struct {
	Canonical    int
	Variants     int
	Blocks       int
	Retagged     int // variant blocks that carried a canonical id
	Assigned     int // blocks that had no id
	FilesWritten int
	// Orphans lists variant files without a canonical page of the same name.
	Orphans []string
	// Collisions lists ids that variant blocks share with each other but not
	// with a canonical page. They are reported, not rewritten.
	Collisions []IDCollision
}

// IDCollision is an id carried by more than one variant block.
type IDCollision struct {
	ID    string
	Paths []string
}

type htmlFile struct {
	path    string
	variant string // "" for canonical
	perm    os.FileMode
	frag    *htmlfrag.Fragment
	blocks  []*html.Node
	changed bool
}

// TagDir runs three phases over dir:
//
//  1. collect the ids of blocks in canonical pages
//  2. give variant blocks whose id was collected a fresh id
//  3. give every block without an id a fresh id
//
// Blocks with an id of their own are never touched. Fresh ids avoid every
// id already present in dir. All files are parsed
// before any is written.
func (b *BlockTagger) TagDir(dir string) (BlockReport, error) {
	var rep BlockReport
	files, err := b.scan(dir)
	if err != nil {
		return rep, err
	}

	canonical := make(map[string]bool)
	for _, f := range files {
		if f.variant == "" {
			rep.Canonical++
			canonical[filepath.Base(f.path)] = true
		} else {
			rep.Variants++
		}
		rep.Blocks += len(f.blocks)
	}
	for _, f := range files {
		if f.variant != "" && !canonical[filepath.Base(f.path)] {
			rep.Orphans = append(rep.Orphans, f.path)
			b.logger.Warn("variant without canonical page", "path", f.path, "variant", f.variant)
		}
	}

	// Phase 1.
	canonicalIDs := make(map[string]bool)
	taken := make(map[string]bool)
	for _, f := range files {
		for _, n := range f.blocks {
			id, ok := htmlfrag.Attr(n, b.cfg.ContentIDAttr)
			if !ok || id == "" {
				continue
			}
			taken[id] = true
			if f.variant == "" {
				canonicalIDs[id] = true
			}
		}
	}

	// Phase 2.
	owners := make(map[string][]string)
	var order []string
	for _, f := range files {
		if f.variant == "" {
			continue
		}
		for _, n := range f.blocks {
			id, ok := htmlfrag.Attr(n, b.cfg.ContentIDAttr)
			if !ok || id == "" {
				continue
			}
			if !canonicalIDs[id] {
				if _, dup := owners[id]; !dup {
					order = append(order, id)
				}
				owners[id] = append(owners[id], f.path)
				continue
			}
			fresh := b.freshID(taken)
			htmlfrag.SetAttr(n, b.cfg.ContentIDAttr, fresh)
			f.changed = true
			rep.Retagged++
			b.logger.Debug("variant block retagged", "path", f.path, "old", id, "id", fresh)
		}
	}
	for _, id := range order {
		if paths := owners[id]; len(paths) > 1 {
			rep.Collisions = append(rep.Collisions, IDCollision{ID: id, Paths: paths})
			b.logger.Warn("id shared by variant blocks", "id", id, "paths", paths)
		}
	}

	// Phase 3.
	for _, f := range files {
		for _, n := range f.blocks {
			if id, ok := htmlfrag.Attr(n, b.cfg.ContentIDAttr); ok && id != "" {
				continue
			}
			htmlfrag.SetAttr(n, b.cfg.ContentIDAttr, b.freshID(taken))
			f.changed = true
			rep.Assigned++
		}
	}

	for _, f := range files {
		if !f.changed {
			continue
		}
		if err := horosafe.WriteFileAtomic(f.path, []byte(f.frag.String()), f.perm); err != nil {
			return rep, fmt.Errorf("tagging: %w", err)
		}
		rep.FilesWritten++
	}
	b.logger.Info("block tagging done",
		"dir", dir, "blocks", rep.Blocks, "retagged", rep.Retagged,
		"assigned", rep.Assigned, "files", rep.FilesWritten,
		"orphans", len(rep.Orphans), "collisions", len(rep.Collisions))
	return rep, nil
}

// freshID returns an id not present in taken and records it.
func (b *BlockTagger) freshID(taken map[string]bool) string {
	for {
		id := b.cfg.NewID()
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

// scan reads and parses dir/*.html and dir/*/*.html, canonical files first.
func (b *BlockTagger) scan(dir string) ([]*htmlFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tagging: %w", err)
	}
	var files, variants []*htmlFile
	for _, ent := range entries {
		path := filepath.Join(dir, ent.Name())
		switch {
		case ent.IsDir():
			vfiles, err := b.scanVariant(path, ent.Name())
			if err != nil {
				return nil, err
			}
			variants = append(variants, vfiles...)
		case isHTML(ent):
			f, err := b.load(path, "")
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return append(files, variants...), nil
}

func (b *BlockTagger) scanVariant(dir, variant string) ([]*htmlFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("tagging: %w", err)
	}
	var files []*htmlFile
	for _, ent := range entries {
		path := filepath.Join(dir, ent.Name())
		if ent.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNestedVariant, path)
		}
		if !isHTML(ent) {
			continue
		}
		f, err := b.load(path, variant)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (b *BlockTagger) load(path, variant string) (*htmlFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("tagging: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tagging: %w", err)
	}
	if htmlfrag.IsDocument(string(data)) {
		return nil, fmt.Errorf("%w: %s", ErrWholeDocument, path)
	}
	frag, err := htmlfrag.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("tagging: %s: %w", path, err)
	}
	return &htmlFile{
		path:    path,
		variant: variant,
		perm:    info.Mode().Perm(),
		frag:    frag,
		blocks:  frag.FindByClasses(b.cfg.BlockClasses...),
	}, nil
}

func isHTML(ent os.DirEntry) bool {
	return ent.Type().IsRegular() && strings.HasSuffix(ent.Name(), ".html")
}
