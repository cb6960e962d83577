package tagging

import (
	"log/slog"

	"github.com/hazyhaar/mbzmig/idgen"
)

// Defaults for the reference markup and interactive blocks.
const (
	DefaultPlaceholderClass = "os-raise-content"
	DefaultContentIDAttr    = "data-content-id"
)

// DefaultBlockClasses are the interactive block classes tagged by
// BlockTagger.
var DefaultBlockClasses = []string{
	"os-raise-ib-input",
	"os-raise-ib-pset",
	"os-raise-ib-pset-problem",
}

// DefaultLinkAttrs are the attributes rewritten by Engine.RewriteLinks.
var DefaultLinkAttrs = []string{"href", "src"}

// Config configures the Engine and BlockTagger.
type Config struct {
	// PlaceholderClass is the class of the reference div. Default: "os-raise-content".
	PlaceholderClass string
	// ContentIDAttr holds the content id on placeholders and blocks.
	// Default: "data-content-id".
	ContentIDAttr string
	// BlockClasses lists the interactive block classes. Default: DefaultBlockClasses.
	BlockClasses []string
	// LinkAttrs lists the attributes RewriteLinks touches. Default: href, src.
	LinkAttrs []string
	// NewID mints content ids. Default: idgen.Default (UUID v4).
	NewID idgen.Generator
	// Logger for the engine. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PlaceholderClass == "" {
		c.PlaceholderClass = DefaultPlaceholderClass
	}
	if c.ContentIDAttr == "" {
		c.ContentIDAttr = DefaultContentIDAttr
	}
	if len(c.BlockClasses) == 0 {
		c.BlockClasses = append([]string(nil), DefaultBlockClasses...)
	}
	if len(c.LinkAttrs) == 0 {
		c.LinkAttrs = append([]string(nil), DefaultLinkAttrs...)
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
