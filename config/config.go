// Package config holds the mbzmig configuration, read from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mbzmig/tagging"
)

// Config holds the full mbzmig configuration.
type Config struct {
	Tagging TaggingConfig `yaml:"tagging"`
	Output  OutputConfig  `yaml:"output"`
	Ledger  LedgerConfig  `yaml:"ledger"`
}

// TaggingConfig configures extraction and block tagging.
type TaggingConfig struct {
	PlaceholderClass    string   `yaml:"placeholder_class"`
	ContentIDAttr       string   `yaml:"content_id_attr"`
	BlockClasses        []string `yaml:"block_classes"`
	LinkAttrs           []string `yaml:"link_attrs"`
	IncludeQuestionBank bool     `yaml:"include_question_bank"`
}

// OutputConfig says where extracted content goes. Empty dirs are skipped,
// except ContentDir.
type OutputConfig struct {
	ContentDir  string `yaml:"content_dir"`
	JSONDir     string `yaml:"json_dir"`
	MarkdownDir string `yaml:"markdown_dir"`
}

// LedgerConfig configures the SQLite run ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Tagging: TaggingConfig{
			PlaceholderClass: tagging.DefaultPlaceholderClass,
			ContentIDAttr:    tagging.DefaultContentIDAttr,
			BlockClasses:     append([]string(nil), tagging.DefaultBlockClasses...),
			LinkAttrs:        append([]string(nil), tagging.DefaultLinkAttrs...),
		},
		Output: OutputConfig{
			ContentDir: "content",
		},
		Ledger: LedgerConfig{
			Path: "mbzmig.db",
		},
	}
}

// Load reads and parses a YAML config file. Returns DefaultConfig merged
// with the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if err := token("tagging.placeholder_class", c.Tagging.PlaceholderClass); err != nil {
		return err
	}
	if err := token("tagging.content_id_attr", c.Tagging.ContentIDAttr); err != nil {
		return err
	}
	if len(c.Tagging.BlockClasses) == 0 {
		return fmt.Errorf("tagging.block_classes must not be empty")
	}
	for i, cls := range c.Tagging.BlockClasses {
		if err := token(fmt.Sprintf("tagging.block_classes[%d]", i), cls); err != nil {
			return err
		}
		if cls == c.Tagging.PlaceholderClass {
			return fmt.Errorf("tagging.block_classes[%d]: %q is the placeholder class", i, cls)
		}
	}
	for i, a := range c.Tagging.LinkAttrs {
		if err := token(fmt.Sprintf("tagging.link_attrs[%d]", i), a); err != nil {
			return err
		}
	}
	if c.Output.ContentDir == "" {
		return fmt.Errorf("output.content_dir is required")
	}
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required when the ledger is enabled")
	}
	return nil
}

// token rejects empty values and values containing whitespace: class names
// and attribute names are single tokens.
func token(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.ContainsAny(v, " \t\r\n") {
		return fmt.Errorf("%s: %q contains whitespace", field, v)
	}
	return nil
}

// Engine returns the tagging configuration for the engine and block tagger.
func (c *Config) Engine(logger *slog.Logger) tagging.Config {
	return tagging.Config{
		PlaceholderClass: c.Tagging.PlaceholderClass,
		ContentIDAttr:    c.Tagging.ContentIDAttr,
		BlockClasses:     append([]string(nil), c.Tagging.BlockClasses...),
		LinkAttrs:        append([]string(nil), c.Tagging.LinkAttrs...),
		Logger:           logger,
	}
}
