// mbzmig migrates the HTML content of an extracted Moodle course backup.
//
// Environment:
//
//	MBZMIG_CONFIG  optional YAML config file
//	LOG_LEVEL      debug | info | warn | error (default info)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/mbzmig/audit"
	"github.com/hazyhaar/mbzmig/config"
	"github.com/hazyhaar/mbzmig/contentmap"
)

type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	led    *contentmap.Ledger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var lvl slog.Level
	switch env("LOG_LEVEL", "info") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := config.DefaultConfig()
	if path := env("MBZMIG_CONFIG", ""); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			fatal("config", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{ctx: ctx, cfg: cfg, logger: logger}
	defer a.close()

	cmd, ok := commands[os.Args[1]]
	if !ok {
		switch os.Args[1] {
		case "help", "-h", "--help":
			printUsage()
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err := a.run(os.Args[1], cmd, os.Args[2:]); err != nil {
		a.close()
		fatal(os.Args[1], err)
	}
}

type command struct {
	fn func(a *app, args []string) (string, error)
	// mutating commands are recorded in the audit log.
	mutating bool
}

var commands = map[string]command{
	"extract":        {(*app).cmdExtract, true},
	"restore":        {(*app).cmdRestore, true},
	"tag-blocks":     {(*app).cmdTagBlocks, true},
	"to-json":        {(*app).cmdToJSON, true},
	"inject-ids":     {(*app).cmdInjectIDs, true},
	"prune-qbank":    {(*app).cmdPruneQBank, true},
	"strip-attr":     {(*app).cmdStripAttr, true},
	"rewrite-links":  {(*app).cmdRewriteLinks, true},
	"quiz-questions": {(*app).cmdQuizQuestions, false},
	"runs":           {(*app).cmdRuns, false},
}

// run executes cmd, printing its summary, and records it in the audit log
// when the ledger is enabled.
func (a *app) run(name string, cmd command, args []string) error {
	exec := func(context.Context) (string, error) {
		summary, err := cmd.fn(a, args)
		if err == nil && summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
		return summary, err
	}
	if !cmd.mutating || !a.cfg.Ledger.Enabled {
		_, err := exec(a.ctx)
		return err
	}
	l, err := a.ledger()
	if err != nil {
		return err
	}
	auditLog := audit.NewSQLiteLogger(l.DB())
	if err := auditLog.Init(); err != nil {
		return err
	}
	return audit.Run(a.ctx, auditLog, name, map[string]any{"args": args}, exec)
}

// ledger opens the ledger database once per process.
func (a *app) ledger() (*contentmap.Ledger, error) {
	if a.led != nil {
		return a.led, nil
	}
	l, err := contentmap.OpenLedger(a.cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	a.led = l
	return l, nil
}

func (a *app) close() {
	if a.led != nil {
		a.led.Close()
		a.led = nil
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mbzmig: move course package HTML out to content files and back

usage:
  mbzmig extract        <package> [content_dir]
  mbzmig restore        <package> [content_dir]
  mbzmig tag-blocks     <content_dir>
  mbzmig to-json        <content_dir> <json_dir>
  mbzmig inject-ids     <package>
  mbzmig prune-qbank    <package>
  mbzmig quiz-questions <package>
  mbzmig strip-attr     <package> <attribute>
  mbzmig rewrite-links  <package> <mapping.yaml>
  mbzmig runs

With ledger.enabled, mutating commands are also recorded in the audit log.

extract         Replaces every HTML fragment with a content placeholder and
                writes the fragments to content_dir as {id}.html.
restore         Puts the HTML of content_dir back in place of the placeholders.
tag-blocks      Gives interactive blocks in content_dir (and its variant
                subdirectories) their own content ids.
to-json         Writes one {id}.json per page with all its variants.
inject-ids      Assigns a UUID to every question bank entry without one.
prune-qbank     Deletes question bank entries no quiz uses, then empty categories.
quiz-questions  Lists quiz questions in slot order as JSON lines.
strip-attr      Removes an attribute from every fragment.
rewrite-links   Replaces href/src values using an old: new mapping file.
runs            Lists the extraction runs recorded in the ledger.

environment:
  MBZMIG_CONFIG  YAML config file
  LOG_LEVEL      debug | info | warn | error
`)
}

func fatal(what string, err error) {
	slog.Error(what, "error", err)
	os.Exit(1)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
