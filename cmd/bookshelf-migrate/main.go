// Package main is the entry point for the bookshelf-migrate CLI tool.
//
// bookshelf-migrate copies rows of the old Notion bookshelf database into the
// new one, filling missing covers, languages and genres from book metadata
// services, then flags each copied row as transferred. Settings are read from
// an optional YAML file; credentials from a JSON keys file, a .env file and
// the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/maruel/bookshelf/internal/books"
	"github.com/maruel/bookshelf/internal/config"
	"github.com/maruel/bookshelf/internal/migrate"
	"github.com/maruel/bookshelf/internal/notion"
	"github.com/maruel/ksid"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bookshelf-migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "YAML settings file (optional)")
	keysPath := flag.String("keys", config.DefaultKeysPath, "JSON file holding "+config.KeyNotionSecret+" and the database IDs")
	envPath := flag.String("env", ".env", "Optional .env file overriding the keys file")
	status := flag.String("status", "", "Reading status: 0/read, 1/reading, 2/want-to-read (default: any)")
	category := flag.String("type", "", "Item type, e.g. Book, Novella (default: any)")
	standalone := flag.Bool("standalone", false, "Only migrate items that are not part of a series")
	year := flag.String("year", "", "Year bucket, e.g. 2023, Grad (default: any)")
	sample := flag.Bool("sample", false, "Only migrate one random matching item")
	flag.BoolVar(sample, "test", false, "Alias for -sample")
	rebuild := flag.Bool("rebuild-cache", false, "Query the old database even if a cached snapshot matches")
	dryRun := flag.Bool("dry-run", false, "Print the pages that would be created without writing anything")
	mark := flag.String("mark", "", "When to flag source items as transferred: after-create or deferred (default: from config)")
	requireCover := flag.Bool("require-cover", false, "Skip items for which no cover is found")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}
	// A single process generates IDs.
	if err := ksid.InitIDSlice(0, 1); err != nil {
		return err
	}
	runID := ksid.NewID().String()
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger.With("run", runID))

	// Settings, then credentials, then flags.
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	secrets, err := config.LoadSecrets(*keysPath, *envPath)
	if err != nil {
		return err
	}
	cfg.ApplySecrets(secrets)
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["mark"] {
		cfg.MarkTransferred = *mark
	}
	if set["require-cover"] {
		cfg.RequireCover = *requireCover
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	st, err := migrate.ParseStatus(*status)
	if err != nil {
		return err
	}
	criteria := migrate.Criteria{Status: st, Category: *category, StandaloneOnly: *standalone, Year: *year}

	var cache *migrate.Snapshot
	if cfg.CachePath != "" {
		if cache, err = migrate.OpenSnapshot(cfg.CachePath); err != nil {
			slog.WarnContext(ctx, "Ignoring unreadable cache", "path", cfg.CachePath, "err", err)
			cache = nil
		}
	}

	client := notion.NewClient(secrets.NotionToken, notion.WithInterval(cfg.NotionInterval))
	progress := &migrate.CLIProgress{Out: os.Stdout, Err: os.Stderr}
	m := migrate.NewMigrator(client, migrate.NewRegistry(cfg.CategoryRenames), newEnricher(cfg, secrets), progress, migrate.Options{
		SourceDatabaseID:    cfg.OldDatabaseID,
		DestDatabaseID:      cfg.NewDatabaseID,
		TransferredProperty: cfg.TransferredProperty,
		Years:               cfg.YearTable(),
		Mark:                cfg.MarkPolicy(),
		RequireCover:        cfg.RequireCover,
		DryRun:              *dryRun,
		DryRunOut:           os.Stdout,
		Cache:               cache,
		RebuildCache:        *rebuild,
		Run:                 runID,
	})

	fmt.Println("Bookshelf Migration")
	fmt.Println("===================")
	fmt.Println()
	outcomes, err := m.Run(ctx, criteria, *sample)
	if err != nil {
		return err
	}
	if s := migrate.Summarize(outcomes); s.Failed > 0 {
		return fmt.Errorf("%d items failed to migrate", s.Failed)
	}
	return nil
}

// newEnricher wires the metadata services: covers by ISBN from Open Library,
// falling back to the Google Books thumbnail; language and genres scraped from
// the Google Books edition page.
func newEnricher(cfg *config.Config, secrets *config.Secrets) *migrate.Enricher {
	gb := books.NewGoogleBooks(secrets.GoogleAPIKey, cfg.BooksInterval)
	e := &migrate.Enricher{
		Covers: []migrate.CoverProvider{
			&migrate.ISBNCover{ISBNs: gb, Covers: books.NewOpenLibrary()},
			&migrate.ThumbnailCover{Volumes: gb},
		},
		GenreDenylist: cfg.GenreDenylist,
	}
	if cfg.Scrape {
		e.Details = []migrate.DetailsProvider{&migrate.ScrapedDetails{Volumes: gb, Pages: books.NewScraper()}}
	}
	if cfg.PublicationDate {
		e.Published = gb
	}
	return e
}
