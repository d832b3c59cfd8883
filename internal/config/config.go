// Package config loads the settings and secrets of a migration run.
//
// Settings come from an optional YAML file. Secrets come from a JSON keys
// file, then an optional .env file, then environment variables, each
// overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/bookshelf/internal/migrate"
	"github.com/maruel/bookshelf/internal/notion"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a run. It is not modified after Validate.
type Config struct {
	// OldDatabaseID is the source database.
	OldDatabaseID string `yaml:"old_database_id"`
	// NewDatabaseID is the destination database.
	NewDatabaseID string `yaml:"new_database_id"`
	// TransferredProperty is the source checkbox flagging migrated rows.
	TransferredProperty string `yaml:"transferred_property"`
	// Years maps year bucket labels to "Year Read" relation page IDs. Entries
	// are merged into the defaults.
	Years map[string]string `yaml:"years"`
	// CategoryRenames maps old category names to new ones. Entries are merged
	// into the defaults.
	CategoryRenames map[string]string `yaml:"category_renames"`
	// GenreDenylist replaces the default list of generic genre terms.
	GenreDenylist []string `yaml:"genre_denylist"`
	// MarkTransferred is "after-create" or "deferred".
	MarkTransferred string `yaml:"mark_transferred"`
	RequireCover    bool   `yaml:"require_cover"`
	// CachePath is the snapshot of queried rows. Empty disables caching.
	CachePath string `yaml:"cache_path"`
	// NotionInterval is the minimum delay between Notion API calls.
	NotionInterval time.Duration `yaml:"notion_interval"`
	// BooksInterval is the minimum delay between Google Books API calls.
	BooksInterval time.Duration `yaml:"books_interval"`
	// Scrape enables reading language and genres from edition pages.
	Scrape bool `yaml:"scrape"`
	// PublicationDate enables filling the publication date.
	PublicationDate bool `yaml:"publication_date"`
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		TransferredProperty: migrate.DefaultTransferredProperty,
		Years:               maps.Clone(migrate.DefaultYears),
		CategoryRenames:     maps.Clone(migrate.DefaultRenames),
		GenreDenylist:       slices.Clone(migrate.DefaultGenreDenylist),
		MarkTransferred:     migrate.MarkAfterCreate.String(),
		CachePath:           "bookshelf-cache.jsonl",
		NotionInterval:      notion.MinInterval,
		BooksInterval:       100 * time.Millisecond,
		Scrape:              true,
		PublicationDate:     true,
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path) //nolint:gosec // G304: path is a CLI flag
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplySecrets fills the database IDs from s when set there.
func (c *Config) ApplySecrets(s *Secrets) {
	if s.OldDatabaseID != "" {
		c.OldDatabaseID = s.OldDatabaseID
	}
	if s.NewDatabaseID != "" {
		c.NewDatabaseID = s.NewDatabaseID
	}
}

// Validate checks the settings and normalizes every Notion ID to its canonical
// UUID form.
func (c *Config) Validate() error {
	var err error
	if c.OldDatabaseID, err = normalizeID("old_database_id", c.OldDatabaseID); err != nil {
		return err
	}
	if c.NewDatabaseID, err = normalizeID("new_database_id", c.NewDatabaseID); err != nil {
		return err
	}
	if c.OldDatabaseID == c.NewDatabaseID {
		return configError("new_database_id", errors.New("must differ from old_database_id"))
	}
	for label, id := range c.Years {
		if c.Years[label], err = normalizeID("years."+label, id); err != nil {
			return err
		}
	}
	if c.TransferredProperty == "" {
		return configError("transferred_property", errors.New("is required"))
	}
	if _, err := migrate.ParseMarkPolicy(c.MarkTransferred); err != nil {
		return configError("mark_transferred", err)
	}
	if c.NotionInterval < 0 || c.BooksInterval < 0 {
		return configError("interval", errors.New("must be non-negative"))
	}
	return nil
}

// MarkPolicy returns the parsed mark_transferred setting. Call Validate first.
func (c *Config) MarkPolicy() migrate.MarkPolicy {
	p, _ := migrate.ParseMarkPolicy(c.MarkTransferred)
	return p
}

// YearTable returns the year buckets.
func (c *Config) YearTable() migrate.YearTable {
	return migrate.YearTable(c.Years)
}

func normalizeID(what, id string) (string, error) {
	if id == "" {
		return "", configError(what, errors.New("is required"))
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", configError(what, err)
	}
	return u.String(), nil
}

func configError(what string, err error) error {
	return &migrate.ConfigurationError{What: what, Err: err}
}
