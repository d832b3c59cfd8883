// Loads the candidate rows of the source database.

package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maruel/bookshelf/internal/jsonldb"
	"github.com/maruel/bookshelf/internal/notion"
)

// Querier queries one page of database rows.
type Querier interface {
	QueryDatabase(ctx context.Context, databaseID string, opts *notion.QueryOptions) (*notion.QueryResponse, error)
}

// Snapshot is the on-disk cache of queried rows.
type Snapshot = jsonldb.Table[*notion.Page]

// Loader reads every row matching a filter, optionally through a snapshot.
type Loader struct {
	Rows Querier
	// Cache is optional. When set, a snapshot written for the same database
	// and filter is reused instead of querying.
	Cache *Snapshot
	// Rebuild forces a query and rewrites the snapshot.
	Rebuild bool
	// Run is recorded in the snapshot header.
	Run string
	// TransferredProperty is the checkbox flagging migrated rows. Cached rows
	// with it checked are skipped.
	TransferredProperty string
	Progress            ProgressReporter
}

// Load returns all rows of databaseID matching filter, materialized in memory.
// The returned pages are owned by the caller.
func (l *Loader) Load(ctx context.Context, databaseID string, filter *notion.Filter) ([]*notion.Page, error) {
	query, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}
	if l.Cache != nil && !l.Rebuild {
		h := l.Cache.Header()
		if h.Matches(databaseID, query) {
			rows := l.Cache.All()
			slog.InfoContext(ctx, "Using cached rows", "rows", len(rows), "created", h.Created, "run", h.Run)
			pages := make([]*notion.Page, 0, len(rows))
			for _, p := range rows {
				if l.transferred(p) {
					continue
				}
				pages = append(pages, p.Clone())
			}
			return pages, nil
		}
	}

	pages, err := l.query(ctx, databaseID, filter)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		h := jsonldb.Header{Source: databaseID, Query: query, Created: time.Now().UTC(), Run: l.Run}
		rows := make([]*notion.Page, 0, len(pages))
		for _, p := range pages {
			rows = append(rows, p.Clone())
		}
		if err := l.Cache.Replace(h, rows); err != nil {
			// The cache is an optimization; the run goes on without it.
			slog.WarnContext(ctx, "Failed to write cache", "err", err)
		}
	}
	return pages, nil
}

// Forget drops a migrated row from the snapshot so that later runs reusing it
// do not select the row again.
func (l *Loader) Forget(ctx context.Context, pageID string) {
	if l.Cache == nil {
		return
	}
	if _, err := l.Cache.Remove(func(p *notion.Page) bool { return p.ID == pageID }); err != nil {
		// The snapshot no longer reflects the source; stop trusting it.
		slog.WarnContext(ctx, "Failed to update cache, discarding it", "page", pageID, "err", err)
		if err := l.Cache.Discard(); err != nil {
			slog.WarnContext(ctx, "Failed to delete cache", "err", err)
		}
		l.Cache = nil
	}
}

// transferred reports whether a cached row is already flagged as migrated.
func (l *Loader) transferred(p *notion.Page) bool {
	if l.TransferredProperty == "" {
		return false
	}
	pv, ok := p.Properties[l.TransferredProperty]
	if !ok {
		return false
	}
	c, ok := pv.Raw().(notion.RawCheckbox)
	return ok && c.Checked
}

func (l *Loader) query(ctx context.Context, databaseID string, filter *notion.Filter) ([]*notion.Page, error) {
	var pages []*notion.Page
	var cursor string
	for n := 1; ; n++ {
		if l.Progress != nil {
			l.Progress.OnPage(n)
		}
		// The filter is sent with every page, not only the first.
		resp, err := l.Rows.QueryDatabase(ctx, databaseID, &notion.QueryOptions{Filter: filter, StartCursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("failed to query page %d of %s: %w", n, databaseID, err)
		}
		for i := range resp.Results {
			pages = append(pages, &resp.Results[i])
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		cursor = *resp.NextCursor
	}
	return pages, nil
}

// OpenSnapshot opens the snapshot at path, treating a missing file as empty.
func OpenSnapshot(path string) (*Snapshot, error) {
	s, err := jsonldb.Open[*notion.Page](path)
	if err != nil && !errors.Is(err, jsonldb.ErrNoSnapshot) {
		return nil, err
	}
	return s, nil
}
