// Drives a migration run: load, normalize, enrich, map, create and mark.

package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/maruel/bookshelf/internal/notion"
)

// Store is the subset of the Notion API a run uses.
type Store interface {
	Querier
	TitleResolver
	CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, props notion.Properties) (*notion.Page, error)
}

// MarkPolicy decides when a source row is flagged as transferred.
type MarkPolicy int

const (
	// MarkAfterCreate flags the source row right after its copy is created.
	MarkAfterCreate MarkPolicy = iota
	// MarkDeferred never flags rows; they are flagged by hand after review.
	MarkDeferred
)

func (m MarkPolicy) String() string {
	if m == MarkDeferred {
		return "deferred"
	}
	return "after-create"
}

// ParseMarkPolicy parses "after-create" or "deferred". The empty string is
// MarkAfterCreate.
func ParseMarkPolicy(s string) (MarkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "after-create":
		return MarkAfterCreate, nil
	case "deferred":
		return MarkDeferred, nil
	}
	return MarkAfterCreate, fmt.Errorf("invalid mark policy %q: want after-create or deferred", s)
}

// DefaultTransferredProperty is the source checkbox flagging migrated rows.
const DefaultTransferredProperty = "Transferred to new db?"

// Options configures a Migrator.
type Options struct {
	SourceDatabaseID string
	DestDatabaseID   string
	// TransferredProperty defaults to DefaultTransferredProperty.
	TransferredProperty string
	// Years defaults to DefaultYears.
	Years YearTable
	Mark  MarkPolicy
	// RequireCover skips rows whose cover is still missing after enrichment.
	RequireCover bool
	// DryRun prints payloads to DryRunOut instead of creating pages.
	DryRun    bool
	DryRunOut io.Writer
	// Cache and RebuildCache configure the Loader.
	Cache        *Snapshot
	RebuildCache bool
	// Run identifies this run in logs and the cache header.
	Run string
}

// OutcomeStatus is the result of migrating one row.
type OutcomeStatus int

// Outcome statuses.
const (
	Created OutcomeStatus = iota
	CreateFailed
	SkippedNoEnrichment
	// Planned is a row that would have been created in a dry run.
	Planned
)

func (s OutcomeStatus) String() string {
	switch s {
	case Created:
		return "created"
	case CreateFailed:
		return "create failed"
	case SkippedNoEnrichment:
		return "skipped"
	case Planned:
		return "planned"
	default:
		return fmt.Sprintf("OutcomeStatus(%d)", int(s))
	}
}

// Outcome is the result of migrating one source row.
type Outcome struct {
	SourceID string
	Title    string
	Status   OutcomeStatus
	// Reason explains a skip or a failure.
	Reason string
	// Err is a *CreateFailure when Status is CreateFailed.
	Err       error
	CreatedID string
	// Marked is true when the source row was flagged as transferred.
	Marked bool
	// MarkErr is a *UpdateFailure when flagging failed after a create.
	MarkErr error
	Lookups []*LookupFailure
}

// Migrator copies rows from the source database to the destination one.
//
// Rows are processed strictly one at a time; a row is only flagged as
// transferred after its copy was created.
type Migrator struct {
	store      Store
	loader     *Loader
	filters    *FilterBuilder
	normalizer *Normalizer
	enricher   *Enricher
	registry   *Registry
	progress   ProgressReporter
	opts       Options
	// pick chooses the sampled row among n.
	pick func(n int) int
}

// NewMigrator creates a Migrator. enricher and progress may be nil.
func NewMigrator(store Store, registry *Registry, enricher *Enricher, progress ProgressReporter, opts Options) *Migrator {
	if opts.TransferredProperty == "" {
		opts.TransferredProperty = DefaultTransferredProperty
	}
	if opts.Years == nil {
		opts.Years = DefaultYears
	}
	if progress == nil {
		progress = &NullProgress{}
	}
	return &Migrator{
		store: store,
		loader: &Loader{
			Rows:     store,
			Cache:    opts.Cache,
			Rebuild:  opts.RebuildCache,
			Run:                 opts.Run,
			TransferredProperty: opts.TransferredProperty,
			Progress:            progress,
		},
		filters:    &FilterBuilder{TransferredProperty: opts.TransferredProperty, Years: opts.Years},
		normalizer: NewNormalizer(store),
		enricher:   enricher,
		registry:   registry,
		progress:   progress,
		opts:       opts,
		pick:       rand.IntN,
	}
}

// Run migrates every row matching c. When sample is set, a single random
// matching row is migrated.
//
// The returned error is fatal: a configuration error detected before any
// write, a failed query, or cancellation. Per-row failures are reported in
// the outcomes.
func (m *Migrator) Run(ctx context.Context, c Criteria, sample bool) ([]*Outcome, error) {
	start := time.Now()
	filter, err := m.filters.Build(c)
	if err != nil {
		return nil, err
	}
	pages, err := m.loader.Load(ctx, m.opts.SourceDatabaseID, filter)
	if err != nil {
		return nil, err
	}
	if sample && len(pages) > 1 {
		i := m.pick(len(pages))
		pages = pages[i : i+1]
	}
	for _, p := range pages {
		if _, err := m.registry.Fields(categoryOf(p)); err != nil {
			return nil, fmt.Errorf("row %s: %w", p.ID, err)
		}
	}

	m.progress.OnStart(len(pages))
	outcomes := make([]*Outcome, 0, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o, err := m.migrate(ctx, p)
		if err != nil {
			return outcomes, err
		}
		m.progress.OnProgress(i+1, fmt.Sprintf("%s: %s", o.Title, o.Status))
		outcomes = append(outcomes, o)
	}
	s := Summarize(outcomes)
	s.Duration = time.Since(start)
	m.progress.OnComplete(s)
	return outcomes, nil
}

// migrate copies one row. The returned error is fatal; per-row failures are
// recorded in the Outcome.
func (m *Migrator) migrate(ctx context.Context, page *notion.Page) (*Outcome, error) {
	r := m.normalizer.Normalize(ctx, page)
	o := &Outcome{SourceID: r.SourceID, Title: r.Title()}
	if m.enricher != nil {
		r, o.Lookups = m.enricher.Enrich(ctx, r)
	}
	if m.opts.RequireCover && r.Missing(FieldCover) {
		o.Status = SkippedNoEnrichment
		o.Reason = "no cover found"
		return o, nil
	}
	props, err := m.registry.Map(r)
	if err != nil {
		// Categories are checked before the first write, so this is a bug.
		return nil, fmt.Errorf("row %s: %w", r.SourceID, err)
	}
	req := notion.NewDatabasePage(m.opts.DestDatabaseID, r.String(FieldCover), props)

	if m.opts.DryRun {
		o.Status = Planned
		if m.opts.DryRunOut != nil {
			b, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				o.Reason = err.Error()
			} else {
				_, _ = fmt.Fprintf(m.opts.DryRunOut, "%s\n", b)
			}
		}
		return o, nil
	}

	created, err := m.store.CreatePage(ctx, req)
	if err != nil {
		body := responseBody(err)
		o.Status = CreateFailed
		o.Reason = body
		o.Err = &CreateFailure{SourceID: r.SourceID, Body: body, Err: err}
		slog.ErrorContext(ctx, "Create failed", "source", r.SourceID, "title", o.Title, "body", body)
		m.progress.OnError(o.Err)
		return o, nil
	}
	o.Status = Created
	o.CreatedID = created.ID
	slog.InfoContext(ctx, "Transfer successful", "source", r.SourceID, "created", created.ID)

	if m.opts.Mark != MarkAfterCreate {
		return o, nil
	}
	mark := notion.Properties{m.opts.TransferredProperty: notion.CheckboxInput{Checked: true}}
	if _, err := m.store.UpdatePage(ctx, r.SourceID, mark); err != nil {
		o.MarkErr = &UpdateFailure{SourceID: r.SourceID, CreatedID: created.ID, Err: err}
		slog.WarnContext(ctx, "Mark transferred failed", "source", r.SourceID, "err", err)
		m.progress.OnWarning(o.MarkErr.Error())
		return o, nil
	}
	o.Marked = true
	m.loader.Forget(ctx, r.SourceID)
	return o, nil
}
