// Tests for the migration run.

package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/bookshelf/internal/jsonldb"
	"github.com/maruel/bookshelf/internal/notion"
)

func newTestMigrator(store *fakeStore, opts Options) *Migrator {
	opts.SourceDatabaseID = "old-db"
	opts.DestDatabaseID = "new-db"
	return NewMigrator(store, NewRegistry(nil), nil, nil, opts)
}

func sourceIDs(outcomes []*Outcome) []string {
	var ids []string
	for _, o := range outcomes {
		ids = append(ids, o.SourceID)
	}
	return ids
}

func TestMigrator_Run(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Howl", "Poetry"),
	}}
	covers := &fakeCovers{name: "c", url: "https://img/dune.jpg"}
	m := NewMigrator(store, NewRegistry(nil), &Enricher{Covers: []CoverProvider{covers}}, nil, Options{
		SourceDatabaseID: "old-db",
		DestDatabaseID:   "new-db",
	})
	outcomes, err := m.Run(context.Background(), Criteria{Status: StatusRead}, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != Created || !o.Marked || o.MarkErr != nil {
			t.Errorf("%s: %+v", o.SourceID, o)
		}
	}
	if len(store.created) != 2 {
		t.Fatalf("created %d pages, want 2", len(store.created))
	}
	req := store.created[0]
	if req.Parent.DatabaseID != "new-db" {
		t.Errorf("parent = %+v", req.Parent)
	}
	if req.Icon == nil || req.Icon.External == nil || req.Icon.External.URL != "https://img/dune.jpg" {
		t.Errorf("icon = %+v", req.Icon)
	}
	if got := req.Properties[DestCover]; got != (notion.FilesInput{Name: "cover", URL: "https://img/dune.jpg"}) {
		t.Errorf("cover = %#v", got)
	}
	if got := store.created[1].Properties[DestType]; got != (notion.SelectInput{Name: "Poem"}) {
		t.Errorf("type = %#v", got)
	}
	for _, id := range []string{"src-1", "src-2"} {
		want := notion.Properties{DefaultTransferredProperty: notion.CheckboxInput{Checked: true}}
		if got := store.updates[id]; len(got) != 1 || got[DefaultTransferredProperty] != want[DefaultTransferredProperty] {
			t.Errorf("update of %s = %#v", id, got)
		}
	}
	if s := Summarize(outcomes); s.Created != 2 || s.Marked != 2 || s.Failed != 0 {
		t.Errorf("summary = %+v", s)
	}

	// Marked rows are no longer candidates.
	outcomes, err = m.Run(context.Background(), Criteria{Status: StatusRead}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 0 {
		t.Errorf("second run migrated %v", sourceIDs(outcomes))
	}
}

func TestMigrator_CreateFailureLeavesRowUnmarked(t *testing.T) {
	const body = `{"object":"error","status":400,"code":"validation_error","message":"0 Cover is not a property"}`
	store := &fakeStore{
		rows: []notion.Page{
			bookPage(t, "src-1", "Dune", "Book"),
			bookPage(t, "src-2", "Emma", "Book"),
		},
		failCreate: map[string]string{"Dune": body},
	}
	m := newTestMigrator(store, Options{})
	outcomes, err := m.Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcomes[0].Status != CreateFailed || outcomes[0].Reason != body || outcomes[0].Marked {
		t.Errorf("failed row outcome = %+v", outcomes[0])
	}
	var cf *CreateFailure
	if !errors.As(outcomes[0].Err, &cf) || cf.Body != body {
		t.Errorf("Err = %v", outcomes[0].Err)
	}
	var apiErr *notion.Error
	if !errors.As(outcomes[0].Err, &apiErr) || apiErr.Status != 400 {
		t.Errorf("Err does not wrap the API error: %v", outcomes[0].Err)
	}
	if _, ok := store.updates["src-1"]; ok {
		t.Error("failed row was marked transferred")
	}
	if outcomes[1].Status != Created || !outcomes[1].Marked {
		t.Errorf("run did not continue: %+v", outcomes[1])
	}

	// The failed row is picked up again.
	delete(store.failCreate, "Dune")
	outcomes, err = m.Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := sourceIDs(outcomes); len(got) != 1 || got[0] != "src-1" || outcomes[0].Status != Created {
		t.Errorf("retry migrated %v", got)
	}
}

func TestMigrator_MarkFailure(t *testing.T) {
	store := &fakeStore{
		rows:       []notion.Page{bookPage(t, "src-1", "Dune", "Book")},
		failUpdate: &notion.Error{Status: 409, Code: "conflict_error"},
	}
	outcomes, err := newTestMigrator(store, Options{}).Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	o := outcomes[0]
	var uf *UpdateFailure
	if o.Status != Created || o.Marked || !errors.As(o.MarkErr, &uf) || uf.CreatedID != "new-1" {
		t.Errorf("outcome = %+v", o)
	}
	if s := Summarize(outcomes); s.Created != 1 || s.MarkFailed != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestMigrator_Deferred(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Emma", "Novella"),
	}}
	m := newTestMigrator(store, Options{Mark: MarkDeferred})
	first, err := m.Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.updates) != 0 {
		t.Errorf("deferred policy marked rows: %v", store.updates)
	}
	second, err := m.Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if a, b := strings.Join(sourceIDs(first), ","), strings.Join(sourceIDs(second), ","); a != b || a != "src-1,src-2" {
		t.Errorf("candidates changed between runs: %q vs %q", a, b)
	}
}

func TestParseMarkPolicy(t *testing.T) {
	for in, want := range map[string]MarkPolicy{"": MarkAfterCreate, "after-create": MarkAfterCreate, "Deferred": MarkDeferred} {
		got, err := ParseMarkPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseMarkPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMarkPolicy("never"); err == nil {
		t.Error("ParseMarkPolicy(never) succeeded")
	}
}

func TestMigrator_Sample(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Emma", "Book"),
		bookPage(t, "src-3", "Ulysses", "Book"),
	}}
	m := newTestMigrator(store, Options{})
	m.pick = func(n int) int {
		if n != 3 {
			t.Errorf("pick(%d), want 3", n)
		}
		return 1
	}
	outcomes, err := m.Run(context.Background(), Criteria{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := sourceIDs(outcomes); len(got) != 1 || got[0] != "src-2" {
		t.Errorf("sampled %v, want [src-2]", got)
	}
	if len(store.created) != 1 {
		t.Errorf("created %d pages", len(store.created))
	}
}

func TestMigrator_Pagination(t *testing.T) {
	store := &fakeStore{pageSize: 2, rows: []notion.Page{
		bookPage(t, "src-1", "A", "Book"),
		bookPage(t, "src-2", "B", "Book"),
		bookPage(t, "src-3", "C", "Book"),
		bookPage(t, "src-4", "D", "Book"),
		bookPage(t, "src-5", "E", "Book"),
	}}
	m := newTestMigrator(store, Options{DryRun: true})
	outcomes, err := m.Run(context.Background(), Criteria{Category: "Book"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 5 {
		t.Errorf("got %d outcomes, want 5", len(outcomes))
	}
	if len(store.queries) != 3 {
		t.Fatalf("made %d queries, want 3", len(store.queries))
	}
	for i, want := range []string{"", "2", "4"} {
		q := store.queries[i]
		if q.StartCursor != want {
			t.Errorf("query %d cursor = %q, want %q", i, q.StartCursor, want)
		}
		if q.Filter == nil || q.Filter.Depth() != 1 {
			t.Errorf("query %d filter = %+v", i, q.Filter)
		}
	}
}

func TestMigrator_UnknownCategoryIsFatal(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Wired", "Magazine"),
	}}
	outcomes, err := newTestMigrator(store, Options{}).Run(context.Background(), Criteria{}, false)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("Run() error = %v, want ErrUnknownCategory", err)
	}
	if outcomes != nil || len(store.created) != 0 || len(store.updates) != 0 {
		t.Errorf("writes before a configuration error: created=%d updates=%d", len(store.created), len(store.updates))
	}
}

func TestMigrator_UnknownYearIsFatal(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{bookPage(t, "src-1", "Dune", "Book")}}
	_, err := newTestMigrator(store, Options{}).Run(context.Background(), Criteria{Year: "1999"}, false)
	if !errors.Is(err, ErrUnknownYear) {
		t.Fatalf("Run() error = %v, want ErrUnknownYear", err)
	}
	if len(store.queries) != 0 {
		t.Error("queried despite a configuration error")
	}
}

func TestMigrator_RequireCover(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{bookPage(t, "src-1", "Dune", "Book")}}
	covers := &fakeCovers{name: "c", err: errBoom}
	m := NewMigrator(store, NewRegistry(nil), &Enricher{Covers: []CoverProvider{covers}}, nil, Options{RequireCover: true})
	outcomes, err := m.Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	o := outcomes[0]
	if o.Status != SkippedNoEnrichment || o.Marked || len(o.Lookups) != 1 {
		t.Errorf("outcome = %+v", o)
	}
	if len(store.created) != 0 || len(store.updates) != 0 {
		t.Error("skipped row was written")
	}
}

func TestMigrator_DryRun(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{bookPage(t, "src-1", "Dune", "Book")}}
	var buf bytes.Buffer
	outcomes, err := newTestMigrator(store, Options{DryRun: true, DryRunOut: &buf}).Run(context.Background(), Criteria{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != Planned {
		t.Errorf("status = %v", outcomes[0].Status)
	}
	if len(store.created) != 0 || len(store.updates) != 0 {
		t.Error("dry run wrote")
	}
	var req struct {
		Parent     notion.Parent              `json:"parent"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		t.Fatalf("dry run output is not a payload: %v\n%s", err, buf.String())
	}
	if req.Parent.DatabaseID != "new-db" || !strings.Contains(string(req.Properties[DestTitle]), "Dune") {
		t.Errorf("payload = %s", buf.String())
	}
}

func TestMigrator_Cancelled(t *testing.T) {
	store := &fakeStore{rows: []notion.Page{bookPage(t, "src-1", "Dune", "Book")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestMigrator(store, Options{}).Run(ctx, Criteria{}, false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(store.created) != 0 {
		t.Error("created after cancellation")
	}
}

func TestMigrator_Cache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Emma", "Book"),
	}}
	run := func(c Criteria, rebuild bool) []*Outcome {
		t.Helper()
		snap, err := OpenSnapshot(path)
		if err != nil {
			t.Fatal(err)
		}
		m := newTestMigrator(store, Options{DryRun: true, Cache: snap, RebuildCache: rebuild})
		outcomes, err := m.Run(context.Background(), c, false)
		if err != nil {
			t.Fatal(err)
		}
		return outcomes
	}

	run(Criteria{}, false)
	if len(store.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(store.queries))
	}
	outcomes := run(Criteria{}, false)
	if len(store.queries) != 1 {
		t.Errorf("cached rows not reused: queries = %d", len(store.queries))
	}
	if got := strings.Join(sourceIDs(outcomes), ","); got != "src-1,src-2" {
		t.Errorf("cached run migrated %q", got)
	}
	run(Criteria{Category: "Book"}, false)
	if len(store.queries) != 2 {
		t.Errorf("changed filter reused the cache: queries = %d", len(store.queries))
	}
	run(Criteria{Category: "Book"}, true)
	if len(store.queries) != 3 {
		t.Errorf("rebuild did not query: queries = %d", len(store.queries))
	}
}

func TestMigrator_CacheForgetsMarkedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	store := &fakeStore{rows: []notion.Page{
		bookPage(t, "src-1", "Dune", "Book"),
		bookPage(t, "src-2", "Emma", "Book"),
	}}
	store.failCreate = map[string]string{"Emma": `{"object":"error"}`}
	run := func() []*Outcome {
		t.Helper()
		snap, err := OpenSnapshot(path)
		if err != nil {
			t.Fatal(err)
		}
		outcomes, err := newTestMigrator(store, Options{Cache: snap}).Run(context.Background(), Criteria{}, false)
		if err != nil {
			t.Fatal(err)
		}
		return outcomes
	}

	run()
	if len(store.created) != 1 || !store.transferred["src-1"] {
		t.Fatalf("first run: created=%d transferred=%v", len(store.created), store.transferred)
	}
	// The second run reuses the snapshot: the marked row is gone, the failed
	// one is retried.
	outcomes := run()
	if len(store.queries) != 1 {
		t.Errorf("snapshot not reused: queries = %d", len(store.queries))
	}
	if got := strings.Join(sourceIDs(outcomes), ","); got != "src-2" {
		t.Errorf("second run migrated %q, want src-2", got)
	}
	if len(store.created) != 1 {
		t.Errorf("marked row created %d times", len(store.created))
	}
}

func TestMigrator_DeferredKeepsCachedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	store := &fakeStore{rows: []notion.Page{bookPage(t, "src-1", "Dune", "Book")}}
	for range 2 {
		snap, err := OpenSnapshot(path)
		if err != nil {
			t.Fatal(err)
		}
		outcomes, err := newTestMigrator(store, Options{Cache: snap, Mark: MarkDeferred}).Run(context.Background(), Criteria{}, false)
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(sourceIDs(outcomes), ","); got != "src-1" {
			t.Errorf("run migrated %q, want src-1", got)
		}
	}
}

func TestLoader_SkipsTransferredCachedRows(t *testing.T) {
	snap, err := OpenSnapshot(filepath.Join(t.TempDir(), "rows.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	done := mustPage(t, `{"id": "src-1", "properties": {"Transferred to new db?": {"type": "checkbox", "checkbox": true}}}`)
	todo := mustPage(t, `{"id": "src-2", "properties": {"Transferred to new db?": {"type": "checkbox", "checkbox": false}}}`)
	filter := &notion.Filter{Property: DefaultTransferredProperty, Checkbox: &notion.CheckboxCondition{}}
	query, err := json.Marshal(filter)
	if err != nil {
		t.Fatal(err)
	}
	if err := snap.Replace(jsonldb.Header{Source: "old-db", Query: query}, []*notion.Page{&done, &todo}); err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	l := &Loader{Rows: store, Cache: snap, TransferredProperty: DefaultTransferredProperty}
	pages, err := l.Load(context.Background(), "old-db", filter)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.queries) != 0 {
		t.Errorf("queried despite a matching snapshot")
	}
	if len(pages) != 1 || pages[0].ID != "src-2" {
		t.Errorf("Load() = %v, want only src-2", pages)
	}
}

func TestMigrator_MapErrorIsFatal(t *testing.T) {
	store := &fakeStore{}
	page := bookPage(t, "src-1", "Wired", "Magazine")
	o, err := newTestMigrator(store, Options{}).migrate(context.Background(), &page)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("migrate() error = %v, want ErrUnknownCategory", err)
	}
	var cf *CreateFailure
	if o != nil || errors.As(err, &cf) {
		t.Errorf("unknown category reported as a create failure: %+v, %v", o, err)
	}
	if len(store.created) != 0 {
		t.Error("created a page")
	}
}
