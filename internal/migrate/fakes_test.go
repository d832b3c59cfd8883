// Test doubles shared by the package tests.

package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/maruel/bookshelf/internal/books"
	"github.com/maruel/bookshelf/internal/notion"
)

func mustPage(t *testing.T, s string) notion.Page {
	t.Helper()
	var p notion.Page
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		t.Fatalf("bad page fixture: %v", err)
	}
	return p
}

// bookPage returns a source row with the commonly used properties.
func bookPage(t *testing.T, id, name, category string) notion.Page {
	t.Helper()
	return mustPage(t, fmt.Sprintf(`{
		"object": "page",
		"id": %q,
		"properties": {
			"Name": {"id": "title", "type": "title", "title": [{"type": "text", "plain_text": %q}]},
			"Type": {"type": "select", "select": {"name": %q}},
			"Author": {"type": "multi_select", "multi_select": [{"name": "Frank Herbert"}]},
			"Start and End": {"type": "date", "date": {"start": "2023-01-02", "end": "2023-02-03"}},
			"Rate": {"type": "select", "select": {"name": "5"}},
			"Currently on": {"type": "number", "number": null},
			"Total Pages": {"type": "number", "number": 412},
			"Cover": {"type": "files", "files": []},
			"Owned": {"type": "checkbox", "checkbox": true},
			"Transferred to new db?": {"type": "checkbox", "checkbox": false},
			"Created": {"type": "created_time", "created_time": "2023-01-01T00:00:00.000Z"}
		}
	}`, id, name, category))
}

// fakeStore is an in-memory source and destination database.
type fakeStore struct {
	rows     []notion.Page
	pageSize int
	titles   map[string]string
	// failCreate maps a title to the error body returned when creating it.
	failCreate map[string]string
	failUpdate error

	queries     []notion.QueryOptions
	created     []*notion.CreatePageRequest
	updates     map[string]notion.Properties
	transferred map[string]bool
	titleCalls  int
}

func (f *fakeStore) QueryDatabase(ctx context.Context, databaseID string, opts *notion.QueryOptions) (*notion.QueryResponse, error) {
	f.queries = append(f.queries, *opts)
	var match []notion.Page
	for _, r := range f.rows {
		if !f.transferred[r.ID] {
			match = append(match, r)
		}
	}
	start := 0
	if opts.StartCursor != "" {
		var err error
		if start, err = strconv.Atoi(opts.StartCursor); err != nil {
			return nil, err
		}
	}
	size := f.pageSize
	if size == 0 {
		size = 100
	}
	end := min(start+size, len(match))
	resp := &notion.QueryResponse{Object: "list", Results: append([]notion.Page(nil), match[start:end]...)}
	if end < len(match) {
		next := strconv.Itoa(end)
		resp.HasMore = true
		resp.NextCursor = &next
	}
	return resp, nil
}

func (f *fakeStore) PageTitle(ctx context.Context, pageID string) (string, error) {
	f.titleCalls++
	if t, ok := f.titles[pageID]; ok {
		return t, nil
	}
	return "", &notion.Error{Status: 404, Code: "object_not_found", Message: "not found"}
}

func (f *fakeStore) CreatePage(ctx context.Context, req *notion.CreatePageRequest) (*notion.Page, error) {
	title, _ := req.Properties[DestTitle].(notion.TitleInput)
	if body, ok := f.failCreate[title.Text]; ok {
		return nil, &notion.Error{Status: 400, Code: "validation_error", Body: body}
	}
	f.created = append(f.created, req)
	return &notion.Page{Object: "page", ID: fmt.Sprintf("new-%d", len(f.created))}, nil
}

func (f *fakeStore) UpdatePage(ctx context.Context, pageID string, props notion.Properties) (*notion.Page, error) {
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	if f.updates == nil {
		f.updates = map[string]notion.Properties{}
	}
	if f.transferred == nil {
		f.transferred = map[string]bool{}
	}
	f.updates[pageID] = props
	if c, ok := props[DefaultTransferredProperty].(notion.CheckboxInput); ok && c.Checked {
		f.transferred[pageID] = true
	}
	return &notion.Page{Object: "page", ID: pageID}, nil
}

// fakeCovers returns a fixed cover or error and counts calls.
type fakeCovers struct {
	name  string
	url   string
	err   error
	calls int
}

func (f *fakeCovers) Name() string { return f.name }

func (f *fakeCovers) Cover(ctx context.Context, title, author string) (string, error) {
	f.calls++
	return f.url, f.err
}

// fakeDetails returns fixed details and counts calls.
type fakeDetails struct {
	name     string
	language string
	genres   []string
	err      error
	calls    int
}

func (f *fakeDetails) Name() string { return f.name }

func (f *fakeDetails) Language(ctx context.Context, title, author string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.language == "" {
		return "", books.ErrNotFound
	}
	return f.language, nil
}

func (f *fakeDetails) Genres(ctx context.Context, title, author string) ([]string, error) {
	f.calls++
	return f.genres, f.err
}

type fakeDates struct {
	name string
	date string
	err  error
}

func (f *fakeDates) Name() string { return f.name }

func (f *fakeDates) PublishedDate(ctx context.Context, title, author string) (string, error) {
	return f.date, f.err
}

var errBoom = errors.New("boom")
