// Tests for the Google Books client.

package books

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVolumeInfo_ISBN(t *testing.T) {
	tests := []struct {
		name string
		ids  []IndustryIdentifier
		want string
	}{
		{"none", nil, ""},
		{"isbn13 only", []IndustryIdentifier{{"ISBN_13", "9780441172719"}}, "9780441172719"},
		{"isbn10 only", []IndustryIdentifier{{"ISBN_10", "0441172717"}}, "0441172717"},
		{"prefers isbn13", []IndustryIdentifier{{"ISBN_10", "0441172717"}, {"ISBN_13", "9780441172719"}}, "9780441172719"},
		{"other ignored", []IndustryIdentifier{{"OTHER", "UOM:39015"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VolumeInfo{IndustryIdentifiers: tt.ids}
			if got := v.ISBN(); got != tt.want {
				t.Errorf("ISBN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		title, author, want string
	}{
		{"Dune", "Frank Herbert", "intitle:Dune inauthor:Frank Herbert"},
		{"Dune", "", "intitle:Dune"},
		{"", "Herbert", "inauthor:Herbert"},
		{" ", "", ""},
	}
	for _, tt := range tests {
		if got := searchQuery(tt.title, tt.author); got != tt.want {
			t.Errorf("searchQuery(%q, %q) = %q, want %q", tt.title, tt.author, got, tt.want)
		}
	}
}

func TestGoogleBooks(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("key"); got != "gkey" {
			t.Errorf("key = %q", got)
		}
		switch r.URL.Query().Get("q") {
		case "intitle:Dune inauthor:Frank Herbert":
			_, _ = io.WriteString(w, `{"totalItems":1,"items":[{"id":"B1yZ","volumeInfo":{
				"title":"Dune","publishedDate":"1965",
				"industryIdentifiers":[{"type":"ISBN_10","identifier":"0441172717"},{"type":"ISBN_13","identifier":"9780441172719"}],
				"imageLinks":{"thumbnail":"http://books.google.com/thumb?id=B1yZ"}}}]}`)
		case "intitle:Nothing":
			_, _ = io.WriteString(w, `{"totalItems":0}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g := NewGoogleBooks("gkey", 0)
	g.BaseURL = server.URL
	g.EditionURL = "https://books.example/edition/_/"
	ctx := context.Background()

	isbn, err := g.ISBN(ctx, "Dune", "Frank Herbert")
	if err != nil || isbn != "9780441172719" {
		t.Errorf("ISBN() = %q, %v", isbn, err)
	}
	thumb, err := g.Thumbnail(ctx, "Dune", "Frank Herbert")
	if err != nil || thumb != "http://books.google.com/thumb?id=B1yZ" {
		t.Errorf("Thumbnail() = %q, %v", thumb, err)
	}
	date, err := g.PublishedDate(ctx, "Dune", "Frank Herbert")
	if err != nil || date != "1965" {
		t.Errorf("PublishedDate() = %q, %v", date, err)
	}
	u, err := g.VolumeURL(ctx, "Dune", "Frank Herbert")
	if err != nil || u != "https://books.example/edition/_/B1yZ" {
		t.Errorf("VolumeURL() = %q, %v", u, err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1 (memoized)", calls)
	}

	if _, err := g.ISBN(ctx, "Nothing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("ISBN(Nothing) error = %v, want ErrNotFound", err)
	}
	if _, err := g.ISBN(ctx, "Nothing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("memoized ISBN(Nothing) error = %v, want ErrNotFound", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}

	_, err = g.ISBN(ctx, "Broken", "")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Errorf("ISBN(Broken) error = %v, want StatusError 500", err)
	}
}
