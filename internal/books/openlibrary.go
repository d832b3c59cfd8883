// Implements the Open Library cover lookup.

package books

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// OpenLibraryURL is the books API endpoint.
const OpenLibraryURL = "https://openlibrary.org/api/books"

type openLibraryBook struct {
	BibKey       string `json:"bib_key"`
	InfoURL      string `json:"info_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// OpenLibrary resolves cover images by ISBN.
type OpenLibrary struct {
	BaseURL string

	httpClient *http.Client
}

// NewOpenLibrary creates a client.
func NewOpenLibrary() *OpenLibrary {
	return &OpenLibrary{
		BaseURL:    OpenLibraryURL,
		httpClient: newHTTPClient(),
	}
}

// CoverURL returns the medium-sized cover for isbn.
//
// Open Library only returns the small thumbnail; its medium variant lives at
// the same path with the -M suffix.
func (o *OpenLibrary) CoverURL(ctx context.Context, isbn string) (string, error) {
	key := "ISBN:" + isbn
	params := url.Values{"bibkeys": {key}, "format": {"json"}}
	var resp map[string]openLibraryBook
	if err := getJSON(ctx, o.httpClient, nil, o.BaseURL+"?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	book, ok := resp[key]
	if !ok || book.ThumbnailURL == "" {
		return "", ErrNotFound
	}
	return strings.Replace(book.ThumbnailURL, "-S.jpg", "-M.jpg", 1), nil
}
