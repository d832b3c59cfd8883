// Implements the Google Books volume search client.

package books

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GoogleBooksURL is the volume search endpoint.
	GoogleBooksURL = "https://www.googleapis.com/books/v1/volumes"
	// GoogleEditionURL is the prefix of a rendered edition page, keyed by volume ID.
	GoogleEditionURL = "https://google.com/books/edition/_/"
)

// Volume is one Google Books search result.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the bibliographic fields of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	PublishedDate       string               `json:"publishedDate"`
	Language            string               `json:"language"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	ImageLinks          *ImageLinks          `json:"imageLinks,omitempty"`
}

// IndustryIdentifier is an ISBN or other identifier.
type IndustryIdentifier struct {
	Type       string `json:"type"` // "ISBN_13", "ISBN_10", "OTHER"
	Identifier string `json:"identifier"`
}

// ImageLinks holds cover thumbnails.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// ISBN returns the ISBN-13 if present, else the ISBN-10, else "".
func (v *VolumeInfo) ISBN() string {
	var isbn10 string
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Identifier
			}
		}
	}
	return isbn10
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// GoogleBooks searches Google Books by title and author.
//
// The first result of each distinct query is memoized for the lifetime of the
// client, since several fields are derived from the same search.
type GoogleBooks struct {
	APIKey     string
	BaseURL    string
	EditionURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	memo       map[string]*Volume
}

// NewGoogleBooks creates a client. interval is the minimum time between
// requests; zero disables rate limiting.
func NewGoogleBooks(apiKey string, interval time.Duration) *GoogleBooks {
	g := &GoogleBooks{
		APIKey:     apiKey,
		BaseURL:    GoogleBooksURL,
		EditionURL: GoogleEditionURL,
		httpClient: newHTTPClient(),
		memo:       make(map[string]*Volume),
	}
	if interval > 0 {
		g.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return g
}

// searchQuery builds the q parameter, e.g. "intitle:Dune inauthor:Frank Herbert".
func searchQuery(title, author string) string {
	var terms []string
	if title = strings.TrimSpace(title); title != "" {
		terms = append(terms, "intitle:"+title)
	}
	if author = strings.TrimSpace(author); author != "" {
		terms = append(terms, "inauthor:"+author)
	}
	return strings.Join(terms, " ")
}

// Search returns the best matching volume. It returns ErrNotFound when the
// search has no results.
func (g *GoogleBooks) Search(ctx context.Context, title, author string) (*Volume, error) {
	q := searchQuery(title, author)
	if q == "" {
		return nil, ErrNotFound
	}
	if v, ok := g.memo[q]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return v, nil
	}

	params := url.Values{"q": {q}, "maxResults": {"1"}}
	if g.APIKey != "" {
		params.Set("key", g.APIKey)
	}
	var resp volumesResponse
	if err := getJSON(ctx, g.httpClient, g.limiter, g.BaseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		g.memo[q] = nil
		return nil, ErrNotFound
	}
	v := &resp.Items[0]
	g.memo[q] = v
	return v, nil
}

// Name identifies the service in lookup logs.
func (g *GoogleBooks) Name() string { return "google-books" }

// ISBN returns the ISBN of the best matching volume, preferring ISBN-13.
func (g *GoogleBooks) ISBN(ctx context.Context, title, author string) (string, error) {
	v, err := g.Search(ctx, title, author)
	if err != nil {
		return "", err
	}
	if isbn := v.VolumeInfo.ISBN(); isbn != "" {
		return isbn, nil
	}
	return "", ErrNotFound
}

// Thumbnail returns the cover thumbnail of the best matching volume.
func (g *GoogleBooks) Thumbnail(ctx context.Context, title, author string) (string, error) {
	v, err := g.Search(ctx, title, author)
	if err != nil {
		return "", err
	}
	if v.VolumeInfo.ImageLinks == nil || v.VolumeInfo.ImageLinks.Thumbnail == "" {
		return "", ErrNotFound
	}
	return v.VolumeInfo.ImageLinks.Thumbnail, nil
}

// PublishedDate returns the publication date of the best matching volume as
// reported by Google Books ("2005", "2005-08" or "2005-08-02").
func (g *GoogleBooks) PublishedDate(ctx context.Context, title, author string) (string, error) {
	v, err := g.Search(ctx, title, author)
	if err != nil {
		return "", err
	}
	if v.VolumeInfo.PublishedDate == "" {
		return "", ErrNotFound
	}
	return v.VolumeInfo.PublishedDate, nil
}

// VolumeURL returns the edition page of the best matching volume.
func (g *GoogleBooks) VolumeURL(ctx context.Context, title, author string) (string, error) {
	v, err := g.Search(ctx, title, author)
	if err != nil {
		return "", err
	}
	return g.EditionURL + url.PathEscape(v.ID), nil
}
