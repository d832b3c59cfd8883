// Fills in missing fields from book metadata services.

package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maruel/bookshelf/internal/books"
)

// CoverProvider finds a cover image URL for a book.
type CoverProvider interface {
	Name() string
	Cover(ctx context.Context, title, author string) (string, error)
}

// DetailsProvider finds the original language and genres of a book.
type DetailsProvider interface {
	Name() string
	Language(ctx context.Context, title, author string) (string, error)
	Genres(ctx context.Context, title, author string) ([]string, error)
}

// PublicationDateProvider finds the publication date of a book.
type PublicationDateProvider interface {
	Name() string
	PublishedDate(ctx context.Context, title, author string) (string, error)
}

// DefaultGenreDenylist lists genre terms too generic to keep. A genre is
// dropped when it contains any of them, case-sensitively.
var DefaultGenreDenylist = []string{"Fiction", "fiction", "Novel", "Literary"}

// Enricher fills fields that are missing locally. It never overwrites a field
// that already has a value, and never fails: lookup errors are logged and
// leave the field missing.
type Enricher struct {
	// Covers are tried in order until one returns a URL.
	Covers []CoverProvider
	// Details are tried in order for language and genres independently.
	Details []DetailsProvider
	// Published is optional.
	Published     PublicationDateProvider
	GenreDenylist []string
}

// Enrich returns a copy of r with missing fields filled in, and the lookups
// that did not produce a value.
func (e *Enricher) Enrich(ctx context.Context, r *Record) (*Record, []*LookupFailure) {
	out := r.Clone()
	title := r.String(FieldName)
	var author string
	if a := r.Strings(FieldAuthor); len(a) != 0 {
		author = a[0]
	}
	var failures []*LookupFailure
	fail := func(field, provider string, err error) {
		f := &LookupFailure{Field: field, Provider: provider, Err: err}
		failures = append(failures, f)
		if errors.Is(err, books.ErrNotFound) {
			slog.DebugContext(ctx, "Lookup found nothing", "title", title, "field", field, "provider", provider)
		} else {
			slog.WarnContext(ctx, "Lookup failed", "title", title, "field", field, "provider", provider, "err", err)
		}
	}

	if r.Missing(FieldCover) {
		for _, p := range e.Covers {
			u, err := p.Cover(ctx, title, author)
			if err == nil && u == "" {
				err = books.ErrNotFound
			}
			if err != nil {
				fail(FieldCover, p.Name(), err)
				continue
			}
			out.Fields[FieldCover] = FileURL(u)
			break
		}
	}

	if r.Missing(FieldLanguage) {
		for _, p := range e.Details {
			lang, err := p.Language(ctx, title, author)
			if err == nil && lang == "" {
				err = books.ErrNotFound
			}
			if err != nil {
				fail(FieldLanguage, p.Name(), err)
				continue
			}
			out.Fields[FieldLanguage] = Choice(lang)
			break
		}
	}

	if r.Missing(FieldGenre) {
		for _, p := range e.Details {
			genres, err := p.Genres(ctx, title, author)
			if err == nil {
				genres = filterGenres(genres, e.GenreDenylist)
				if len(genres) == 0 {
					err = books.ErrNotFound
				}
			}
			if err != nil {
				fail(FieldGenre, p.Name(), err)
				continue
			}
			out.Fields[FieldGenre] = Choices(genres)
			break
		}
	}

	if e.Published != nil && r.Missing(FieldPublished) {
		d, err := e.Published.PublishedDate(ctx, title, author)
		if err == nil {
			d, err = isoDate(d)
		}
		if err != nil {
			fail(FieldPublished, e.Published.Name(), err)
		} else {
			out.Fields[FieldPublished] = Dates{d}
		}
	}
	return out, failures
}

// filterGenres drops genres containing a denied term and duplicates.
func filterGenres(genres, deny []string) []string {
	var out []string
	seen := make(map[string]bool, len(genres))
outer:
	for _, g := range genres {
		for _, d := range deny {
			if strings.Contains(g, d) {
				continue outer
			}
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// isoDate pads partial dates ("1965", "1965-08") to a full ISO date.
func isoDate(s string) (string, error) {
	switch len(s) {
	case 4:
		return s + "-01-01", nil
	case 7:
		return s + "-01", nil
	case 10:
		return s, nil
	}
	return "", fmt.Errorf("unexpected date %q", s)
}

// ISBNFinder finds the ISBN of a book.
type ISBNFinder interface {
	ISBN(ctx context.Context, title, author string) (string, error)
}

// ISBNCoverFinder finds a cover URL by ISBN.
type ISBNCoverFinder interface {
	CoverURL(ctx context.Context, isbn string) (string, error)
}

// ISBNCover finds a cover in two steps: title and author to ISBN, then ISBN
// to cover URL.
type ISBNCover struct {
	ISBNs  ISBNFinder
	Covers ISBNCoverFinder
}

// Name implements CoverProvider.
func (c *ISBNCover) Name() string { return "isbn" }

// Cover implements CoverProvider.
func (c *ISBNCover) Cover(ctx context.Context, title, author string) (string, error) {
	isbn, err := c.ISBNs.ISBN(ctx, title, author)
	if err != nil {
		return "", fmt.Errorf("isbn: %w", err)
	}
	u, err := c.Covers.CoverURL(ctx, isbn)
	if err != nil {
		return "", fmt.Errorf("cover for %s: %w", isbn, err)
	}
	return u, nil
}

// ThumbnailFinder finds a search result thumbnail.
type ThumbnailFinder interface {
	Thumbnail(ctx context.Context, title, author string) (string, error)
}

// ThumbnailCover uses the search result thumbnail as the cover.
type ThumbnailCover struct {
	Volumes ThumbnailFinder
}

// Name implements CoverProvider.
func (c *ThumbnailCover) Name() string { return "thumbnail" }

// Cover implements CoverProvider.
func (c *ThumbnailCover) Cover(ctx context.Context, title, author string) (string, error) {
	return c.Volumes.Thumbnail(ctx, title, author)
}

// VolumeFinder resolves a book to its edition page.
type VolumeFinder interface {
	VolumeURL(ctx context.Context, title, author string) (string, error)
}

// PageScraper reads fields from an edition page.
type PageScraper interface {
	Language(ctx context.Context, pageURL string) (string, error)
	Genres(ctx context.Context, pageURL string) ([]string, error)
}

// ScrapedDetails resolves the edition page of a book and scrapes it.
type ScrapedDetails struct {
	Volumes VolumeFinder
	Pages   PageScraper
}

// Name implements DetailsProvider.
func (d *ScrapedDetails) Name() string { return "edition-page" }

// Language implements DetailsProvider.
func (d *ScrapedDetails) Language(ctx context.Context, title, author string) (string, error) {
	u, err := d.Volumes.VolumeURL(ctx, title, author)
	if err != nil {
		return "", err
	}
	return d.Pages.Language(ctx, u)
}

// Genres implements DetailsProvider.
func (d *ScrapedDetails) Genres(ctx context.Context, title, author string) ([]string, error) {
	u, err := d.Volumes.VolumeURL(ctx, title, author)
	if err != nil {
		return nil, err
	}
	return d.Pages.Genres(ctx, u)
}
