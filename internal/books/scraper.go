// Scrapes language and genres from Google Books edition pages.

package books

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Scraper reads fields from a Google Books edition page.
//
// Edition pages are not covered by the public API; the labels below are the
// ones rendered in the "About this edition" panel.
type Scraper struct {
	httpClient *http.Client
	lastURL    string
	lastDoc    *goquery.Document
}

// NewScraper creates a scraper.
func NewScraper() *Scraper {
	return &Scraper{httpClient: newHTTPClient()}
}

// fetch loads and parses pageURL, reusing the previous document when the same
// page is requested twice in a row.
func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.lastDoc != nil && s.lastURL == pageURL {
		return s.lastDoc, nil
	}
	body, err := get(ctx, s.httpClient, nil, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	s.lastURL, s.lastDoc = pageURL, doc
	return doc, nil
}

// Language returns the text of the first link following the "Original
// language" label.
func (s *Scraper) Language(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	label := findLabel(doc, func(t string) bool { return strings.Contains(t, "Original language") })
	if label == nil {
		return "", ErrNotFound
	}
	if lang := strings.TrimSpace(followingLink(doc, label)); lang != "" {
		return lang, nil
	}
	return "", ErrNotFound
}

// Genres returns the entries listed under "Genres" followed by the
// components of the "Subject" line.
func (s *Scraper) Genres(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	var genres []string
	if label := findLabel(doc, func(t string) bool { return strings.Contains(t, "Genres") }); label != nil {
		goquery.NewDocumentFromNode(label).Selection.
			NextAllFiltered("span").ChildrenFiltered("span").Children().
			Each(func(_ int, sel *goquery.Selection) {
				if g := strings.TrimSpace(sel.Text()); g != "" {
					genres = append(genres, g)
				}
			})
	}
	if label := findLabel(doc, func(t string) bool { return t == "Subject" }); label != nil {
		subject := goquery.NewDocumentFromNode(label).Selection.
			NextAllFiltered("span").ChildrenFiltered("span").First().Text()
		genres = append(genres, splitSubject(subject)...)
	}
	if len(genres) == 0 {
		return nil, ErrNotFound
	}
	return genres, nil
}

// splitSubject turns "Fiction / Science Fiction / General, more" into its
// components, dropping the generic trailers.
func splitSubject(subject string) []string {
	subject = strings.ReplaceAll(subject, ", more", "")
	subject = strings.ReplaceAll(subject, ", Fiction", "")
	var out []string
	for part := range strings.SplitSeq(subject, " / ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// findLabel returns the first element, in document order, whose own text
// satisfies match.
func findLabel(doc *goquery.Document, match func(string) bool) *html.Node {
	var found *html.Node
	doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		n := sel.Get(0)
		if match(strings.TrimSpace(ownText(n))) {
			found = n
			return false
		}
		return true
	})
	return found
}

// followingLink returns the text of the first <a> after label in document
// order, excluding label's own descendants.
func followingLink(doc *goquery.Document, label *html.Node) string {
	after := false
	var text string
	doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		n := sel.Get(0)
		if n == label {
			after = true
			return true
		}
		if !after || isDescendant(label, n) {
			return true
		}
		if n.Data == "a" {
			text = sel.Text()
			return false
		}
		return true
	})
	return text
}

func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func isDescendant(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
