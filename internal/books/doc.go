// Package books looks up book metadata used to fill in missing fields during
// the bookshelf migration.
//
// GoogleBooks searches volumes by title and author, OpenLibrary resolves cover
// images by ISBN and Scraper reads the original language and genres from a
// Google Books edition page. None of the clients are safe for concurrent use.
package books

import "errors"

// ErrNotFound is returned when a lookup succeeded but yielded nothing usable.
var ErrNotFound = errors.New("not found")
