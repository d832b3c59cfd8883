// Package notion provides a client for the parts of the Notion API used by
// the bookshelf migration.
//
// It covers:
//   - API client with rate limiting (3 req/sec)
//   - Database queries with a filter tree and cursor pagination
//   - Page property reads (relation title resolution), page create and page update
//   - Closed variants for raw property values read from a database row
//   - Closed variants for property values written to a database row
package notion
