// Package migrate moves bookshelf rows from the old Notion database to the new
// one.
//
// The pipeline for each row is: normalize the raw Notion properties into a
// flat Record, enrich missing fields (cover, language, genres, publication
// date) from book metadata services, map the Record onto the destination
// schema of its category, create the destination page, and flag the source
// row as transferred.
//
// Rows are processed strictly one at a time. The transferred flag is the only
// idempotency mechanism: a row whose create failed is left unflagged and is
// selected again by the next run.
package migrate
