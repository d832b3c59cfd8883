// Builds the query filter selecting rows to migrate.

package migrate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/maruel/bookshelf/internal/notion"
)

// Status is the reading status a run is restricted to.
type Status int

// Reading statuses. StatusAny applies no restriction.
const (
	StatusAny Status = iota
	StatusRead
	StatusReading
	StatusWantToRead
)

// String returns the option name used in the source database.
func (s Status) String() string {
	switch s {
	case StatusRead:
		return "Read"
	case StatusReading:
		return "Reading"
	case StatusWantToRead:
		return "Want to read"
	default:
		return ""
	}
}

// ParseStatus accepts the legacy numeric codes (0, 1, 2) or the names read,
// reading and want-to-read. The empty string is StatusAny.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return StatusAny, nil
	case "0", "read":
		return StatusRead, nil
	case "1", "reading":
		return StatusReading, nil
	case "2", "want-to-read", "want to read":
		return StatusWantToRead, nil
	}
	return StatusAny, fmt.Errorf("invalid status %q: want read, reading or want-to-read", s)
}

// Criteria selects the rows of a run.
type Criteria struct {
	Status Status
	// Category restricts to one item type, e.g. "Book". Empty means any.
	Category string
	// StandaloneOnly restricts to rows that are not part of a series.
	StandaloneOnly bool
	// Year restricts to rows read in a year bucket. Empty means any.
	Year string
}

// YearTable maps year bucket labels to the page IDs of the "Year Read"
// relation targets.
type YearTable map[string]string

// DefaultYears is the year bucket table of the source database.
var DefaultYears = YearTable{
	"2023":      "fb9c8939252942189c50cec14df3e7bd",
	"2022":      "2ee1e919789e4594b1e9f5b9c2ddf05e",
	"Grad":      "d94f0c714723481994d9c3bfefdfb681",
	"Childhood": "e640e16b6a7f4a7788264a689067bc7d",
}

// FilterBuilder builds query filters for Criteria.
type FilterBuilder struct {
	// TransferredProperty is the checkbox marking migrated rows.
	TransferredProperty string
	Years               YearTable
}

// Build returns the filter for c. The "not yet transferred" predicate is
// always included.
//
// The API rejects deeply nested compound filters, so predicates are combined
// into a balanced tree of "and" nodes rather than a chain.
func (b *FilterBuilder) Build(c Criteria) (*notion.Filter, error) {
	leaves := []*notion.Filter{{
		Property: b.TransferredProperty,
		Checkbox: &notion.CheckboxCondition{Equals: false},
	}}
	if c.Status != StatusAny {
		leaves = append(leaves, &notion.Filter{
			Property:    FieldStatus,
			MultiSelect: &notion.MultiSelectCondition{Contains: c.Status.String()},
		})
	}
	if c.Category != "" {
		leaves = append(leaves, &notion.Filter{
			Property: FieldType,
			Select:   &notion.SelectCondition{Equals: c.Category},
		})
	}
	if c.StandaloneOnly {
		leaves = append(leaves, &notion.Filter{
			Property: FieldSeries,
			Relation: &notion.RelationCondition{IsEmpty: true},
		})
	}
	if c.Year != "" {
		id, ok := b.Years[c.Year]
		if !ok {
			return nil, &ConfigurationError{What: "year " + c.Year, Err: ErrUnknownYear}
		}
		leaves = append(leaves, &notion.Filter{
			Property: FieldYearRead,
			Relation: &notion.RelationCondition{Contains: id},
		})
	}
	f := balance(leaves)
	if d := f.Depth(); d > notion.MaxFilterDepth {
		slog.Warn("Filter is nested deeper than the API accepts; the query will likely be rejected, drop a criterion",
			"depth", d, "max", notion.MaxFilterDepth, "predicates", len(leaves))
	}
	return f, nil
}

// balance combines leaves into a binary "and" tree of depth ceil(log2(n)).
func balance(leaves []*notion.Filter) *notion.Filter {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	mid := len(leaves) / 2
	return &notion.Filter{And: []*notion.Filter{balance(leaves[:mid]), balance(leaves[mid:])}}
}
