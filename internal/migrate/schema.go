// Defines the destination schema registry and per-field conversion rules.

package migrate

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/maruel/bookshelf/internal/notion"
)

// Source database property names.
const (
	FieldName           = "Name"
	FieldType           = "Type"
	FieldCover          = "Cover"
	FieldAuthor         = "Author"
	FieldLanguage       = "Language of original publication"
	FieldGenre          = "Genre"
	FieldDates          = "Start and End"
	FieldRating         = "Rate"
	FieldCurrentPage    = "Currently on"
	FieldTotalPages     = "Total Pages"
	FieldNumberInSeries = "Number in Series"
	FieldOwned          = "Owned"
	FieldSeries         = "Series"
	FieldStatus         = "Status"
	FieldYearRead       = "Year Read"
	// FieldPublished has no source column; it is only filled by enrichment.
	FieldPublished = "Publication date"
)

// Destination database property names.
const (
	DestTitle          = "Title"
	DestType           = "0 Type"
	DestCover          = "0 Cover"
	DestAuthors        = "1 Author(s)"
	DestLanguage       = "1 Language"
	DestGenres         = "1 Genre(s)"
	DestDatesRead      = "1 Dates read"
	DestRating         = "1 Rating"
	DestCurrentPage    = "BNG Current page"
	DestTotalPages     = "BNG Total pages"
	DestNumberInSeries = "BNG Number in series"
	DestPublished      = "BNGISP Publication date"
	DestOwned          = "BNGCA Owned"
	// DestNeedsReview is set on every created page.
	DestNeedsReview = "Needs Review"
)

// Convert builds one destination property from a record. A nil result means
// the property is omitted from the payload.
type Convert func(r *Record) notion.PropertyInput

// Field is a destination property and the rule producing it.
type Field struct {
	Name    string
	Convert Convert
}

// DefaultRenames maps old category names to their destination names.
// Categories not listed keep their name.
var DefaultRenames = map[string]string{
	"Poetry":      "Poem",
	"Short Story": "Short story",
}

// Registry maps each category to its ordered destination fields.
//
// It is the single source of truth for which properties a category gets and
// how each is converted. It is read-only once built.
type Registry struct {
	categories map[string][]Field
	renames    map[string]string
}

// NewRegistry returns the registry of the bookshelf databases. renames may be
// nil to use DefaultRenames.
func NewRegistry(renames map[string]string) *Registry {
	if renames == nil {
		renames = DefaultRenames
	}
	reg := &Registry{renames: renames}

	// Fields shared by every category, in destination column order.
	head := []Field{
		{DestTitle, titleFrom(FieldName)},
		{DestType, reg.category},
		{DestCover, coverFrom(FieldCover)},
		{DestAuthors, multiSelectFrom(FieldAuthor)},
		{DestLanguage, selectFrom(FieldLanguage)},
		{DestGenres, multiSelectFrom(FieldGenre)},
		{DestDatesRead, datesFrom(FieldDates)},
		{DestRating, selectFrom(FieldRating)},
	}
	// Only paged media track reading progress and series position.
	paged := []Field{
		{DestCurrentPage, numberFrom(FieldCurrentPage)},
		{DestTotalPages, numberFrom(FieldTotalPages)},
		{DestNumberInSeries, numberFrom(FieldNumberInSeries)},
	}
	tail := []Field{
		{DestPublished, datesFrom(FieldPublished)},
		{DestOwned, checkboxFrom(FieldOwned)},
	}
	book := slices.Concat(head, paged, tail)
	short := slices.Concat(head, tail)

	reg.categories = map[string][]Field{
		"Book":          book,
		"Novella":       book,
		"Graphic Novel": book,
		"Short Story":   short,
		"Poetry":        short,
	}
	return reg
}

// Categories returns the registered category names, sorted.
func (reg *Registry) Categories() []string {
	names := make([]string, 0, len(reg.categories))
	for name := range reg.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns the destination fields of category.
func (reg *Registry) Fields(category string) ([]Field, error) {
	fields, ok := reg.categories[category]
	if !ok {
		return nil, &ConfigurationError{What: fmt.Sprintf("category %q", category), Err: ErrUnknownCategory}
	}
	return fields, nil
}

// Rename returns the destination name of an old category.
func (reg *Registry) Rename(category string) string {
	if n, ok := reg.renames[category]; ok {
		return n
	}
	return category
}

// Map builds the destination properties of r.
//
// DestNeedsReview is always set to true. Fields whose conversion yields nothing
// are omitted; no property is ever sent as an explicit null.
func (reg *Registry) Map(r *Record) (notion.Properties, error) {
	fields, err := reg.Fields(r.Category)
	if err != nil {
		return nil, err
	}
	props := notion.Properties{DestNeedsReview: notion.CheckboxInput{Checked: true}}
	for _, f := range fields {
		if p := f.Convert(r); p != nil {
			props[f.Name] = p
		}
	}
	return props, nil
}

func (reg *Registry) category(r *Record) notion.PropertyInput {
	if r.Category == "" {
		return nil
	}
	return notion.SelectInput{Name: reg.Rename(r.Category)}
}

func titleFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		if _, ok := r.Fields[field].(Text); !ok {
			return nil
		}
		return notion.TitleInput{Text: r.String(field)}
	}
}

func selectFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		if v := r.String(field); v != "" {
			return notion.SelectInput{Name: v}
		}
		return nil
	}
}

func multiSelectFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		if v := r.Strings(field); len(v) != 0 {
			return notion.MultiSelectInput{Names: v}
		}
		return nil
	}
}

func coverFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		if u := r.String(field); u != "" {
			return notion.FilesInput{Name: "cover", URL: u}
		}
		return nil
	}
}

func datesFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		d := r.Dates(field)
		if len(d) == 0 {
			return nil
		}
		in := notion.DateInput{Start: d[0]}
		if len(d) == 2 {
			in.End = &d[1]
		}
		return in
	}
}

func numberFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		v, ok := r.Number(field)
		if !ok || math.IsNaN(v) {
			return nil
		}
		return notion.NumberInput{Value: v}
	}
}

func checkboxFrom(field string) Convert {
	return func(r *Record) notion.PropertyInput {
		v, ok := r.Checkbox(field)
		if !ok {
			return nil
		}
		return notion.CheckboxInput{Checked: v}
	}
}
