// Defines the normalized intermediate record.

package migrate

import "maps"

// Value is a normalized field value. A nil Value is a null field.
//
// The set of implementations is closed: Text, Number, Checkbox, Choice,
// Choices, Dates, FileURL and Titles.
type Value interface {
	value()
}

// Text is the concatenated plain text of a title or rich_text property.
type Text string

// Number is a number property.
type Number float64

// Checkbox is a checkbox property.
type Checkbox bool

// Choice is the selected option name of a select property.
type Choice string

// Choices are the selected option names of a multi_select property, in order.
type Choices []string

// Dates holds zero, one (start) or two (start, end) ISO dates, kept verbatim.
type Dates []string

// FileURL is the external URL of the first file of a files property.
type FileURL string

// Titles are the resolved titles of a relation property, in order. A nil
// entry is a related page whose title could not be read.
type Titles []*string

func (Text) value()     {}
func (Number) value()   {}
func (Checkbox) value() {}
func (Choice) value()   {}
func (Choices) value()  {}
func (Dates) value()    {}
func (FileURL) value()  {}
func (Titles) value()   {}

// Record is one source row flattened to typed field values.
type Record struct {
	// SourceID is the Notion page ID of the source row.
	SourceID string
	// Category is the row's item type, e.g. "Book" or "Novella".
	Category string
	// Fields maps source property names to values. Unsupported property types
	// are absent; empty supported properties are present with a nil Value.
	Fields map[string]Value
}

// Clone returns a copy of r with its own field map.
func (r *Record) Clone() *Record {
	c := *r
	c.Fields = maps.Clone(r.Fields)
	return &c
}

// String returns the value of a Text, Choice or FileURL field, or "".
func (r *Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case Text:
		return string(v)
	case Choice:
		return string(v)
	case FileURL:
		return string(v)
	}
	return ""
}

// Strings returns the value of a Choices field, or nil.
func (r *Record) Strings(name string) []string {
	if v, ok := r.Fields[name].(Choices); ok {
		return v
	}
	return nil
}

// Number returns the value of a Number field.
func (r *Record) Number(name string) (float64, bool) {
	v, ok := r.Fields[name].(Number)
	return float64(v), ok
}

// Checkbox returns the value of a Checkbox field.
func (r *Record) Checkbox(name string) (bool, bool) {
	v, ok := r.Fields[name].(Checkbox)
	return bool(v), ok
}

// Dates returns the value of a Dates field, or nil.
func (r *Record) Dates(name string) []string {
	if v, ok := r.Fields[name].(Dates); ok {
		return v
	}
	return nil
}

// Missing reports whether a field is absent, null or empty.
func (r *Record) Missing(name string) bool {
	switch v := r.Fields[name].(type) {
	case nil:
		return true
	case Text:
		return v == ""
	case Choice:
		return v == ""
	case FileURL:
		return v == ""
	case Choices:
		return len(v) == 0
	case Dates:
		return len(v) == 0
	case Titles:
		return len(v) == 0
	}
	return false
}

// Title returns the record's name, for progress output.
func (r *Record) Title() string {
	if t := r.String(FieldName); t != "" {
		return t
	}
	return r.SourceID
}
