// Converts page property values into closed raw variants.

package notion

import "strings"

// RawProperty is a property value read from a database row, narrowed to the
// property types the migration understands.
//
// The set of implementations is closed: RawText, RawNumber, RawCheckbox,
// RawDate, RawFiles, RawSelect, RawMultiSelect and RawRelation.
type RawProperty interface {
	rawProperty()
}

// RawText is a title or rich_text property.
type RawText struct {
	Runs []RichText
}

// RawNumber is a number property. Value is nil when the cell is empty.
type RawNumber struct {
	Value *float64
}

// RawCheckbox is a checkbox property.
type RawCheckbox struct {
	Checked bool
}

// RawDate is a date property. Value is nil when the cell is empty.
type RawDate struct {
	Value *DateValue
}

// RawFiles is a files property.
type RawFiles struct {
	Files []FileValue
}

// RawSelect is a select property. Option is nil when nothing is selected.
type RawSelect struct {
	Option *SelectValue
}

// RawMultiSelect is a multi_select property.
type RawMultiSelect struct {
	Options []SelectValue
}

// RawRelation is a relation property.
type RawRelation struct {
	IDs []string
}

func (RawText) rawProperty()        {}
func (RawNumber) rawProperty()      {}
func (RawCheckbox) rawProperty()    {}
func (RawDate) rawProperty()        {}
func (RawFiles) rawProperty()       {}
func (RawSelect) rawProperty()      {}
func (RawMultiSelect) rawProperty() {}
func (RawRelation) rawProperty()    {}

// Raw returns the typed variant of the property value, or nil if the property
// type is not supported (people, formula, rollup, url, ...).
func (pv *PropertyValue) Raw() RawProperty {
	switch pv.Type {
	case "title":
		return RawText{Runs: pv.Title}
	case "rich_text":
		return RawText{Runs: pv.RichText}
	case "number":
		return RawNumber{Value: pv.Number}
	case "checkbox":
		return RawCheckbox{Checked: pv.Checkbox != nil && *pv.Checkbox}
	case "date":
		return RawDate{Value: pv.Date}
	case "files":
		return RawFiles{Files: pv.Files}
	case "select":
		return RawSelect{Option: pv.Select}
	case "multi_select":
		return RawMultiSelect{Options: pv.MultiSelect}
	case "relation":
		ids := make([]string, 0, len(pv.Relation))
		for _, rel := range pv.Relation {
			ids = append(ids, rel.ID)
		}
		return RawRelation{IDs: ids}
	default:
		return nil
	}
}

// PlainText concatenates the plain text of every run, in order.
func PlainText(rt []RichText) string {
	parts := make([]string, 0, len(rt))
	for i := range rt {
		parts = append(parts, rt[i].PlainText)
	}
	return strings.Join(parts, "")
}
