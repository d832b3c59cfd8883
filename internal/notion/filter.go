// Defines the database query filter tree.

package notion

// Filter is a node in a database query filter.
//
// A leaf names a Property and sets exactly one condition. A compound node sets
// And (or Or) and nothing else. The API limits compound filters to two levels
// of nesting (MaxFilterDepth), so callers should keep trees shallow.
type Filter struct {
	Property    string                `json:"property,omitempty"`
	Checkbox    *CheckboxCondition    `json:"checkbox,omitempty"`
	Select      *SelectCondition      `json:"select,omitempty"`
	MultiSelect *MultiSelectCondition `json:"multi_select,omitempty"`
	Relation    *RelationCondition    `json:"relation,omitempty"`

	And []*Filter `json:"and,omitempty"`
	Or  []*Filter `json:"or,omitempty"`
}

// MaxFilterDepth is the deepest nesting of compound filters the API accepts.
const MaxFilterDepth = 2

// CheckboxCondition filters a checkbox property.
type CheckboxCondition struct {
	Equals bool `json:"equals"`
}

// SelectCondition filters a select property.
type SelectCondition struct {
	Equals string `json:"equals"`
}

// MultiSelectCondition filters a multi_select property.
type MultiSelectCondition struct {
	Contains string `json:"contains"`
}

// RelationCondition filters a relation property.
type RelationCondition struct {
	Contains string `json:"contains,omitempty"`
	IsEmpty  bool   `json:"is_empty,omitempty"`
}

// IsLeaf reports whether the filter has no children.
func (f *Filter) IsLeaf() bool {
	return len(f.And) == 0 && len(f.Or) == 0
}

// Depth returns the number of compound levels above the deepest leaf.
// A leaf has depth 0.
func (f *Filter) Depth() int {
	d := 0
	for _, children := range [][]*Filter{f.And, f.Or} {
		for _, c := range children {
			d = max(d, c.Depth()+1)
		}
	}
	return d
}
