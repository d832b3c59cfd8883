// Defines property values written to pages on create and update.

package notion

import "encoding/json"

// PropertyInput is a property value sent to the API when creating or updating
// a page.
//
// The set of implementations is closed: TitleInput, SelectInput,
// MultiSelectInput, DateInput, NumberInput, CheckboxInput and FilesInput.
type PropertyInput interface {
	json.Marshaler
	propertyInput()
}

// Properties maps property names to the values to write.
type Properties map[string]PropertyInput

// TitleInput sets a title property to a single text run.
type TitleInput struct {
	Text string
}

// SelectInput sets a select property by option name.
type SelectInput struct {
	Name string
}

// MultiSelectInput sets a multi_select property by option names, in order.
type MultiSelectInput struct {
	Names []string
}

// DateInput sets a date property. End is optional.
type DateInput struct {
	Start string
	End   *string
}

// NumberInput sets a number property.
type NumberInput struct {
	Value float64
}

// CheckboxInput sets a checkbox property.
type CheckboxInput struct {
	Checked bool
}

// FilesInput sets a files property to one external file.
type FilesInput struct {
	Name string
	URL  string
}

func (TitleInput) propertyInput()       {}
func (SelectInput) propertyInput()      {}
func (MultiSelectInput) propertyInput() {}
func (DateInput) propertyInput()        {}
func (NumberInput) propertyInput()      {}
func (CheckboxInput) propertyInput()    {}
func (FilesInput) propertyInput()       {}

// dateRange always carries "end" so that clearing it is explicit.
type dateRange struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

type textInput struct {
	Text TextContent `json:"text"`
}

// MarshalJSON implements json.Marshaler.
func (t TitleInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string      `json:"type"`
		Title []textInput `json:"title"`
	}{"title", []textInput{{Text: TextContent{Content: t.Text}}}})
}

// MarshalJSON implements json.Marshaler.
func (s SelectInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string      `json:"type"`
		Select SelectValue `json:"select"`
	}{"select", SelectValue{Name: s.Name}})
}

// MarshalJSON implements json.Marshaler.
func (m MultiSelectInput) MarshalJSON() ([]byte, error) {
	opts := make([]SelectValue, 0, len(m.Names))
	for _, n := range m.Names {
		opts = append(opts, SelectValue{Name: n})
	}
	return json.Marshal(struct {
		Type        string        `json:"type"`
		MultiSelect []SelectValue `json:"multi_select"`
	}{"multi_select", opts})
}

// MarshalJSON implements json.Marshaler.
func (d DateInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string    `json:"type"`
		Date dateRange `json:"date"`
	}{"date", dateRange{Start: d.Start, End: d.End}})
}

// MarshalJSON implements json.Marshaler.
func (n NumberInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string  `json:"type"`
		Number float64 `json:"number"`
	}{"number", n.Value})
}

// MarshalJSON implements json.Marshaler.
func (c CheckboxInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Checkbox bool   `json:"checkbox"`
	}{"checkbox", c.Checked})
}

// MarshalJSON implements json.Marshaler.
func (f FilesInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string      `json:"type"`
		Files []FileValue `json:"files"`
	}{"files", []FileValue{{Type: "external", Name: f.Name, External: &File{URL: f.URL}}}})
}
