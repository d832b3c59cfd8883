// Defines Notion API response types.

package notion

import (
	"maps"
	"time"
)

// PaginatedResponse is the common structure for paginated API responses.
type PaginatedResponse[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// QueryResponse is the response from database query endpoint.
type QueryResponse = PaginatedResponse[Page]

// PropertyItemResponse is the response from the page property endpoint.
//
// Title, rich_text and relation properties are returned paginated, one item
// per text run or related page.
type PropertyItemResponse = PaginatedResponse[PropertyItem]

// PropertyItem is one element of a paginated page property.
type PropertyItem struct {
	Object   string         `json:"object"` // "property_item"
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Title    *RichText      `json:"title,omitempty"`
	RichText *RichText      `json:"rich_text,omitempty"`
	Relation *RelationValue `json:"relation,omitempty"`
}

// Parent represents the parent of a page.
type Parent struct {
	Type       string `json:"type"` // "database_id", "page_id", "workspace", "block_id"
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// Page represents a Notion page (including database rows).
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Parent         Parent                   `json:"parent"`
	Archived       bool                     `json:"archived"`
	Properties     map[string]PropertyValue `json:"properties"`
	URL            string                   `json:"url"`
	Icon           *Icon                    `json:"icon,omitempty"`
}

// Clone returns a copy of the page with its own property map.
//
// Property values are shared; they are never mutated after decoding.
func (p *Page) Clone() *Page {
	c := *p
	c.Properties = maps.Clone(p.Properties)
	return &c
}

// Icon represents a page icon.
type Icon struct {
	Type     string `json:"type"` // "emoji", "external", "file"
	Emoji    string `json:"emoji,omitempty"`
	External *File  `json:"external,omitempty"`
}

// PropertyValue represents a property value on a page.
//
// Only the field matching Type is populated. Use Raw to get a typed variant.
type PropertyValue struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Title       []RichText      `json:"title,omitempty"`
	RichText    []RichText      `json:"rich_text,omitempty"`
	Number      *float64        `json:"number,omitempty"`
	Select      *SelectValue    `json:"select,omitempty"`
	MultiSelect []SelectValue   `json:"multi_select,omitempty"`
	Date        *DateValue      `json:"date,omitempty"`
	Checkbox    *bool           `json:"checkbox,omitempty"`
	URL         *string         `json:"url,omitempty"`
	Relation    []RelationValue `json:"relation,omitempty"`
	Files       []FileValue     `json:"files,omitempty"`
}

// RichText represents formatted text content.
type RichText struct {
	Type      string       `json:"type"` // "text", "mention", "equation"
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text"`
	Href      *string      `json:"href,omitempty"`
}

// TextContent represents plain text content.
type TextContent struct {
	Content string `json:"content"`
}

// SelectValue represents a select property value.
type SelectValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue represents a date property value.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// RelationValue represents a relation to another page.
type RelationValue struct {
	ID string `json:"id"`
}

// FileValue represents a file property value.
type FileValue struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "file" or "external"
	File     *File  `json:"file,omitempty"`
	External *File  `json:"external,omitempty"`
}

// File represents a file reference.
type File struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// Error represents a Notion API error response.
type Error struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Body is the raw response body as returned by the API.
	Body string `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Body
	}
	return e.Message
}
