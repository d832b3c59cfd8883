// Converts Notion rows into normalized records.

package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maruel/bookshelf/internal/notion"
)

// TitleResolver returns the title of a page. It is called once per related
// page while normalizing relation properties.
type TitleResolver interface {
	PageTitle(ctx context.Context, pageID string) (string, error)
}

// Normalizer converts raw Notion rows into Records.
type Normalizer struct {
	titles TitleResolver
}

// NewNormalizer creates a normalizer resolving relation titles through titles.
func NewNormalizer(titles TitleResolver) *Normalizer {
	return &Normalizer{titles: titles}
}

// Normalize converts one row. Unsupported property types are dropped.
//
// Relation properties cost one request per related page.
func (n *Normalizer) Normalize(ctx context.Context, page *notion.Page) *Record {
	r := &Record{
		SourceID: page.ID,
		Fields:   make(map[string]Value, len(page.Properties)),
	}
	for name := range page.Properties {
		pv := page.Properties[name]
		raw := pv.Raw()
		if raw == nil {
			slog.DebugContext(ctx, "Dropping unsupported property", "property", name, "type", pv.Type)
			continue
		}
		r.Fields[name] = n.value(ctx, raw)
	}
	r.Category = r.String(FieldType)
	return r
}

// value converts a raw property into its normalized form. The result may be a
// nil Value.
func (n *Normalizer) value(ctx context.Context, raw notion.RawProperty) Value {
	switch raw := raw.(type) {
	case notion.RawText:
		return Text(notion.PlainText(raw.Runs))
	case notion.RawNumber:
		if raw.Value == nil {
			return nil
		}
		return Number(*raw.Value)
	case notion.RawCheckbox:
		return Checkbox(raw.Checked)
	case notion.RawDate:
		dates := Dates{}
		if raw.Value != nil {
			dates = append(dates, raw.Value.Start)
			if raw.Value.End != nil {
				dates = append(dates, *raw.Value.End)
			}
		}
		return dates
	case notion.RawFiles:
		// Only the first file is considered: the cover.
		if len(raw.Files) == 0 || raw.Files[0].Type != "external" || raw.Files[0].External == nil {
			return nil
		}
		return FileURL(raw.Files[0].External.URL)
	case notion.RawSelect:
		if raw.Option == nil {
			return nil
		}
		return Choice(raw.Option.Name)
	case notion.RawMultiSelect:
		names := make(Choices, 0, len(raw.Options))
		for _, o := range raw.Options {
			names = append(names, o.Name)
		}
		return names
	case notion.RawRelation:
		if len(raw.IDs) == 0 {
			return nil
		}
		titles := make(Titles, 0, len(raw.IDs))
		for _, id := range raw.IDs {
			title, err := n.titles.PageTitle(ctx, id)
			if err != nil {
				slog.WarnContext(ctx, "Failed to resolve relation title", "page", id, "err", err)
				titles = append(titles, nil)
				continue
			}
			titles = append(titles, &title)
		}
		return titles
	default:
		panic(fmt.Sprintf("unexpected raw property %T", raw))
	}
}

// categoryOf reads the category of a raw row without normalizing it.
func categoryOf(page *notion.Page) string {
	pv, ok := page.Properties[FieldType]
	if !ok {
		return ""
	}
	if sel, ok := pv.Raw().(notion.RawSelect); ok && sel.Option != nil {
		return sel.Option.Name
	}
	return ""
}
