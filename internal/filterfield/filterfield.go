// Package filterfield derives UI-agnostic filter control descriptions from
// an inferred table schema and the underlying data.
//
// Fields are pure derivations: they are rebuilt whenever the schema or data
// changes and never mutated in place. Rebuilding from the same inputs yields
// structurally identical output.
package filterfield

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

// Widget is the kind of filter control a column should be presented with.
type Widget string

const (
	WidgetInput     Widget = "input"
	WidgetSlider    Widget = "slider"
	WidgetCheckbox  Widget = "checkbox"
	WidgetTimerange Widget = "timerange"
)

// Option is one selectable value of a filter control.
type Option struct {
	// Label is the display form. For long free-text values it may be a
	// truncated view of Value; for tags it is always the full value.
	Label string `json:"label"`
	// Value is the full filter value, preserved untruncated.
	Value any `json:"value"`
	// Color is set for tag options only: the deterministic color of the
	// tag value at the generator's opacity.
	Color string `json:"color,omitempty"`
}

// Field describes how a filtering UI should present one column.
type Field struct {
	// Label is the human-readable column label derived from the name.
	Label string `json:"label"`
	// Value is the column name.
	Value string `json:"value"`
	// Widget selects the control kind.
	Widget Widget `json:"widget"`
	// Options are the values to offer, deduplicated by value in first-seen
	// order. Empty for timerange fields.
	Options []Option `json:"options,omitempty"`
	// Min and Max bound slider widgets; meaningful only when HasBounds.
	Min       float64 `json:"min,omitempty"`
	Max       float64 `json:"max,omitempty"`
	HasBounds bool    `json:"hasBounds,omitempty"`
	// DefaultOpen marks controls that should start expanded.
	DefaultOpen bool `json:"defaultOpen,omitempty"`
}

// GenOptions tune field generation.
type GenOptions struct {
	// TagOpacity is the opacity used for tag option colors, in [0,1].
	// Zero means 1.0 (fully opaque).
	TagOpacity float64

	// LabelTruncate caps the display label length (in runes) for free-text
	// options. Zero means the default of 48. Values are never truncated,
	// only labels.
	LabelTruncate int
}

var upperFirst = cases.Upper(language.Und)

// Label derives the human-readable label for a column name by
// upper-casing its first letter, leaving the rest untouched.
func Label(name string) string {
	if name == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(name)
	return upperFirst.String(name[:size]) + name[size:]
}

// Generate derives one Field per schema column, populating options and
// bounds from the actual data rows.
//
// Per-type behavior:
//   - string, image: input widget; options are all observed values (arrays
//     flattened), deduplicated by value, labels truncated for display.
//   - url: input widget; one option per row labelled by the column name,
//     because URLs are typically unique and raw URLs make poor labels.
//   - boolean: checkbox with exactly the two options true and false,
//     regardless of which values actually occur.
//   - tag: checkbox; flattened deduplicated tag values at full length, each
//     with its deterministic color.
//   - number: slider with min/max over observed values (missing cells count
//     as 0); one option per row labelled by the column name.
//   - date: timerange, DefaultOpen, no options.
//
// Errors:
//   - *schema.UnsupportedTypeError if a column carries a type outside the
//     closed enumeration. This indicates a programming error upstream.
func Generate(ts schema.TableSchema, rows []records.Record, opts GenOptions) ([]Field, error) {
	opacity := opts.TagOpacity
	if opacity == 0 {
		opacity = 1
	}
	truncate := opts.LabelTruncate
	if truncate <= 0 {
		truncate = 48
	}

	fields := make([]Field, 0, ts.Len())
	for _, col := range ts.Columns() {
		f := Field{Label: Label(col.Name), Value: col.Name}

		switch col.Type {
		case schema.TypeString, schema.TypeImage:
			f.Widget = WidgetInput
			f.Options = distinctOptions(rows, col.Name, truncate)

		case schema.TypeURL:
			f.Widget = WidgetInput
			f.Options = perRowOptions(rows, col.Name)

		case schema.TypeBoolean:
			f.Widget = WidgetCheckbox
			f.Options = []Option{
				{Label: "true", Value: true},
				{Label: "false", Value: false},
			}

		case schema.TypeTag:
			f.Widget = WidgetCheckbox
			f.Options = tagOptions(rows, col.Name, opacity)

		case schema.TypeNumber:
			f.Widget = WidgetSlider
			f.Min, f.Max = numberBounds(rows, col.Name)
			f.HasBounds = true
			f.Options = perRowOptions(rows, col.Name)

		case schema.TypeDate:
			f.Widget = WidgetTimerange
			f.DefaultOpen = true

		default:
			return nil, &schema.UnsupportedTypeError{Type: string(col.Type)}
		}

		fields = append(fields, f)
	}
	return fields, nil
}

// distinctOptions collects all observed values for a column (arrays
// flattened) in first-seen order, skipping values already present by value
// equality.
func distinctOptions(rows []records.Record, name string, truncate int) []Option {
	seen := make(map[string]struct{})
	out := make([]Option, 0)
	for _, r := range rows {
		for _, s := range records.Strings(r[name]) {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, Option{Label: truncateLabel(s, truncate), Value: s})
		}
	}
	return out
}

// tagOptions collects deduplicated tag values at full length with their
// deterministic colors.
func tagOptions(rows []records.Record, name string, opacity float64) []Option {
	seen := make(map[string]struct{})
	out := make([]Option, 0)
	for _, r := range rows {
		for _, s := range records.Strings(r[name]) {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, Option{
				Label: s,
				Value: s,
				Color: ColorFromName(s, opacity),
			})
		}
	}
	return out
}

// perRowOptions emits one option per data row, all labelled by the raw
// column name rather than the cell value.
func perRowOptions(rows []records.Record, name string) []Option {
	out := make([]Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, Option{Label: name, Value: r[name]})
	}
	return out
}

// numberBounds computes min/max over observed values, treating missing or
// non-numeric cells as 0.
func numberBounds(rows []records.Record, name string) (float64, float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	first := true
	var lo, hi float64
	for _, r := range rows {
		n, ok := records.AsNumber(r[name])
		if !ok {
			n = 0
		}
		if first {
			lo, hi = n, n
			first = false
			continue
		}
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return lo, hi
}

func truncateLabel(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
