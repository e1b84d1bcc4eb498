package validate

import (
	"strings"
	"time"

	"tablecast/internal/infer"
	"tablecast/pkg/records"
)

// Apply returns the rows that satisfy every filter. Filters combine with
// AND across columns; values within one filter combine with OR.
func Apply(rows []records.Record, filters map[string]Filter) []records.Record {
	if len(filters) == 0 {
		return rows
	}
	var out []records.Record
	for _, row := range rows {
		keep := true
		for name, f := range filters {
			if !f.Match(row[name]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// Match reports whether one cell value satisfies the filter.
//
// Per-type behavior:
//   - string, url: case-insensitive substring match on the canonical cell
//     text. An empty filter text matches everything.
//   - number: scalar filters match by equality, range filters inclusively.
//     Missing cells count as 0, consistent with slider bounds.
//   - boolean: the cell must equal one of the selected values. An empty
//     selection matches everything.
//   - date: one instant matches cells on the same UTC calendar day; two
//     instants match the inclusive range. Cells that do not parse as dates
//     never match.
//   - tag, image: the cell's flattened values must intersect the selected
//     list. An empty list matches everything.
//
// A missing cell matches only filters that match everything.
func (f Filter) Match(v any) bool {
	switch {
	case f.Text != "":
		if records.Missing(v) {
			return false
		}
		return strings.Contains(
			strings.ToLower(records.Canonical(v)),
			strings.ToLower(f.Text),
		)

	case f.Number != nil:
		n, ok := records.AsNumber(v)
		if !ok {
			if !records.Missing(v) {
				return false
			}
			n = 0
		}
		return n == *f.Number

	case f.Range != nil:
		n, ok := records.AsNumber(v)
		if !ok {
			if !records.Missing(v) {
				return false
			}
			n = 0
		}
		return n >= f.Range[0] && n <= f.Range[1]

	case len(f.Bools) > 0:
		b, ok := v.(bool)
		if !ok {
			return false
		}
		for _, want := range f.Bools {
			if b == want {
				return true
			}
		}
		return false

	case len(f.Times) > 0:
		t, ok := cellTime(v)
		if !ok {
			return false
		}
		if len(f.Times) == 1 {
			return sameDay(t.UTC(), f.Times[0].UTC())
		}
		from, to := f.Times[0], f.Times[1]
		return !t.Before(from) && !t.After(to)

	case len(f.List) > 0:
		for _, cell := range records.Strings(v) {
			for _, want := range f.List {
				if cell == want {
					return true
				}
			}
		}
		return false

	default:
		// An empty filter constrains nothing.
		return true
	}
}

func cellTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return infer.ParseDate(t)
	default:
		return time.Time{}, false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
