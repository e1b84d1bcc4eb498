package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tablecast/internal/schema"
)

// Filter is a decoded filter-query parameter for one column. Exactly the
// fields meaningful for the column's type are populated; everything else is
// zero. Absence of the whole parameter means "no filter applied" and is
// represented by the caller simply not holding a Filter for that column.
type Filter struct {
	// Type is the column type the filter was decoded against.
	Type schema.ColumnType

	// Text holds the raw value for string and url filters.
	Text string

	// Number holds a scalar numeric filter; Range holds a two-ended one.
	// At most one of the two is set.
	Number *float64
	Range  *[2]float64

	// Bools holds the parsed boolean tokens. Tokens that failed the
	// tolerant coercion are dropped, not errors.
	Bools []bool

	// Times holds one instant (point filter) or two (range).
	Times []time.Time

	// List holds raw string tokens for tag and image filters.
	List []string
}

// FieldDecoder decodes the delimited string encoding of one column's
// filter parameter.
type FieldDecoder struct {
	typ schema.ColumnType

	// restrict, when non-nil, is the closed set of allowed tokens for tag
	// and image filters. Tokens outside the set are rejected. The general
	// case leaves it nil (no enum restriction).
	restrict map[string]struct{}
}

// Restrict returns a copy of the decoder that only accepts the given
// tokens for tag/image list filters. Used when the value domain is known
// ahead of time.
func (d FieldDecoder) Restrict(allowed []string) FieldDecoder {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	d.restrict = set
	return d
}

// Decoder maps column names to their field decoders. It is a pure
// derivation of a TableSchema.
type Decoder struct {
	fields map[string]FieldDecoder
}

// NewDecoder builds the filter-parameter decoder for a schema.
//
// Errors:
//   - *schema.UnsupportedTypeError for out-of-enum column types.
func NewDecoder(ts schema.TableSchema) (*Decoder, error) {
	fields := make(map[string]FieldDecoder, ts.Len())
	for _, c := range ts.Columns() {
		if _, err := schema.ParseType(string(c.Type)); err != nil {
			return nil, err
		}
		fields[c.Name] = FieldDecoder{typ: c.Type}
	}
	return &Decoder{fields: fields}, nil
}

// Field returns the decoder for one column.
func (d *Decoder) Field(name string) (FieldDecoder, bool) {
	fd, ok := d.fields[name]
	return fd, ok
}

// DecodeQuery decodes every recognized parameter in a query string.
// Parameters that do not name a schema column are ignored (they belong to
// other surfaces, e.g. pagination). Absent parameters mean no filter.
func (d *Decoder) DecodeQuery(q url.Values) (map[string]Filter, error) {
	out := make(map[string]Filter)
	for name, vals := range q {
		fd, ok := d.fields[name]
		if !ok || len(vals) == 0 {
			continue
		}
		f, err := fd.Decode(vals[0])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

// Decode parses one raw parameter value.
//
// Per-type behavior:
//   - string, url: the raw value, as-is.
//   - number: a single coerced number, or two numbers joined by the slider
//     delimiter ("10-20" → [10,20]). A leading minus parses as a negative
//     scalar, not a malformed range, because the scalar parse runs first.
//   - boolean: tokens split on the array delimiter, each coerced through a
//     tolerant JSON parse; tokens that fail to parse are dropped.
//   - date: an epoch-milliseconds number, or two joined by the range
//     delimiter, each coerced to an instant.
//   - tag, image: tokens split on the array delimiter, kept raw. With
//     Restrict, tokens outside the closed set are an error.
func (fd FieldDecoder) Decode(raw string) (Filter, error) {
	f := Filter{Type: fd.typ}

	switch fd.typ {
	case schema.TypeString, schema.TypeURL:
		f.Text = raw
		return f, nil

	case schema.TypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			f.Number = &n
			return f, nil
		}
		parts := strings.Split(raw, SliderDelimiter)
		if len(parts) != 2 {
			return Filter{}, fmt.Errorf("number filter %q: want a number or low%shigh", raw, SliderDelimiter)
		}
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Filter{}, fmt.Errorf("number filter %q: %w", raw, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return Filter{}, fmt.Errorf("number filter %q: %w", raw, err)
		}
		f.Range = &[2]float64{lo, hi}
		return f, nil

	case schema.TypeBoolean:
		for _, tok := range strings.Split(raw, ArrayDelimiter) {
			if b, ok := parseBoolToken(tok); ok {
				f.Bools = append(f.Bools, b)
			}
			// Unparseable tokens are dropped.
		}
		return f, nil

	case schema.TypeDate:
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.Times = []time.Time{time.UnixMilli(ms).UTC()}
			return f, nil
		}
		parts := strings.Split(raw, RangeDelimiter)
		if len(parts) != 2 {
			return Filter{}, fmt.Errorf("date filter %q: want epoch or from%sto", raw, RangeDelimiter)
		}
		for _, p := range parts {
			ms, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return Filter{}, fmt.Errorf("date filter %q: %w", raw, err)
			}
			f.Times = append(f.Times, time.UnixMilli(ms).UTC())
		}
		return f, nil

	case schema.TypeTag, schema.TypeImage:
		for _, tok := range strings.Split(raw, ArrayDelimiter) {
			if fd.restrict != nil {
				if _, ok := fd.restrict[tok]; !ok {
					return Filter{}, fmt.Errorf("value %q not in the allowed set", tok)
				}
			}
			f.List = append(f.List, tok)
		}
		return f, nil

	default:
		return Filter{}, &schema.UnsupportedTypeError{Type: string(fd.typ)}
	}
}

// parseBoolToken coerces a boolean filter token with a tolerant JSON parse:
// "true"/"false" (any case) parse; anything else is dropped by the caller.
func parseBoolToken(tok string) (bool, bool) {
	var b bool
	if err := json.Unmarshal([]byte(strings.ToLower(strings.TrimSpace(tok))), &b); err != nil {
		return false, false
	}
	return b, true
}
