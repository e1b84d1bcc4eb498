// Package validate derives per-column validators from a table schema: a
// structural validator for row shape, and filter-parameter decoders for the
// delimited string encoding used in query parameters.
//
// Both are pure functions of the schema. Dispatch on column type is a
// single exhaustive switch per concern; an out-of-enum type surfaces as
// *schema.UnsupportedTypeError rather than being silently skipped.
package validate

import (
	"fmt"
	"strings"
	"time"

	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

// Delimiters for string-encoded filter parameters. Fixed punctuation
// constants shared with the query-string collaborator.
const (
	// ArrayDelimiter separates list elements (boolean tokens, tag values).
	ArrayDelimiter = ","
	// SliderDelimiter separates the two ends of a numeric range.
	SliderDelimiter = "-"
	// RangeDelimiter separates the two ends of a date range.
	RangeDelimiter = "-"
)

// RowValidator returns a structural validator for rows of the given schema.
//
// Per-type acceptance:
//   - string: any string
//   - number: any numeric kind (the value is optional)
//   - boolean: bool
//   - date: time.Time, or any string; a malformed date string is a
//     data-quality issue absorbed downstream by rendering the raw string,
//     not a structural violation
//   - url, image: URL-shaped string (http/https scheme)
//   - tag: array of strings, array of scalars, or a scalar string
//
// Missing cells are always valid; sparse data is expected.
//
// Errors:
//   - The constructor itself fails with *schema.UnsupportedTypeError if the
//     schema carries a type outside the enumeration, so the programming
//     error is caught at build time, not per row.
func RowValidator(ts schema.TableSchema) (func(records.Record) error, error) {
	cols := ts.Columns()
	for _, c := range cols {
		if _, err := schema.ParseType(string(c.Type)); err != nil {
			return nil, err
		}
	}

	return func(r records.Record) error {
		var violations []string
		for _, c := range cols {
			v := r[c.Name]
			if records.Missing(v) {
				continue
			}
			if err := checkCell(c.Type, v); err != nil {
				violations = append(violations, fmt.Sprintf("%s: %v", c.Name, err))
			}
		}
		if len(violations) > 0 {
			return fmt.Errorf("row validation: %s", strings.Join(violations, "; "))
		}
		return nil
	}, nil
}

func checkCell(t schema.ColumnType, v any) error {
	switch t {
	case schema.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("want string, got %T", v)
		}
	case schema.TypeNumber:
		if _, ok := records.AsNumber(v); !ok {
			return fmt.Errorf("want number, got %T", v)
		}
	case schema.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("want boolean, got %T", v)
		}
	case schema.TypeDate:
		switch v.(type) {
		case time.Time, string:
			// Strings are accepted as-is; a malformed date renders raw.
		default:
			return fmt.Errorf("want date, got %T", v)
		}
	case schema.TypeURL, schema.TypeImage:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want URL string, got %T", v)
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return fmt.Errorf("not URL-shaped: %q", s)
		}
	case schema.TypeTag:
		switch v.(type) {
		case []string, []any, string:
		default:
			return fmt.Errorf("want tag list, got %T", v)
		}
	}
	return nil
}
