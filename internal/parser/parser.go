// Package parser dispatches raw dataset bytes to the right format parser.
package parser

import (
	"bytes"
	"fmt"

	"tablecast/internal/parser/csv"
	"tablecast/internal/parser/htmltable"
	"tablecast/internal/parser/json"
	"tablecast/pkg/records"
)

// Format identifies a supported input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Sniff guesses the input format from the first non-whitespace byte.
//
// The heuristic is deliberately simple: '<' means HTML, '{' or '[' means
// JSON, everything else is treated as CSV. CSV is the fallback because any
// byte sequence is at least a one-column CSV.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	if len(trimmed) == 0 {
		return FormatCSV
	}
	switch trimmed[0] {
	case '<':
		return FormatHTML
	case '{', '[':
		return FormatJSON
	default:
		return FormatCSV
	}
}

// Parse decodes data in the given format into a column list and rows.
//
// The column list preserves the input's own column order; callers pass it to
// inference so positions match what the user uploaded.
func Parse(data []byte, format Format) ([]string, []records.Record, error) {
	switch format {
	case FormatCSV:
		return csv.Parse(data, csv.Options{})
	case FormatJSON:
		return json.Parse(data)
	case FormatHTML:
		return htmltable.Parse(data)
	default:
		return nil, nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ParseAny sniffs the format and parses in one step.
func ParseAny(data []byte) (Format, []string, []records.Record, error) {
	format := Sniff(data)
	cols, rows, err := Parse(data, format)
	return format, cols, rows, err
}
