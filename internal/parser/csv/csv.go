// Package csv parses raw CSV text into schemaless records.
//
// Parsing is best-effort, designed for user-supplied uploads:
//   - records with the wrong field count are skipped
//   - cell whitespace is trimmed
//   - a UTF-8 BOM on the first header cell is stripped
//
// Cells are dynamically typed: integers, floats, and booleans become their
// runtime kinds; empty cells become nil (missing). Date-looking strings are
// left as strings; classifying them is type inference's job.
package csv

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"tablecast/pkg/records"
)

// Options control CSV parsing.
type Options struct {
	// Delimiter is the field separator. Zero means ','.
	Delimiter rune
}

// Parse reads CSV bytes into an ordered column list and data rows.
//
// The first record is the header and defines the column universe and its
// first-seen order. Empty input yields empty columns and rows with no
// error; the caller decides whether an empty dataset is fatal (schema
// inference does).
func Parse(data []byte, opt Options) ([]string, []records.Record, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1 // field count validated manually
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		h := strings.TrimSpace(header[i])
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		header[i] = h
	}

	rows := make([]records.Record, 0, 1024)
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return header, rows, err
		}
		if len(rec) != len(header) {
			continue
		}
		row := make(records.Record, len(header))
		for i, h := range header {
			row[h] = CoerceScalar(rec[i])
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

// CoerceScalar converts a raw cell string to its dynamic type: int64,
// float64, bool, string, or nil for an empty cell. Shared with the HTML
// table parser, which faces the same all-text cells.
func CoerceScalar(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
