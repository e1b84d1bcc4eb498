// Package htmltable ingests a pasted HTML <table> into the same
// header-plus-rows shape the CSV and JSON parsers produce.
package htmltable

import (
	"bytes"
	"fmt"
	"strings"

	"tablecast/internal/parser/csv"
	"tablecast/pkg/records"

	"github.com/PuerkitoBio/goquery"
)

// Parse extracts the first <table> element from the given HTML fragment.
//
// The header is taken from the table's <th> cells when present, otherwise
// from the cells of the first row. Every following <tr> becomes one record;
// cell text is whitespace-trimmed and dynamically typed the same way CSV
// cells are. Rows whose cell count does not match the header are skipped.
//
// Edge cases:
//   - Input with no <table> returns an error.
//   - A table with a header but no body rows returns the header and nil rows.
//   - Empty header cells are named col0, col1, ... by position.
//
// Errors:
// Returns an error when the HTML cannot be parsed or contains no table.
func Parse(data []byte) ([]string, []records.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("no <table> element found")
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, nil, fmt.Errorf("table has no rows")
	}

	header, bodyStart := headerCells(trs)

	var rows []records.Record
	trs.Each(func(i int, tr *goquery.Selection) {
		if i < bodyStart {
			return
		}
		cells := cellTexts(tr)
		if len(cells) != len(header) {
			// Misaligned row, likely colspans or a nested table. Skip it.
			return
		}
		rec := make(records.Record, len(header))
		for j, cell := range cells {
			rec[header[j]] = csv.CoerceScalar(cell)
		}
		rows = append(rows, rec)
	})

	return header, rows, nil
}

// headerCells derives column names and reports the index of the first body row.
//
// A row containing <th> cells is the header; when no row does, the first row's
// <td> cells are promoted to the header.
func headerCells(trs *goquery.Selection) ([]string, int) {
	headerRow := -1
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.Find("th").Length() > 0 {
			headerRow = i
			return false
		}
		return true
	})

	if headerRow >= 0 {
		var names []string
		trs.Eq(headerRow).Find("th").Each(func(_ int, th *goquery.Selection) {
			names = append(names, strings.TrimSpace(th.Text()))
		})
		return normalizeNames(names), headerRow + 1
	}

	names := cellTexts(trs.Eq(0))
	return normalizeNames(names), 1
}

// cellTexts returns the trimmed text of each <td> cell in the row.
func cellTexts(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(td.Text()))
	})
	return cells
}

// normalizeNames replaces empty header cells with positional names.
func normalizeNames(names []string) []string {
	for i, n := range names {
		if n == "" {
			names[i] = fmt.Sprintf("col%d", i)
		}
	}
	return names
}
