package htmltable

import (
	"reflect"
	"testing"

	"tablecast/pkg/records"
)

func TestParseHeaderFromTH(t *testing.T) {
	t.Parallel()

	html := `<html><body><table>
		<tr><th>name</th><th>age</th><th>active</th></tr>
		<tr><td>Ada</td><td>36</td><td>true</td></tr>
		<tr><td>Grace</td><td>45.5</td><td>false</td></tr>
	</table></body></html>`

	header, rows, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"name", "age", "active"}; !reflect.DeepEqual(header, want) {
		t.Fatalf("header = %v, want %v", header, want)
	}
	want := []records.Record{
		{"name": "Ada", "age": int64(36), "active": true},
		{"name": "Grace", "age": 45.5, "active": false},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestParseHeaderFromFirstRow(t *testing.T) {
	t.Parallel()

	html := `<table>
		<tr><td>city</td><td>pop</td></tr>
		<tr><td>Oslo</td><td>709000</td></tr>
	</table>`

	header, rows, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"city", "pop"}; !reflect.DeepEqual(header, want) {
		t.Fatalf("header = %v, want %v", header, want)
	}
	if len(rows) != 1 || rows[0]["city"] != "Oslo" || rows[0]["pop"] != int64(709000) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestParseSkipsMisalignedRows(t *testing.T) {
	t.Parallel()

	html := `<table>
		<tr><th>a</th><th>b</th></tr>
		<tr><td>1</td><td>2</td></tr>
		<tr><td>only one cell</td></tr>
		<tr><td>3</td><td>4</td></tr>
	</table>`

	_, rows, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestParseEmptyHeaderCellsGetPositionalNames(t *testing.T) {
	t.Parallel()

	html := `<table>
		<tr><th>name</th><th></th></tr>
		<tr><td>x</td><td>y</td></tr>
	</table>`

	header, rows, err := Parse([]byte(html))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"name", "col1"}; !reflect.DeepEqual(header, want) {
		t.Fatalf("header = %v, want %v", header, want)
	}
	if rows[0]["col1"] != "y" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestParseNoTable(t *testing.T) {
	t.Parallel()

	if _, _, err := Parse([]byte(`<p>hello</p>`)); err == nil {
		t.Fatal("expected error for input without a table")
	}
}

func TestParseHeaderOnlyTable(t *testing.T) {
	t.Parallel()

	header, rows, err := Parse([]byte(`<table><tr><th>a</th></tr></table>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(header) != 1 || rows != nil {
		t.Fatalf("header = %v, rows = %v", header, rows)
	}
}
