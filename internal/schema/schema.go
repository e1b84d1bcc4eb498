// Package schema defines the column-type enumeration and the ordered table
// schema shared by inference, filter generation, validation, and storage.
//
// To keep downstream packages decoupled, these types live here rather than in
// the package that produces them; inference imports schema, never the other
// way around.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ColumnType is the closed set of semantic kinds a table column can be
// classified as. Adding a member requires extending every switch that
// dispatches on it (filter widgets, validators, cell rendering); those
// switches return UnsupportedTypeError for unknown members so a missed case
// surfaces as an error rather than silent misbehavior.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeURL     ColumnType = "url"
	TypeImage   ColumnType = "image"
	TypeTag     ColumnType = "tag"
)

// Types lists all members in a stable order, for validation and UIs that
// offer a type picker.
func Types() []ColumnType {
	return []ColumnType{
		TypeString, TypeNumber, TypeBoolean, TypeDate, TypeURL, TypeImage, TypeTag,
	}
}

// ParseType validates a string against the closed enumeration.
//
// Errors:
//   - UnsupportedTypeError for anything outside the enumeration, including
//     the empty string.
func ParseType(s string) (ColumnType, error) {
	for _, t := range Types() {
		if ColumnType(s) == t {
			return t, nil
		}
	}
	return "", &UnsupportedTypeError{Type: s}
}

// UnsupportedTypeError indicates a column type outside the closed
// enumeration was handed to a component that dispatches on type. This is a
// programming or configuration error, not a data error.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported column type: %q", e.Type)
}

// EmptyDatasetError indicates schema inference was attempted over zero rows.
// Fatal to that inference call; callers surface it to the user.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string { return "empty dataset: no rows to infer from" }

// Column is one entry of a table schema.
type Column struct {
	// Name is the column name as it appears in the source rows.
	Name string `json:"name"`
	// Position is the stable 0-based ordinal in first-seen order.
	Position int `json:"position"`
	// Type is the inferred (or user-overridden) column type.
	Type ColumnType `json:"type"`
}

// TableSchema is an ordered mapping from column name to Column.
//
// Invariants:
//   - every sampled column name has exactly one entry
//   - positions are unique and contiguous starting at 0, in first-seen order
//
// A TableSchema is produced once per parsed dataset and treated as
// immutable by derivation code; overriding a column type produces a new
// value via WithType.
type TableSchema struct {
	cols []Column
}

// New builds a TableSchema from columns already in position order.
// Positions are re-assigned 0..n-1 to enforce the contiguity invariant.
func New(cols []Column) TableSchema {
	out := make([]Column, len(cols))
	copy(out, cols)
	for i := range out {
		out[i].Position = i
	}
	return TableSchema{cols: out}
}

// Columns returns the entries in position order. The slice is a copy;
// mutating it does not affect the schema.
func (ts TableSchema) Columns() []Column {
	out := make([]Column, len(ts.cols))
	copy(out, ts.cols)
	return out
}

// Len returns the number of columns.
func (ts TableSchema) Len() int { return len(ts.cols) }

// Lookup returns the entry for a column name.
func (ts TableSchema) Lookup(name string) (Column, bool) {
	for _, c := range ts.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// WithType returns a copy of the schema with one column's type replaced.
// Position and order are preserved. Used for manual type overrides; the
// caller regenerates filter fields and validators from the result instead
// of re-running inference.
//
// Errors:
//   - UnsupportedTypeError if t is outside the enumeration.
//   - an error if name is not a column of this schema.
func (ts TableSchema) WithType(name string, t ColumnType) (TableSchema, error) {
	if _, err := ParseType(string(t)); err != nil {
		return TableSchema{}, err
	}
	out := ts.Columns()
	for i := range out {
		if out[i].Name == name {
			out[i].Type = t
			return TableSchema{cols: out}, nil
		}
	}
	return TableSchema{}, fmt.Errorf("schema: no such column %q", name)
}

// entry is the persistence shape for one column: a plain serializable
// mapping value, so external storage can round-trip the schema without
// importing this package's ordered representation.
type entry struct {
	Position int        `json:"position"`
	Type     ColumnType `json:"type"`
}

// MarshalJSON encodes the schema as {"name": {"position": n, "type": t}}.
// This is the durable contract with the persistence collaborator.
func (ts TableSchema) MarshalJSON() ([]byte, error) {
	m := make(map[string]entry, len(ts.cols))
	for _, c := range ts.cols {
		m[c.Name] = entry{Position: c.Position, Type: c.Type}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reconstructs the ordered schema from the persistence shape.
// Entries are ordered by their stored position; positions are then
// re-normalized to 0..n-1 so a schema stored with 1-based positions still
// loads into a valid value.
func (ts *TableSchema) UnmarshalJSON(b []byte) error {
	var m map[string]entry
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	cols := make([]Column, 0, len(m))
	for name, e := range m {
		if _, err := ParseType(string(e.Type)); err != nil {
			return err
		}
		cols = append(cols, Column{Name: name, Position: e.Position, Type: e.Type})
	}
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Position == cols[j].Position {
			return cols[i].Name < cols[j].Name
		}
		return cols[i].Position < cols[j].Position
	})
	*ts = New(cols)
	return nil
}
