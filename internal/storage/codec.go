package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tablecast/pkg/records"
)

// MarshalParts serializes the schema, rows and fields of a dataset as three
// independent JSON documents. The SQL backends store each in its own column
// so that listing can report sizes without deserializing row data.
func MarshalParts(d *Dataset) (schemaJSON, rowsJSON, fieldsJSON []byte, err error) {
	schemaJSON, err = json.Marshal(d.Schema)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal schema: %w", err)
	}
	rowsJSON, err = json.Marshal(d.Rows)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal rows: %w", err)
	}
	fieldsJSON, err = json.Marshal(d.Fields)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal fields: %w", err)
	}
	return schemaJSON, rowsJSON, fieldsJSON, nil
}

// UnmarshalParts restores the three serialized documents into d.
//
// Row values come back with their dynamic types: JSON numbers are decoded as
// int64 when integral and float64 otherwise, so a reloaded dataset compares
// equal to the one that was saved.
func UnmarshalParts(d *Dataset, schemaJSON, rowsJSON, fieldsJSON []byte) error {
	if err := json.Unmarshal(schemaJSON, &d.Schema); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}
	rows, err := decodeRows(rowsJSON)
	if err != nil {
		return fmt.Errorf("unmarshal rows: %w", err)
	}
	d.Rows = rows
	if err := json.Unmarshal(fieldsJSON, &d.Fields); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	return nil
}

func decodeRows(data []byte) ([]records.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	rows := make([]records.Record, len(raw))
	for i, m := range raw {
		rec := make(records.Record, len(m))
		for k, v := range m {
			rec[k] = restoreValue(v)
		}
		rows[i] = rec
	}
	return rows, nil
}

func restoreValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = restoreValue(e)
		}
		return out
	default:
		return v
	}
}
