// Package json parses raw JSON text into schemaless records.
//
// Accepted shapes:
//   - a root array of objects
//   - an envelope object whose largest array-of-objects field holds the
//     records
//   - a single object (one record)
//   - NDJSON: additional top-level objects after the first value
//
// Nested objects are flattened with "."-joined keys. Arrays of scalars are
// kept as values (they matter for tag detection). Numbers decode through
// json.Number and become int64 when integral, float64 otherwise.
package json

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"tablecast/pkg/records"
)

// Parse reads JSON bytes into an ordered column list and data rows.
//
// Column order: JSON objects carry no key order once decoded into Go maps,
// so first-seen order is approximated by visiting each record's keys in
// sorted order and appending keys not yet seen. The first record therefore
// contributes its keys alphabetically; later records append any new keys
// after them. This is deterministic across calls for the same input.
func Parse(data []byte) ([]string, []records.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var objs []map[string]any
	switch v := root.(type) {
	case []any:
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				objs = append(objs, m)
			}
		}
	case map[string]any:
		if slice := largestObjectSlice(v); slice != nil {
			objs = slice
		} else {
			objs = append(objs, v)
		}
	}

	// NDJSON tail: further top-level objects after the first value.
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			break
		}
		objs = append(objs, obj)
	}

	var cols []string
	seen := make(map[string]struct{})
	rows := make([]records.Record, 0, len(objs))

	for _, obj := range objs {
		flat := make(records.Record, len(obj))
		flatten("", obj, flat)
		rows = append(rows, flat)

		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}

	return cols, rows, nil
}

// largestObjectSlice finds the envelope field holding the most
// array-of-objects elements, or nil if no field qualifies.
func largestObjectSlice(root map[string]any) []map[string]any {
	var best []map[string]any
	for _, v := range root {
		arr, ok := v.([]any)
		if !ok || len(arr) == 0 {
			continue
		}
		objs := make([]map[string]any, 0, len(arr))
		valid := true
		for _, elem := range arr {
			if elem == nil {
				continue
			}
			m, ok := elem.(map[string]any)
			if !ok {
				valid = false
				break
			}
			objs = append(objs, m)
		}
		if valid && len(objs) > len(best) {
			best = objs
		}
	}
	return best
}

// flatten walks an object, joining nested keys with "." and converting
// leaf values to the record value convention.
func flatten(prefix string, in map[string]any, out records.Record) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case []any:
			out[key] = convertArray(t)
		default:
			out[key] = convertScalar(t)
		}
	}
}

func convertArray(arr []any) any {
	out := make([]any, 0, len(arr))
	for _, e := range arr {
		switch t := e.(type) {
		case map[string]any, []any:
			// Nested structures inside arrays are beyond the row model;
			// keep their JSON text so nothing is silently lost.
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			out = append(out, string(b))
		default:
			out = append(out, convertScalar(t))
		}
	}
	return out
}

func convertScalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
