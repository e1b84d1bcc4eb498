// Package records defines the row representation shared by parsers,
// inference, filtering, and storage.
//
// A Record is schemaless on ingestion: a mapping from column name to a raw
// value. Values are restricted by convention to the shapes parsers produce:
// string, int64, float64, bool, time.Time, []string, []any, or nil for a
// missing cell. Nothing in this package enforces that convention; consumers
// that care (inference, validation) handle unexpected shapes defensively.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record maps a column name to a raw cell value. A nil value means the cell
// was empty or the key was absent in the source row.
type Record map[string]any

// Canonical converts a raw cell value to a canonical string form, suitable
// for value-equality comparison and set membership (e.g. "Germany", "42",
// "true"). Distinct runtime kinds that print identically are intentionally
// collapsed: the tag heuristic and option dedupe both compare by value, not
// by representation.
//
// Edge cases:
//   - nil returns "".
//   - float64 values that are whole numbers print without a decimal point,
//     so int64(3) and float64(3) canonicalize identically.
//   - time.Time uses RFC3339Nano for a stable round-trippable form.
func Canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Missing reports whether a raw cell value should be treated as absent.
// Empty and whitespace-only strings count as missing, matching the
// behavior of CSV ingestion where a blank cell carries no information.
func Missing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// AsNumber attempts a numeric view of a raw cell value.
// Falsy or non-numeric values yield (0, false).
func AsNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// Strings flattens a cell value into its scalar string parts.
// Arrays contribute one entry per element; scalars contribute themselves.
// Missing values contribute nothing.
func Strings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, s)
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if Missing(e) {
				continue
			}
			out = append(out, Canonical(e))
		}
		return out
	default:
		if Missing(v) {
			return nil
		}
		return []string{Canonical(v)}
	}
}
