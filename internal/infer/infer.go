package infer

import (
	"math/rand"
	"sort"

	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

// Options control which columns are inferred and how many rows are sampled.
//
// The zero value means: infer every column of the first row, over all rows.
type Options struct {
	// Keys selects the columns to infer, in order. When nil, the column
	// universe is the key set of the first row.
	//
	// NOTE: Go maps are unordered, so the nil-Keys fallback sorts the first
	// row's keys for determinism. Callers that parsed an ordered header
	// (CSV, HTML tables) should pass it here so schema positions reflect
	// source order.
	Keys []string

	// SampleSize bounds how many rows are inspected. Zero or negative means
	// all rows. When smaller than the row count, a uniform random sample of
	// that many rows is drawn without replacement, once, for the whole
	// inference pass (not per column) so cross-column correlation in the
	// sample is preserved.
	SampleSize int

	// Rand supplies the sampling randomness. When nil, the shared
	// math/rand source is used, which makes sub-sampled inference
	// non-deterministic across calls. Callers requiring reproducibility
	// pass SampleSize <= 0 or a seeded *rand.Rand.
	Rand *rand.Rand

	// Tag holds the tag-likelihood thresholds. The zero value is replaced
	// by DefaultTagConfig.
	Tag TagConfig
}

// Infer produces the full table schema for a raw dataset.
//
// For each column, in first-seen order (which fixes the Position ordinal),
// it gathers the sampled values, runs the tag-likelihood heuristic over the
// full per-column sample, and otherwise classifies via DetectType. Tags win
// whenever the heuristic fires, even if the representative value would have
// classified as something else.
//
// Errors:
//   - *schema.EmptyDatasetError when rows is empty. This is the only
//     failure mode; a column entirely composed of missing values infers as
//     TypeString rather than erroring.
func Infer(rows []records.Record, opts Options) (schema.TableSchema, error) {
	if len(rows) == 0 {
		return schema.TableSchema{}, &schema.EmptyDatasetError{}
	}

	keys := opts.Keys
	if keys == nil {
		keys = make([]string, 0, len(rows[0]))
		for k := range rows[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	tag := opts.Tag
	if tag == (TagConfig{}) {
		tag = DefaultTagConfig()
	}

	sampled := sampleRows(rows, opts.SampleSize, opts.Rand)

	cols := make([]schema.Column, 0, len(keys))
	for i, key := range keys {
		values := make([]any, 0, len(sampled))
		for _, r := range sampled {
			values = append(values, r[key])
		}

		t := schema.TypeTag
		if !LooksLikeTags(values, tag) {
			t = DetectType(values)
		}
		cols = append(cols, schema.Column{Name: key, Position: i, Type: t})
	}

	return schema.New(cols), nil
}

// sampleRows draws a uniform random sample of n rows without replacement.
// When n is zero, negative, or at least len(rows), the input is returned
// as-is.
func sampleRows(rows []records.Record, n int, rng *rand.Rand) []records.Record {
	if n <= 0 || n >= len(rows) {
		return rows
	}

	perm := func(k int) []int {
		if rng != nil {
			return rng.Perm(k)
		}
		return rand.Perm(k)
	}

	out := make([]records.Record, 0, n)
	for _, i := range perm(len(rows))[:n] {
		out = append(out, rows[i])
	}
	return out
}
