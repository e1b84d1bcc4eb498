// Package infer implements column type inference over sampled rows.
//
// The package is responsible for:
//   - Classifying a column's sampled values into one semantic type
//   - Deciding whether a repetitive low-cardinality column is a tag set
//   - Producing a full ordered table schema from a raw dataset
//
// Design constraints:
//   - All inference is pure computation over in-memory rows; no I/O.
//   - Data-quality problems (missing cells, malformed dates) never fail a
//     run; only an empty dataset is an error.
//   - Heuristic thresholds are injected configuration, not inline constants.
package infer

import (
	"regexp"
	"time"

	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

var (
	imageURLPattern = regexp.MustCompile(`(?i)^https?://.+\.(jpg|jpeg|png|gif)$`)
	urlPattern      = regexp.MustCompile(`^https?://.+`)
)

// dateLayouts are the string forms accepted as calendar dates. Ordered from
// most to least specific so the first match wins.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate attempts to parse s as a calendar date or timestamp using the
// accepted layouts. Callers that need to interpret date cells at query time
// use the same layouts the detector accepted at inference time.
func ParseDate(s string) (time.Time, bool) {
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DetectType classifies a column from its sampled values.
//
// The scalar decision is made from the first defined value in the sample;
// the decision order below is load-bearing and resolves ambiguous cases
// (an image URL is also a URL, a date string is also a string):
//
//  1. string matching an image URL pattern → image
//  2. string matching a generic URL pattern → url
//  3. runtime boolean → boolean
//  4. runtime numeric → number
//  5. time.Time, or a string parsing as a calendar date → date
//  6. array of scalars → tag
//  7. anything else → string
//
// Edge cases:
//   - An empty sample, or a sample with no defined values, returns
//     TypeString. This is the documented safe fallback, never an error.
//
// Tag detection from cardinality statistics is a separate concern: callers
// run LooksLikeTags over the full sample first and only fall through to
// DetectType when it does not fire.
func DetectType(values []any) schema.ColumnType {
	var v any
	found := false
	for _, cand := range values {
		if records.Missing(cand) {
			continue
		}
		v = cand
		found = true
		break
	}
	if !found {
		return schema.TypeString
	}

	if s, ok := v.(string); ok {
		if imageURLPattern.MatchString(s) {
			return schema.TypeImage
		}
		if urlPattern.MatchString(s) {
			return schema.TypeURL
		}
	}

	if _, ok := v.(bool); ok {
		return schema.TypeBoolean
	}
	if _, ok := records.AsNumber(v); ok {
		return schema.TypeNumber
	}

	switch t := v.(type) {
	case time.Time:
		return schema.TypeDate
	case string:
		if _, ok := ParseDate(t); ok {
			return schema.TypeDate
		}
	case []string, []any:
		return schema.TypeTag
	}

	return schema.TypeString
}
