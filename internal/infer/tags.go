package infer

import "tablecast/pkg/records"

// TagConfig holds the cardinality thresholds for the tag-likelihood
// decision. The thresholds drifted across revisions of the original tool;
// the ratio-based form below is the canonical contract and the absolute
// distinct-count form is superseded.
type TagConfig struct {
	// MaxUniqueRatio is the highest unique/total ratio a column may have
	// and still be considered categorical.
	MaxUniqueRatio float64
	// MinDuplicateRatio is the lowest duplicates/total ratio required to
	// consider a column categorical.
	MinDuplicateRatio float64
}

// DefaultTagConfig returns the documented default thresholds.
func DefaultTagConfig() TagConfig {
	return TagConfig{MaxUniqueRatio: 0.6, MinDuplicateRatio: 0.05}
}

// LooksLikeTags decides, from ALL sampled values of a column, whether the
// column is better modeled as a bounded categorical tag set than as
// free-form data.
//
// A column with many distinct one-off values is free text; a column with a
// small alphabet repeated often is categorical, which makes checkbox-style
// filters useful. Both conditions must hold:
//
//	unique/total    <= MaxUniqueRatio
//	duplicates/total >= MinDuplicateRatio
//
// Values are compared by canonical value equality, so int64(3) and
// float64(3) count as one distinct value.
//
// Edge cases:
//   - An empty sample returns false; there is no division by zero.
//   - A sample whose values are all missing returns false. Missing cells
//     share one canonical form, which would otherwise read as a tiny
//     repeated alphabet; an empty column carries no categorical signal.
func LooksLikeTags(values []any, cfg TagConfig) bool {
	total := len(values)
	if total == 0 {
		return false
	}

	defined := 0
	distinct := make(map[string]struct{}, total)
	for _, v := range values {
		if !records.Missing(v) {
			defined++
		}
		distinct[records.Canonical(v)] = struct{}{}
	}
	if defined == 0 {
		return false
	}

	unique := len(distinct)
	duplicates := total - unique

	return float64(unique)/float64(total) <= cfg.MaxUniqueRatio &&
		float64(duplicates)/float64(total) >= cfg.MinDuplicateRatio
}
