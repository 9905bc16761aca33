// Package scorer turns the six scored disclosure checks into a numeric
// score and a three-tier segment.
//
// Canonical rule: exactly six scored checks (scope 1/2/3, EcoVadis,
// ISO 14001, product LCA). score = count of checks with available data;
// score <= 2 is Low, 3..4 is Medium, >= 5 is High.
package scorer

import "github.com/supplytrace/esg-cli/internal/model"

// Score counts the scored checks with available data and maps the count to
// a segment. Pure and total: missing keys count as unavailable, unknown
// keys are ignored.
func Score(results map[string]model.DataSummary) (int, model.Segment) {
	score := 0
	for _, key := range model.ScoredKeys {
		if results[key].Available {
			score++
		}
	}
	return score, SegmentFor(score)
}

// SegmentFor maps a 0..6 score to its segment.
func SegmentFor(score int) model.Segment {
	switch {
	case score <= 2:
		return model.SegmentLow
	case score <= 4:
		return model.SegmentMedium
	default:
		return model.SegmentHigh
	}
}
