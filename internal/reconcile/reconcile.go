// Package reconcile turns a raw detection list and an expected tool set
// into a match verdict. The algorithm is a pure function with no side
// effects so it can be exercised exhaustively in tests.
package reconcile

import (
	"math"
	"sort"

	"github.com/toolkitvision/toolcheck-go/internal/detection"
)

// Outcome holds the derived fields of one analysis.
type Outcome struct {
	MatchedToolIDs   []string `json:"matched_tool_ids"`
	MissingToolIDs   []string `json:"missing_tool_ids"`
	UnexpectedLabels []string `json:"unexpected_labels"`
	MatchRatio       float64  `json:"match_ratio"`
	BelowThreshold   bool     `json:"below_threshold"`
}

// Complete reports whether the outcome satisfies the session completion
// criteria: nothing missing, nothing unexpected, ratio at or above the
// threshold.
func (o Outcome) Complete() bool {
	return len(o.MissingToolIDs) == 0 && len(o.UnexpectedLabels) == 0 && !o.BelowThreshold
}

// Reconcile compares the detections against the expected tool set.
// Matched and missing ids and unexpected labels are returned sorted
// ascending and deduplicated for determinism. The match ratio is rounded
// to 3 decimals; an empty expected set is treated as vacuously satisfied
// with a ratio of 1.0.
func Reconcile(expectedToolIDs []string, threshold float64, detected []detection.Detection) Outcome {
	expected := make(map[string]bool, len(expectedToolIDs))
	for _, id := range expectedToolIDs {
		expected[id] = true
	}

	detectedIDs := make(map[string]bool, len(detected))
	unexpected := make(map[string]bool)
	for _, d := range detected {
		if d.ToolID == "" {
			unexpected[d.Label] = true
			continue
		}
		detectedIDs[d.ToolID] = true
		if !expected[d.ToolID] {
			unexpected[d.Label] = true
		}
	}

	matched := make([]string, 0, len(expected))
	missing := make([]string, 0, len(expected))
	for id := range expected {
		if detectedIDs[id] {
			matched = append(matched, id)
		} else {
			missing = append(missing, id)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)

	unexpectedLabels := make([]string, 0, len(unexpected))
	for label := range unexpected {
		unexpectedLabels = append(unexpectedLabels, label)
	}
	sort.Strings(unexpectedLabels)

	matchRatio := 1.0
	if len(expected) > 0 {
		matchRatio = math.Round(float64(len(matched))/float64(len(expected))*1000) / 1000
	}

	return Outcome{
		MatchedToolIDs:   matched,
		MissingToolIDs:   missing,
		UnexpectedLabels: unexpectedLabels,
		MatchRatio:       matchRatio,
		BelowThreshold:   matchRatio < threshold,
	}
}
