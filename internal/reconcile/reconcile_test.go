package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolkitvision/toolcheck-go/internal/detection"
)

func det(toolID, label string, confidence float64) detection.Detection {
	return detection.Detection{ToolID: toolID, Label: label, Confidence: confidence}
}

func TestReconcileFullMatch(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"flat_screwdriver", "pliers"}, 0.9, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
		det("flat_screwdriver", "Отвертка плоская", 0.88),
	})

	assert.Equal(t, []string{"flat_screwdriver", "pliers"}, outcome.MatchedToolIDs)
	assert.Empty(t, outcome.MissingToolIDs)
	assert.Empty(t, outcome.UnexpectedLabels)
	assert.InDelta(t, 1.0, outcome.MatchRatio, 1e-9)
	assert.False(t, outcome.BelowThreshold)
	assert.True(t, outcome.Complete())
}

func TestReconcilePartialMatch(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"flat_screwdriver", "pliers"}, 0.9, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
	})

	assert.Equal(t, []string{"pliers"}, outcome.MatchedToolIDs)
	assert.Equal(t, []string{"flat_screwdriver"}, outcome.MissingToolIDs)
	assert.InDelta(t, 0.5, outcome.MatchRatio, 1e-9)
	assert.True(t, outcome.BelowThreshold)
	assert.False(t, outcome.Complete())
}

func TestReconcileUnknownDetectionIsUnexpected(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"pliers"}, 0.5, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
		det("", "Unknown object", 0.44),
	})

	assert.Equal(t, []string{"Unknown object"}, outcome.UnexpectedLabels)
	assert.False(t, outcome.BelowThreshold)
	assert.False(t, outcome.Complete(), "unexpected labels block completion")
}

func TestReconcileOutOfSetDetectionIsUnexpected(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"pliers"}, 0.5, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
		det("shears", "Шэрница", 0.7),
	})

	assert.Equal(t, []string{"pliers"}, outcome.MatchedToolIDs)
	assert.Equal(t, []string{"Шэрница"}, outcome.UnexpectedLabels)
}

func TestReconcileDeduplicatesLabels(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"pliers"}, 0.5, []detection.Detection{
		det("", "Unknown object", 0.4),
		det("", "Unknown object", 0.6),
	})

	assert.Equal(t, []string{"Unknown object"}, outcome.UnexpectedLabels)
}

func TestReconcileDuplicateExpectedIDs(t *testing.T) {
	t.Parallel()

	// duplicates in the expected set must not skew the ratio
	outcome := Reconcile([]string{"pliers", "pliers"}, 0.5, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
	})

	assert.Equal(t, []string{"pliers"}, outcome.MatchedToolIDs)
	assert.InDelta(t, 1.0, outcome.MatchRatio, 1e-9)
}

func TestReconcileEmptyExpectedIsVacuouslySatisfied(t *testing.T) {
	t.Parallel()

	outcome := Reconcile(nil, 0.9, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
	})

	assert.InDelta(t, 1.0, outcome.MatchRatio, 1e-9)
	assert.False(t, outcome.BelowThreshold)
	assert.Empty(t, outcome.MissingToolIDs)
	// a detection outside the (empty) expected set is still unexpected
	assert.Equal(t, []string{"Пассатижи универсальные"}, outcome.UnexpectedLabels)
}

func TestReconcileMatchRatioRounding(t *testing.T) {
	t.Parallel()

	outcome := Reconcile([]string{"pliers", "shears", "brace"}, 0.9, []detection.Detection{
		det("pliers", "Пассатижи универсальные", 0.91),
	})

	assert.InDelta(t, 0.333, outcome.MatchRatio, 1e-9)
}

func TestReconcileThresholdBoundary(t *testing.T) {
	t.Parallel()

	detections := []detection.Detection{det("pliers", "Пассатижи универсальные", 0.91)}

	// ratio 0.5 against threshold 0.5: not below
	atBoundary := Reconcile([]string{"pliers", "shears"}, 0.5, detections)
	assert.False(t, atBoundary.BelowThreshold)

	justAbove := Reconcile([]string{"pliers", "shears"}, 0.501, detections)
	assert.True(t, justAbove.BelowThreshold)

	zeroThreshold := Reconcile([]string{"shears"}, 0, nil)
	assert.False(t, zeroThreshold.BelowThreshold, "ratio 0 is never below threshold 0")
}

func TestReconcileMatchRatioAlwaysInRange(t *testing.T) {
	t.Parallel()

	cases := [][]detection.Detection{
		nil,
		{det("pliers", "a", 0.9)},
		{det("pliers", "a", 0.9), det("shears", "b", 0.8), det("", "c", 0.4)},
	}
	for _, detected := range cases {
		outcome := Reconcile([]string{"pliers", "brace"}, 0.9, detected)
		assert.GreaterOrEqual(t, outcome.MatchRatio, 0.0)
		assert.LessOrEqual(t, outcome.MatchRatio, 1.0)
		assert.Equal(t, outcome.MatchRatio < 0.9, outcome.BelowThreshold)
	}
}
