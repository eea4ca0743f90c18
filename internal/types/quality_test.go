package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeComposite_UnweightedMean(t *testing.T) {
	scores := map[Dimension]float64{
		DimClarity:   8.0,
		DimCoherence: 6.0,
	}

	composite := ComputeComposite(scores, nil)
	assert.Equal(t, 7.0, composite)
}

func TestComputeComposite_WeightedAndRounded(t *testing.T) {
	scores := map[Dimension]float64{
		DimClarity: 9.0,
		DimDepth:   7.0,
	}
	weights := map[string]float64{
		"clarity": 2.0,
		"depth":   1.0,
	}

	// (9*2 + 7*1) / 3 = 8.333... -> 8.33
	composite := ComputeComposite(scores, weights)
	assert.Equal(t, 8.33, composite)
}

func TestComputeComposite_EmptyScores(t *testing.T) {
	assert.Equal(t, 0.0, ComputeComposite(map[Dimension]float64{}, nil))
}

func TestLowestDimensions_OrderAndTieBreak(t *testing.T) {
	report := &QualityReport{
		Scores: map[Dimension]float64{
			DimClarity:   9.0,
			DimCoherence: 5.0,
			DimDepth:     5.0,
			DimCitations: 3.0,
			DimTone:      8.0,
		},
	}

	lowest := report.LowestDimensions(3)
	require.Len(t, lowest, 3)
	assert.Equal(t, DimCitations, lowest[0])
	// Coherence precedes depth in canonical order, so the tie resolves that way.
	assert.Equal(t, DimCoherence, lowest[1])
	assert.Equal(t, DimDepth, lowest[2])
}

func TestLowestDimensions_NLargerThanScored(t *testing.T) {
	report := &QualityReport{
		Scores: map[Dimension]float64{DimClarity: 4.0},
	}

	lowest := report.LowestDimensions(3)
	assert.Equal(t, []Dimension{DimClarity}, lowest)
}

func TestSectionState_Terminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StateReviewing.Terminal())
}
