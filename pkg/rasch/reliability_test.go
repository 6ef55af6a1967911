package rasch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateReliability_Formula(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
	})
	// raw scores 4, 2, 0: observed 8/3; expected at theta=0 with b=0 is 4*0.25
	want := (8.0/3 - 1) / (8.0 / 3)
	assert.InDelta(t, want, EstimateReliability(m, []float64{0, 0, 0, 0}), 1e-12)

	got := EstimateReliability(m, []float64{0, 0, 0, 0}, WithAbilityReference([]float64{0, 0}))
	assert.InDelta(t, want, got, 1e-12)
}

func TestEstimateReliability_IdenticalScores(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	assert.Equal(t, 0.0, EstimateReliability(m, []float64{0, 0, 0}))

	res, err := Analyze(m, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Reliability)
}

func TestEstimateReliability_ClampsAtZero(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 0, 0},
		{1, 0, 1, 0},
		{1, 1, 1, 0},
	})
	// observed variance 2/9 is below the model error variance
	assert.Equal(t, 0.0, EstimateReliability(m, []float64{0, 0, 0, 0}))
}

func TestEstimateReliability_Bounds(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 4} {
		m := simulate(t, 60, 8, seed)
		res, err := Analyze(m, WithLogger(quietLogger))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Reliability, 0.0)
		assert.LessOrEqual(t, res.Reliability, 1.0)

		persons, err := Analyze(m, WithPersonReference(true), WithLogger(quietLogger))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, persons.Reliability, 0.0)
		assert.LessOrEqual(t, persons.Reliability, 1.0)
	}
}

func TestEstimateReliability_SkipsUndefinedItems(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 1},
		{1, 1, 0},
		{1, 0, 0},
	})
	// only the two calibrated items contribute 0.25 each to the error variance
	want := (2.0/3 - 0.5) / (2.0 / 3)
	assert.InDelta(t, want, EstimateReliability(m, []float64{Missing, 0, 0}), 1e-12)
}

func TestEstimateReliability_ShapeMismatch(t *testing.T) {
	m := mustMatrix(t, [][]float64{{1, 0}, {0, 1}})
	assert.Equal(t, 0.0, EstimateReliability(m, []float64{0}))
}
