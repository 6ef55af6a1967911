package rasch

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateAbilities_Sentinels(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{1, na, 1, na},
		{na, 0, na, 0},
	})
	persons, warnings, err := EstimateAbilities(m, []float64{-1, 0, 0.5, 1}, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, Float(3.0), persons[0].Ability)
	assert.Equal(t, Float(-3.0), persons[1].Ability)
	assert.Equal(t, Float(3.0), persons[2].Ability)
	assert.Equal(t, Float(-3.0), persons[3].Ability)

	assert.Equal(t, 2, persons[2].RawScore)
	assert.Equal(t, 2, persons[2].ValidItems)
	assert.True(t, math.IsNaN(float64(persons[0].SE)))
}

func TestEstimateAbilities_ExtremeAbilityOption(t *testing.T) {
	m := mustMatrix(t, [][]float64{{1, 1}, {0, 0}})
	persons, _, err := EstimateAbilities(m, []float64{0, 0}, WithExtremeAbility(4), WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, Float(4), persons[0].Ability)
	assert.Equal(t, Float(-4), persons[1].Ability)
}

func TestEstimateAbilities_NewtonRaphson(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 0, 0},
		{1, 1, 1, 0},
		{1, 0, 0, 0},
	})
	persons, warnings, err := EstimateAbilities(m, []float64{0, 0, 0, 0}, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, Float(0), persons[0].Ability)
	assert.InDelta(t, math.Log(3), float64(persons[1].Ability), 1e-6)
	assert.InDelta(t, -math.Log(3), float64(persons[2].Ability), 1e-6)
	for _, p := range persons {
		assert.True(t, p.Converged)
		assert.True(t, p.SE.Defined())
	}
	// information at theta=0 with four b=0 items is 1
	assert.InDelta(t, 1.0, float64(persons[0].SE), 1e-12)
}

func TestEstimateAbilities_IgnoresUndefinedDifficulties(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 0},
		{1, 0, 1},
		{1, na, na},
	})
	persons, _, err := EstimateAbilities(m, []float64{math.NaN(), 0, 0}, WithLogger(quietLogger))
	require.NoError(t, err)

	assert.Equal(t, Float(0), persons[0].Ability)
	assert.Equal(t, 2, persons[0].RawScore)
	assert.Equal(t, 1, persons[0].ValidScore)
	assert.Equal(t, 2, persons[0].ValidItems)

	assert.True(t, persons[2].Excluded)
	assert.True(t, math.IsNaN(float64(persons[2].Ability)))
	assert.Equal(t, 1, persons[2].RawScore)
}

func TestEstimateAbilities_BoundedBySentinels(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{1, 1, 1, 0},
		{1, 0, 0, 0},
	})

	persons, _, err := EstimateAbilities(m, []float64{5, 5, 5, 5}, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, Float(3.0), persons[0].Ability)

	persons, _, err = EstimateAbilities(m, []float64{-5, -5, -5, -5}, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, Float(-3.0), persons[1].Ability)
}

func TestEstimateAbilities_IterationCap(t *testing.T) {
	m := mustMatrix(t, [][]float64{{1, 1, 1, 0}, {1, 1, 0, 0}})
	persons, warnings, err := EstimateAbilities(m, []float64{0, 0, 0, 0},
		WithNewtonLimits(1, 1e-12), WithLogger(quietLogger))
	require.NoError(t, err)

	assert.False(t, persons[0].Converged)
	assert.Equal(t, Float(1), persons[0].Ability)
	// the second person starts at its maximum
	assert.True(t, persons[1].Converged)

	require.Len(t, warnings, 1)
	assert.Equal(t, StageAbility, warnings[0].Stage)
	assert.Equal(t, 0, warnings[0].Index)
	assert.Equal(t, 1.0, warnings[0].Delta)
}

func TestEstimateAbilities_ShapeMismatch(t *testing.T) {
	m := mustMatrix(t, [][]float64{{1, 0}})
	_, _, err := EstimateAbilities(m, []float64{0})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestEstimateAbilities_Monotonic(t *testing.T) {
	m := simulate(t, 80, 10, 21)
	cal, err := Calibrate(m, WithLogger(quietLogger))
	require.NoError(t, err)

	persons, _, err := EstimateAbilities(m, cal.Difficulties, WithLogger(quietLogger))
	require.NoError(t, err)

	sorted := append([]PersonParameter(nil), persons...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].ValidScore < sorted[b].ValidScore })
	for k := 1; k < len(sorted); k++ {
		prev, cur := sorted[k-1], sorted[k]
		if cur.ValidScore > prev.ValidScore {
			assert.GreaterOrEqual(t, float64(cur.Ability), float64(prev.Ability),
				"score %d vs %d", cur.ValidScore, prev.ValidScore)
		}
		if cur.ValidScore == prev.ValidScore {
			// raw score is sufficient, only summation order differs
			assert.InDelta(t, float64(prev.Ability), float64(cur.Ability), 1e-9)
		}
	}
}

func TestEstimateAbilities_Idempotent(t *testing.T) {
	m := simulate(t, 60, 8, 9)
	b := []float64{-1.2, -0.8, -0.3, 0, 0.2, 0.6, 1.1, 1.5}

	first, _, err := EstimateAbilities(m, b, WithWorkers(1), WithLogger(quietLogger))
	require.NoError(t, err)
	second, _, err := EstimateAbilities(m, b, WithWorkers(6), WithLogger(quietLogger))
	require.NoError(t, err)

	a1 := make([]float64, len(first))
	a2 := make([]float64, len(second))
	for i := range first {
		a1[i] = float64(first[i].Ability)
		a2[i] = float64(second[i].Ability)
	}
	assert.Equal(t, bits(a1), bits(a2))
}
