package score

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, rows [][]float64) (*rasch.AnalysisResult, *rasch.ResponseMatrix) {
	t.Helper()
	items := make([]string, len(rows[0]))
	for j := range items {
		items[j] = "q" + string(rune('1'+j))
	}
	m, err := rasch.NewResponseMatrix(items, rows)
	require.NoError(t, err)

	res, err := rasch.Analyze(m, rasch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return res, m
}

func TestBuildReports(t *testing.T) {
	res, m := analyze(t, [][]float64{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
	})
	sections := Sections{
		{Name: "A", Items: []int{1, 2}},
		{Name: "B", Items: []int{3, 4}},
	}

	reports, err := BuildReports(res, m, sections)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, rasch.Float(3), reports[0].Ability)
	assert.Greater(t, float64(reports[0].TScore), float64(reports[1].TScore))
	assert.Greater(t, float64(reports[1].TScore), float64(reports[2].TScore))
	assert.Equal(t, 4, reports[0].MaxScore)
	assert.Equal(t, 2, reports[1].RawScore)

	for _, r := range reports {
		require.Len(t, r.Sections, 2)
		var sum float64
		for _, ss := range r.Sections {
			sum += ss.TScore
		}
		assert.InDelta(t, float64(r.TScore), sum, 1e-6)
		assert.Equal(t, GradeFor(float64(r.TScore)), r.Grade)
	}

	// person 1 answered only section A
	assert.Equal(t, reports[1].TScore, rasch.Float(reports[1].Sections["A"].TScore))
	assert.Equal(t, 0.0, reports[1].Sections["B"].TScore)
	// person 2 answered nothing, equal split
	assert.Equal(t, reports[2].Sections["A"].TScore, reports[2].Sections["B"].TScore)
}

func TestBuildReports_Excluded(t *testing.T) {
	res, m := analyze(t, [][]float64{
		{1, 1, 0},
		{1, 0, 1},
		{1, 1, 1},
		{1, rasch.Missing, rasch.Missing},
		{1, 0, 0},
	})

	reports, err := BuildReports(res, m, Sections{{Name: "all", Items: []int{1, 2, 3}}})
	require.NoError(t, err)

	r := reports[3]
	assert.True(t, r.Excluded)
	assert.False(t, r.TScore.Defined())
	assert.Equal(t, GradeNoData, r.Grade)
	assert.Nil(t, r.Sections)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"t_score":null`)
}

func TestBuildReports_Errors(t *testing.T) {
	res, m := analyze(t, [][]float64{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
	})

	_, err := BuildReports(res, m, Sections{{Name: "A", Items: []int{5}}})
	var se *SectionError
	assert.ErrorAs(t, err, &se)

	_, other := analyze(t, [][]float64{{1, 0}, {0, 1}, {1, 1}})
	_, err = BuildReports(res, other, nil)
	assert.ErrorIs(t, err, rasch.ErrShape)

	_, err = BuildReports(nil, m, nil)
	assert.Error(t, err)
}
