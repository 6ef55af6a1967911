package data

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(t *testing.T) *rasch.AnalysisResult {
	t.Helper()
	m, err := rasch.NewResponseMatrix([]string{"q1", "q2", "q3", "q4"}, [][]float64{
		{1, 1, 1, 1},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
	}, rasch.WithPersonIDs([]string{"ann", "bob", "cid"}))
	require.NoError(t, err)

	res, err := rasch.Analyze(m, rasch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return res
}

func exerciseRuns(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	res := testResult(t)

	saved, err := s.SaveRun(ctx, "midterm", res)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "midterm", saved.Name)
	assert.Equal(t, 3, saved.NPersons)
	assert.Equal(t, 4, saved.NItems)

	second, err := s.SaveRun(ctx, "", res)
	require.NoError(t, err)
	assert.Equal(t, second.ID[:8], second.Name)

	list, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[0].Result)

	list, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := s.GetRun(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.CreatedAt, got.CreatedAt)
	assert.Equal(t, res.Reliability, got.Reliability)
	require.NotNil(t, got.Result)
	assert.Equal(t, res.PersonAbilities(), got.Result.PersonAbilities())
	assert.Equal(t, "bob", got.Result.Persons[1].ID)
	assert.Equal(t, res.Descriptive.RawScores.Distribution, got.Result.Descriptive.RawScores.Distribution)

	require.NoError(t, s.DeleteRun(ctx, saved.ID))
	_, err = s.GetRun(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, saved.ID), ErrRunNotFound)
}

func TestRuns_SQLite(t *testing.T) {
	exerciseRuns(t, setupTestStore(t))
}

func TestSaveRun_NilResult(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.SaveRun(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestListRuns_Empty(t *testing.T) {
	s := setupTestStore(t)
	list, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
