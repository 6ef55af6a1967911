package rasch

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ItemStats describes the observed responses to one item.
type ItemStats struct {
	Name    string  `json:"name" yaml:"name"`
	N       int     `json:"n" yaml:"n"`
	Missing int     `json:"missing" yaml:"missing"`
	Mean    float64 `json:"mean" yaml:"mean"`
	SD      float64 `json:"sd" yaml:"sd"`
}

// RawScoreSummary describes the raw score distribution of included persons.
type RawScoreSummary struct {
	N            int         `json:"n" yaml:"n"`
	Min          float64     `json:"min" yaml:"min"`
	Max          float64     `json:"max" yaml:"max"`
	Mean         float64     `json:"mean" yaml:"mean"`
	SD           float64     `json:"sd" yaml:"sd"`
	Q1           float64     `json:"q1" yaml:"q1"`
	Median       float64     `json:"median" yaml:"median"`
	Q3           float64     `json:"q3" yaml:"q3"`
	Distribution map[int]int `json:"distribution" yaml:"distribution"`
}

// DescriptiveStats groups per-item and raw score statistics.
type DescriptiveStats struct {
	Items     []ItemStats     `json:"items" yaml:"items"`
	RawScores RawScoreSummary `json:"raw_scores" yaml:"rawScores"`
}

// Describe computes descriptive statistics. Standard deviations are
// population values; excluded rows are left out of the raw score summary.
func Describe(m *ResponseMatrix, excluded map[int]bool) DescriptiveStats {
	ds := DescriptiveStats{
		Items: make([]ItemStats, m.NumItems()),
	}

	col := make([]float64, 0, m.NumPersons())
	for j, name := range m.items {
		col = col[:0]
		for i := range m.NumPersons() {
			if v := m.At(i, j); !IsMissing(v) {
				col = append(col, v)
			}
		}
		is := ItemStats{Name: name, N: len(col), Missing: m.NumPersons() - len(col)}
		if len(col) > 0 {
			is.Mean, is.SD = stat.PopMeanStdDev(col, nil)
		}
		ds.Items[j] = is
	}

	scores := make([]float64, 0, m.NumPersons())
	dist := make(map[int]int)
	for i := range m.NumPersons() {
		if excluded[i] {
			continue
		}
		raw, _ := m.RawScore(i)
		scores = append(scores, float64(raw))
		dist[raw]++
	}
	ds.RawScores = summarize(scores)
	ds.RawScores.Distribution = dist

	return ds
}

func summarize(scores []float64) RawScoreSummary {
	s := RawScoreSummary{N: len(scores)}
	if len(scores) == 0 {
		return s
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Mean, s.SD = stat.PopMeanStdDev(sorted, nil)
	s.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return s
}
