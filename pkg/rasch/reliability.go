package rasch

import (
	"gonum.org/v1/gonum/stat"
)

// EstimateReliability returns the person separation reliability
// (observed - expected) / observed, clamped to [0, 1].
//
// observed is the population variance of the raw scores of persons with at
// least one valid response. expected is the model error variance
// sum p(1-p) over calibrated items, evaluated at theta=0 unless
// WithAbilityReference supplies abilities to average over. When every person
// has the same raw score the result is exactly 0.
func EstimateReliability(m *ResponseMatrix, difficulties []float64, opts ...Option) float64 {
	if m == nil || len(difficulties) != m.NumItems() {
		return 0
	}
	return reliability(m, difficulties, buildOptions(opts))
}

func reliability(m *ResponseMatrix, difficulties []float64, o options) float64 {
	scores := make([]float64, 0, m.NumPersons())
	for i := range m.NumPersons() {
		if !hasValidResponse(m, i, difficulties) {
			continue
		}
		raw, _ := m.RawScore(i)
		scores = append(scores, float64(raw))
	}
	if len(scores) == 0 {
		return 0
	}

	observed := stat.PopVariance(scores, nil)
	if observed == 0 {
		return 0
	}

	expected := errorVariance(0, difficulties)
	if refs := finite(o.reference); len(refs) > 0 {
		var sum float64
		for _, theta := range refs {
			sum += errorVariance(theta, difficulties)
		}
		expected = sum / float64(len(refs))
	}

	return clamp((observed-expected)/observed, 0, 1)
}

// errorVariance is the binomial variance of the raw score at theta.
func errorVariance(theta float64, difficulties []float64) float64 {
	var v float64
	for _, b := range difficulties {
		if !isFinite(b) {
			continue
		}
		p := Probability(theta, b)
		v += p * (1 - p)
	}
	return v
}

func hasValidResponse(m *ResponseMatrix, i int, difficulties []float64) bool {
	for j, b := range difficulties {
		if isFinite(b) && !IsMissing(m.At(i, j)) {
			return true
		}
	}
	return false
}

func finite(xs []float64) []float64 {
	var out []float64
	for _, x := range xs {
		if isFinite(x) {
			out = append(out, x)
		}
	}
	return out
}
