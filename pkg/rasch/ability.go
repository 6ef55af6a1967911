package rasch

import "math"

// PersonParameter is the ability estimate of one matrix row.
//
// RawScore and Answered count every non-missing response. ValidScore and
// ValidItems count only responses to items with a defined difficulty, which
// is what the estimate is based on.
type PersonParameter struct {
	Index      int    `json:"index" yaml:"index"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	RawScore   int    `json:"raw_score" yaml:"rawScore"`
	Answered   int    `json:"answered" yaml:"answered"`
	ValidScore int    `json:"valid_score" yaml:"validScore"`
	ValidItems int    `json:"valid_items" yaml:"validItems"`
	Ability    Float  `json:"ability" yaml:"ability"`
	SE         Float  `json:"se" yaml:"se"`
	Converged  bool   `json:"converged" yaml:"converged"`
	Excluded   bool   `json:"excluded,omitempty" yaml:"excluded,omitempty"`

	lastStep float64
}

// EstimateAbilities computes a maximum likelihood ability per person given
// calibrated difficulties (NaN difficulties are ignored). Zero and perfect
// valid scores get -/+ the extreme ability without iterating; persons with no
// valid responses get NaN and are marked Excluded.
func EstimateAbilities(m *ResponseMatrix, difficulties []float64, opts ...Option) ([]PersonParameter, []*ConvergenceWarning, error) {
	if m == nil {
		return nil, nil, &InsufficientDataError{Reason: "no response matrix"}
	}
	if len(difficulties) != m.NumItems() {
		return nil, nil, ErrShape
	}
	o := buildOptions(opts)
	persons, warnings := estimateAbilities(m, difficulties, o)
	return persons, warnings, nil
}

func estimateAbilities(m *ResponseMatrix, difficulties []float64, o options) ([]PersonParameter, []*ConvergenceWarning) {
	persons := make([]PersonParameter, m.NumPersons())
	forEachBlock(m.NumPersons(), o.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			persons[i] = estimatePerson(m, i, difficulties, o)
		}
	})

	var warnings []*ConvergenceWarning
	for i := range persons {
		p := &persons[i]
		if p.Excluded {
			o.logger.Warn("person has no valid responses, excluded", "person", i)
			continue
		}
		if !p.Converged {
			warnings = append(warnings, &ConvergenceWarning{
				Stage:      StageAbility,
				Index:      i,
				Iterations: o.maxNRIterations,
				Delta:      math.Abs(p.lastStep),
			})
		}
	}
	return persons, warnings
}

func estimatePerson(m *ResponseMatrix, i int, difficulties []float64, o options) PersonParameter {
	p := PersonParameter{
		Index:     i,
		ID:        m.PersonID(i),
		Ability:   NaN(),
		SE:        NaN(),
		Converged: true,
	}
	p.RawScore, p.Answered = m.RawScore(i)

	var x, b []float64
	for j, d := range difficulties {
		v := m.At(i, j)
		if IsMissing(v) || !isFinite(d) {
			continue
		}
		x = append(x, v)
		b = append(b, d)
		p.ValidItems++
		if v == 1 {
			p.ValidScore++
		}
	}

	switch {
	case p.ValidItems == 0:
		p.Excluded = true
		return p
	case p.ValidScore == 0:
		p.Ability = Float(-o.extremeAbility)
		return p
	case p.ValidScore == p.ValidItems:
		p.Ability = Float(o.extremeAbility)
		return p
	}

	theta, step, converged := newtonRaphson(x, b, o)
	// interior scores never outrank the extreme-score sentinels
	ability := clamp(theta, -o.extremeAbility, o.extremeAbility)
	p.Ability = Float(ability)
	p.Converged = converged
	p.lastStep = step

	var info float64
	for _, d := range b {
		pr := Probability(ability, d)
		info += pr * (1 - pr)
	}
	if info > 0 {
		p.SE = Float(1 / math.Sqrt(info))
	}
	return p
}

// newtonRaphson maximizes the person log-likelihood starting at theta=0.
// A flat likelihood stops the iteration and keeps the current theta.
func newtonRaphson(x, b []float64, o options) (theta, step float64, converged bool) {
	for range o.maxNRIterations {
		var first, second float64
		for k, d := range b {
			p := Probability(theta, d)
			first += x[k] - p
			second -= p * (1 - p)
		}
		if math.Abs(second) < o.flatTolerance {
			return theta, step, true
		}
		step = first / second
		theta -= step
		if math.Abs(step) < o.nrTolerance {
			return theta, step, true
		}
	}
	return theta, step, false
}
