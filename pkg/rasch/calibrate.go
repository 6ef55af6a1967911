package rasch

import (
	"fmt"
	"math"
)

const (
	maxInnerSteps = 10
	maxItemStep   = 1.0
	minStartP     = 0.01
	maxStartP     = 0.99
)

// Calibration holds item difficulties estimated by marginal maximum likelihood.
// Difficulties and SE are indexed by matrix column; both are NaN for
// degenerate items.
type Calibration struct {
	Difficulties []float64
	SE           []float64
	Degenerate   []*DegenerateItemError
	Converged    bool
	Iterations   int
	Warning      *ConvergenceWarning
	Quadrature   Quadrature
	Nodes        int
}

// Calibrate estimates item difficulties with EM over a discretized N(0,1)
// ability prior. Items with constant responses are flagged and left out.
func Calibrate(m *ResponseMatrix, opts ...Option) (*Calibration, error) {
	return calibrate(m, buildOptions(opts))
}

func calibrate(m *ResponseMatrix, o options) (*Calibration, error) {
	if m == nil {
		return nil, &InsufficientDataError{Reason: "no response matrix"}
	}
	if m.NumPersons() < minPersons {
		return nil, &InsufficientDataError{Reason: fmt.Sprintf("%d persons, at least %d required", m.NumPersons(), minPersons)}
	}
	if err := m.checkCoverage(); err != nil {
		return nil, err
	}

	degenerate := m.degenerateItems()
	skip := make([]bool, m.NumItems())
	for _, d := range degenerate {
		skip[d.Index] = true
		o.logger.Warn("excluding degenerate item", "item", d.Name, "value", d.Value)
	}

	active := make([]int, 0, m.NumItems())
	for j := range m.NumItems() {
		if !skip[j] {
			active = append(active, j)
		}
	}
	if len(active) < minItems {
		return nil, &InsufficientDataError{
			Reason:     fmt.Sprintf("%d items with response variance, at least %d required", len(active), minItems),
			Degenerate: degenerate,
		}
	}

	g := newGrid(o)
	c := &calibrator{
		m:      m,
		o:      o,
		g:      g,
		active: active,
		b:      startingDifficulties(m, active),
		post:   make([][]float64, m.NumPersons()),
		logP:   make([][]float64, len(active)),
		logQ:   make([][]float64, len(active)),
	}
	for i := range c.post {
		c.post[i] = make([]float64, len(g.nodes))
	}
	for k := range active {
		c.logP[k] = make([]float64, len(g.nodes))
		c.logQ[k] = make([]float64, len(g.nodes))
	}

	res := &Calibration{
		Difficulties: nanSlice(m.NumItems()),
		SE:           nanSlice(m.NumItems()),
		Degenerate:   degenerate,
		Quadrature:   o.quadrature,
		Nodes:        len(g.nodes),
	}

	var info []float64
	delta := math.Inf(1)
	for it := 1; it <= o.maxEMIterations; it++ {
		c.expectation()
		var next []float64
		next, info = c.maximization()

		delta = 0
		for k := range next {
			delta = math.Max(delta, math.Abs(next[k]-c.b[k]))
		}
		c.b = next
		res.Iterations = it

		o.logger.Debug("em iteration", "iteration", it, "max_change", delta)

		if delta < o.emTolerance {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		res.Warning = &ConvergenceWarning{
			Stage:      StageCalibration,
			Index:      -1,
			Iterations: res.Iterations,
			Delta:      delta,
		}
		o.logger.Warn("calibration did not converge", "iterations", res.Iterations, "max_change", delta)
	}

	for k, j := range active {
		res.Difficulties[j] = c.b[k]
		if info[k] > 0 {
			res.SE[j] = 1 / math.Sqrt(info[k])
		}
	}

	return res, nil
}

// startingDifficulties uses the negated logit of each item's proportion correct.
func startingDifficulties(m *ResponseMatrix, active []int) []float64 {
	b := make([]float64, len(active))
	for k, j := range active {
		var correct, answered float64
		for i := range m.NumPersons() {
			v := m.At(i, j)
			if IsMissing(v) {
				continue
			}
			answered++
			correct += v
		}
		b[k] = -logit(clamp(correct/answered, minStartP, maxStartP))
	}
	return b
}

type calibrator struct {
	m      *ResponseMatrix
	o      options
	g      grid
	active []int
	b      []float64

	// per-person posterior over nodes, rewritten every E-step
	post [][]float64
	// per active item log P and log(1-P) at each node for the current b
	logP [][]float64
	logQ [][]float64
}

func (c *calibrator) expectation() {
	for k := range c.active {
		for q, theta := range c.g.nodes {
			c.logP[k][q], c.logQ[k][q] = logProbabilities(theta, c.b[k])
		}
	}

	forEachBlock(c.m.NumPersons(), c.o.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			c.posterior(i)
		}
	})
}

func (c *calibrator) posterior(i int) {
	row := c.post[i]
	copy(row, c.g.logW)
	for k, j := range c.active {
		v := c.m.At(i, j)
		if IsMissing(v) {
			continue
		}
		terms := c.logQ[k]
		if v == 1 {
			terms = c.logP[k]
		}
		for q := range row {
			row[q] += terms[q]
		}
	}

	peak := math.Inf(-1)
	for _, l := range row {
		peak = math.Max(peak, l)
	}
	var total float64
	for q, l := range row {
		row[q] = math.Exp(l - peak)
		total += row[q]
	}
	for q := range row {
		row[q] /= total
	}
}

// maximization returns updated difficulties and the expected information
// at each new difficulty.
func (c *calibrator) maximization() ([]float64, []float64) {
	nodes := len(c.g.nodes)
	n := make([][]float64, len(c.active))
	r := make([][]float64, len(c.active))
	for k := range c.active {
		n[k] = make([]float64, nodes)
		r[k] = make([]float64, nodes)
	}

	// summed in person order so repeated runs are bit-identical
	for i := range c.m.NumPersons() {
		row := c.post[i]
		for k, j := range c.active {
			v := c.m.At(i, j)
			if IsMissing(v) {
				continue
			}
			for q, h := range row {
				n[k][q] += h
				if v == 1 {
					r[k][q] += h
				}
			}
		}
	}

	next := make([]float64, len(c.active))
	info := make([]float64, len(c.active))
	for k := range c.active {
		next[k], info[k] = c.newton(c.b[k], n[k], r[k])
	}
	return next, info
}

func (c *calibrator) newton(b float64, n, r []float64) (float64, float64) {
	var hess float64
	for range maxInnerSteps {
		var grad float64
		hess = 0
		for q, theta := range c.g.nodes {
			p := Probability(theta, b)
			grad += n[q]*p - r[q]
			hess += n[q] * p * (1 - p)
		}
		if hess < c.o.flatTolerance {
			break
		}
		step := clamp(grad/hess, -maxItemStep, maxItemStep)
		b += step
		if math.Abs(step) < c.o.nrTolerance {
			break
		}
	}
	return b, hess
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
