package rasch

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// grid is a discretized standard normal ability prior.
type grid struct {
	nodes   []float64
	weights []float64
	logW    []float64
}

func newGrid(o options) grid {
	g := grid{
		nodes:   make([]float64, o.nodes),
		weights: make([]float64, o.nodes),
	}

	switch o.quadrature {
	case Hermite:
		// nodes for e^{-x^2}; theta = sqrt(2) x maps onto N(0,1)
		quad.Hermite{}.FixedLocations(g.nodes, g.weights, math.Inf(-1), math.Inf(1))
		floats.Scale(math.Sqrt2, g.nodes)
	default:
		step := 2 * o.span / float64(o.nodes-1)
		for q := range g.nodes {
			g.nodes[q] = -o.span + float64(q)*step
			g.weights[q] = distuv.UnitNormal.Prob(g.nodes[q])
		}
	}

	floats.Scale(1/floats.Sum(g.weights), g.weights)

	g.logW = make([]float64, len(g.weights))
	for q, w := range g.weights {
		g.logW[q] = math.Log(w)
	}
	return g
}
