package rasch

import (
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// simulate draws a complete matrix from the Rasch model with evenly spread
// abilities and difficulties. The first row is all wrong and the last all
// right so no item is degenerate.
func simulate(t *testing.T, persons, items int, seed uint64) *ResponseMatrix {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	rows := make([][]float64, persons)
	for i := range rows {
		theta := -2.5 + 5*float64(i)/float64(persons-1)
		rows[i] = make([]float64, items)
		for j := range rows[i] {
			b := -1.5 + 3*float64(j)/float64(items-1)
			switch {
			case i == 0:
				rows[i][j] = 0
			case i == persons-1:
				rows[i][j] = 1
			case rng.Float64() < Probability(theta, b):
				rows[i][j] = 1
			}
		}
	}
	return mustMatrix(t, rows)
}

func bits(xs []float64) []uint64 {
	out := make([]uint64, len(xs))
	for i, x := range xs {
		out[i] = math.Float64bits(x)
	}
	return out
}
