package rasch

import "math"

// Probability is the Rasch item response function P(correct | theta, b).
func Probability(theta, difficulty float64) float64 {
	return 1 / (1 + math.Exp(-(theta - difficulty)))
}

// logProbabilities returns log P and log(1-P) without cancellation at the tails.
func logProbabilities(theta, difficulty float64) (logP, logQ float64) {
	x := theta - difficulty
	// log(1/(1+e^-x)) = -log1p(e^-x); log(1-P) = -log1p(e^x)
	if x > 0 {
		logP = -math.Log1p(math.Exp(-x))
		logQ = -x + logP
	} else {
		logQ = -math.Log1p(math.Exp(x))
		logP = x + logQ
	}
	return logP, logQ
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
