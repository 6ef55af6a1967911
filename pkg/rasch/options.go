package rasch

import (
	"log/slog"
	"runtime"
)

// Quadrature selects how the ability prior is discretized.
type Quadrature string

const (
	// EqualSpaced places nodes evenly on [-Range, Range] weighted by the N(0,1) density.
	EqualSpaced Quadrature = "equal"
	// Hermite uses Gauss-Hermite nodes rescaled to N(0,1).
	Hermite Quadrature = "hermite"
)

const (
	DefaultNodes           = 41
	DefaultRange           = 6.0
	DefaultMaxEMIterations = 100
	DefaultEMTolerance     = 1e-4
	DefaultMaxNRIterations = 50
	DefaultNRTolerance     = 1e-6
	DefaultFlatTolerance   = 1e-10
	DefaultExtremeAbility  = 3.0

	minPersons = 3
	minItems   = 2
)

type options struct {
	nodes           int
	span            float64
	quadrature      Quadrature
	maxEMIterations int
	emTolerance     float64
	maxNRIterations int
	nrTolerance     float64
	flatTolerance   float64
	extremeAbility  float64
	workers         int
	personReference bool
	reference       []float64
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		nodes:           DefaultNodes,
		span:            DefaultRange,
		quadrature:      EqualSpaced,
		maxEMIterations: DefaultMaxEMIterations,
		emTolerance:     DefaultEMTolerance,
		maxNRIterations: DefaultMaxNRIterations,
		nrTolerance:     DefaultNRTolerance,
		flatTolerance:   DefaultFlatTolerance,
		extremeAbility:  DefaultExtremeAbility,
		workers:         runtime.GOMAXPROCS(0),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Option configures the estimators and the Engine.
type Option func(*options)

// WithNodes sets the number of quadrature nodes (values below 2 are ignored).
func WithNodes(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.nodes = n
		}
	}
}

// WithRange sets the half-width of the equal-spaced ability grid.
func WithRange(r float64) Option {
	return func(o *options) {
		if r > 0 {
			o.span = r
		}
	}
}

// WithQuadrature selects the prior discretization.
func WithQuadrature(q Quadrature) Option {
	return func(o *options) {
		if q == EqualSpaced || q == Hermite {
			o.quadrature = q
		}
	}
}

// WithEMLimits overrides the EM iteration cap and tolerance.
func WithEMLimits(maxIterations int, tolerance float64) Option {
	return func(o *options) {
		if maxIterations > 0 {
			o.maxEMIterations = maxIterations
		}
		if tolerance > 0 {
			o.emTolerance = tolerance
		}
	}
}

// WithNewtonLimits overrides the person Newton-Raphson iteration cap and step tolerance.
func WithNewtonLimits(maxIterations int, tolerance float64) Option {
	return func(o *options) {
		if maxIterations > 0 {
			o.maxNRIterations = maxIterations
		}
		if tolerance > 0 {
			o.nrTolerance = tolerance
		}
	}
}

// WithExtremeAbility sets the ability assigned to zero and perfect scores.
func WithExtremeAbility(v float64) Option {
	return func(o *options) {
		if v > 0 {
			o.extremeAbility = v
		}
	}
}

// WithWorkers bounds the goroutines used for the E-step and person estimation.
// Zero or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		} else {
			o.workers = runtime.GOMAXPROCS(0)
		}
	}
}

// WithPersonReference makes the Engine compute reliability over the estimated
// person abilities instead of the theta=0 reference point.
func WithPersonReference(enabled bool) Option {
	return func(o *options) {
		o.personReference = enabled
	}
}

// WithAbilityReference averages the expected error variance of
// EstimateReliability over the given abilities. Non-finite values are skipped.
func WithAbilityReference(abilities []float64) Option {
	return func(o *options) {
		o.reference = append([]float64(nil), abilities...)
	}
}

// WithLogger sets the logger used for progress and non-fatal conditions.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
