// Package rasch implements a dichotomous Rasch (one-parameter logistic)
// measurement engine.
//
// Item difficulties are calibrated by marginal maximum likelihood: EM over a
// discretized standard normal ability prior with Newton-Raphson M-steps.
// Person abilities are maximum likelihood estimates given those difficulties,
// with fixed sentinels for zero and perfect scores. Reliability is the person
// separation index of observed versus model-expected raw score variance.
//
// Every call is self-contained: no package state is shared between analyses
// and repeated calls with the same input return bit-identical results.
package rasch
