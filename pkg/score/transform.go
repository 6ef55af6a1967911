package score

import (
	"math"

	"github.com/mchmarny/raschctl/pkg/rasch"
	"gonum.org/v1/gonum/stat"
)

const (
	tMean  = 50.0
	tScale = 10.0

	// percentage display: T/65 of full marks, shown as 0 below 70% and capped at 100%
	percentReference = 65.0
	percentFloor     = 70.0
	percentCeiling   = 100.0
)

// Grade is a letter band on the T-score scale.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeNC     Grade = "NC"
	GradeNoData Grade = ""
)

var gradeBands = []struct {
	min   float64
	grade Grade
}{
	{70, GradeAPlus},
	{65, GradeA},
	{60, GradeBPlus},
	{55, GradeB},
	{50, GradeCPlus},
	{46, GradeC},
}

// GradeFor bands a T-score; lower bounds are inclusive.
func GradeFor(t float64) Grade {
	if math.IsNaN(t) {
		return GradeNoData
	}
	for _, b := range gradeBands {
		if t >= b.min {
			return b.grade
		}
	}
	return GradeNC
}

// Percentage converts a T-score to the display percentage.
func Percentage(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	pct := t / percentReference * 100
	switch {
	case pct < percentFloor:
		return 0
	case pct > percentCeiling:
		return percentCeiling
	}
	return pct
}

// Score is the standardized form of one ability estimate. TScore is
// undefined for excluded persons.
type Score struct {
	TScore     rasch.Float `json:"t_score" yaml:"tScore"`
	Grade      Grade       `json:"grade" yaml:"grade"`
	Percentage float64     `json:"percentage" yaml:"percentage"`
}

// Transformer standardizes abilities against the population of one analysis run.
type Transformer struct {
	mean float64
	sd   float64
}

// NewTransformer computes the mean and population standard deviation of the
// finite abilities. NaN entries (excluded persons) are ignored.
func NewTransformer(abilities []float64) *Transformer {
	finite := make([]float64, 0, len(abilities))
	for _, a := range abilities {
		if !math.IsNaN(a) && !math.IsInf(a, 0) {
			finite = append(finite, a)
		}
	}
	t := &Transformer{}
	if len(finite) > 0 {
		t.mean, t.sd = stat.PopMeanStdDev(finite, nil)
	}
	return t
}

// Mean returns the reference ability mean.
func (t *Transformer) Mean() float64 { return t.mean }

// SD returns the reference ability standard deviation.
func (t *Transformer) SD() float64 { return t.sd }

// TScore returns 50 + 10z. Without spread every finite ability maps to 50.
func (t *Transformer) TScore(ability float64) float64 {
	if math.IsNaN(ability) {
		return math.NaN()
	}
	if t.sd == 0 {
		return tMean
	}
	return tMean + tScale*(ability-t.mean)/t.sd
}

// Transform returns the T-score, grade and display percentage of an ability.
func (t *Transformer) Transform(ability float64) Score {
	ts := t.TScore(ability)
	return Score{
		TScore:     rasch.Float(ts),
		Grade:      GradeFor(ts),
		Percentage: Percentage(ts),
	}
}
