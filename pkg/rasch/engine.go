package rasch

// ItemParameter is the calibrated difficulty of one item. Difficulty and SE
// are undefined for degenerate items.
type ItemParameter struct {
	Index      int    `json:"index" yaml:"index"`
	Name       string `json:"name" yaml:"name"`
	Difficulty Float  `json:"difficulty" yaml:"difficulty"`
	SE         Float  `json:"se" yaml:"se"`
	Degenerate bool   `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
}

// Metadata carries the non-fatal conditions met during an analysis.
type Metadata struct {
	CalibrationConverged bool                   `json:"calibration_converged" yaml:"calibrationConverged"`
	EMIterations         int                    `json:"em_iterations" yaml:"emIterations"`
	Quadrature           Quadrature             `json:"quadrature" yaml:"quadrature"`
	Nodes                int                    `json:"nodes" yaml:"nodes"`
	DegenerateItems      []*DegenerateItemError `json:"degenerate_items,omitempty" yaml:"degenerateItems,omitempty"`
	Warnings             []*ConvergenceWarning  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ExcludedPersons      []int                  `json:"excluded_persons,omitempty" yaml:"excludedPersons,omitempty"`
}

// AnalysisResult is the complete, read-only output of one analysis.
type AnalysisResult struct {
	ItemNames   []string          `json:"item_names" yaml:"itemNames"`
	Items       []ItemParameter   `json:"items" yaml:"items"`
	Persons     []PersonParameter `json:"persons" yaml:"persons"`
	NItems      int               `json:"n_items" yaml:"nItems"`
	NPersons    int               `json:"n_persons" yaml:"nPersons"`
	Reliability float64           `json:"reliability" yaml:"reliability"`
	Descriptive DescriptiveStats  `json:"descriptive_stats" yaml:"descriptiveStats"`
	Metadata    Metadata          `json:"metadata" yaml:"metadata"`
}

// ItemDifficulties returns difficulties by column, NaN for degenerate items.
func (r *AnalysisResult) ItemDifficulties() []float64 {
	out := make([]float64, len(r.Items))
	for i, it := range r.Items {
		out[i] = float64(it.Difficulty)
	}
	return out
}

// PersonAbilities returns abilities by row, NaN for excluded persons.
func (r *AnalysisResult) PersonAbilities() []float64 {
	out := make([]float64, len(r.Persons))
	for i, p := range r.Persons {
		out[i] = float64(p.Ability)
	}
	return out
}

// Engine runs the full calibration pipeline. It holds only options, so one
// Engine may serve any number of concurrent analyses.
type Engine struct {
	opts []Option
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...Option) *Engine {
	return &Engine{opts: append([]Option(nil), opts...)}
}

// Analyze is shorthand for NewEngine(opts...).Analyze(m).
func Analyze(m *ResponseMatrix, opts ...Option) (*AnalysisResult, error) {
	return NewEngine(opts...).Analyze(m)
}

// Analyze calibrates items, estimates abilities and derives reliability and
// descriptive statistics. Fatal errors return no partial result.
func (e *Engine) Analyze(m *ResponseMatrix) (*AnalysisResult, error) {
	o := buildOptions(e.opts)

	cal, err := calibrate(m, o)
	if err != nil {
		return nil, err
	}

	persons, warnings := estimateAbilities(m, cal.Difficulties, o)

	res := &AnalysisResult{
		ItemNames: m.ItemNames(),
		Items:     make([]ItemParameter, m.NumItems()),
		Persons:   persons,
		NItems:    m.NumItems(),
		NPersons:  m.NumPersons(),
		Metadata: Metadata{
			CalibrationConverged: cal.Converged,
			EMIterations:         cal.Iterations,
			Quadrature:           cal.Quadrature,
			Nodes:                cal.Nodes,
			DegenerateItems:      cal.Degenerate,
		},
	}

	for j, name := range res.ItemNames {
		res.Items[j] = ItemParameter{
			Index:      j,
			Name:       name,
			Difficulty: Float(cal.Difficulties[j]),
			SE:         Float(cal.SE[j]),
			Degenerate: !isFinite(cal.Difficulties[j]),
		}
	}

	if cal.Warning != nil {
		res.Metadata.Warnings = append(res.Metadata.Warnings, cal.Warning)
	}
	res.Metadata.Warnings = append(res.Metadata.Warnings, warnings...)

	excluded := make(map[int]bool)
	included := make([]float64, 0, len(persons))
	for _, p := range persons {
		if p.Excluded {
			excluded[p.Index] = true
			res.Metadata.ExcludedPersons = append(res.Metadata.ExcludedPersons, p.Index)
			continue
		}
		included = append(included, float64(p.Ability))
	}

	if o.personReference {
		o.reference = included
	}
	res.Reliability = reliability(m, cal.Difficulties, o)
	res.Descriptive = Describe(m, excluded)

	o.logger.Debug("analysis complete",
		"persons", res.NPersons,
		"items", res.NItems,
		"reliability", res.Reliability,
		"converged", cal.Converged)

	return res, nil
}
