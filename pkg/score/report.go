package score

import (
	"fmt"

	"github.com/mchmarny/raschctl/pkg/rasch"
)

// Report is the per-person view of an analysis.
type Report struct {
	Index      int                     `json:"index" yaml:"index"`
	ID         string                  `json:"id,omitempty" yaml:"id,omitempty"`
	RawScore   int                     `json:"raw_score" yaml:"rawScore"`
	MaxScore   int                     `json:"max_score" yaml:"maxScore"`
	Ability    rasch.Float             `json:"ability" yaml:"ability"`
	SE         rasch.Float             `json:"se" yaml:"se"`
	TScore     rasch.Float             `json:"t_score" yaml:"tScore"`
	Grade      Grade                   `json:"grade" yaml:"grade"`
	Percentage float64                 `json:"percentage" yaml:"percentage"`
	Excluded   bool                    `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Sections   map[string]SectionScore `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// BuildReports standardizes every person's ability and, when sections are
// given, splits the T-score across them. Excluded persons get no sections.
func BuildReports(result *rasch.AnalysisResult, m *rasch.ResponseMatrix, sections Sections) ([]Report, error) {
	if result == nil || m == nil {
		return nil, fmt.Errorf("result and matrix are required")
	}
	if m.NumPersons() != result.NPersons || m.NumItems() != result.NItems {
		return nil, rasch.ErrShape
	}
	if len(sections) > 0 {
		if err := ValidateSections(sections, m.NumItems()); err != nil {
			return nil, err
		}
	}

	tr := NewTransformer(result.PersonAbilities())
	reports := make([]Report, len(result.Persons))
	for i, p := range result.Persons {
		s := tr.Transform(float64(p.Ability))
		r := Report{
			Index:      p.Index,
			ID:         p.ID,
			RawScore:   p.RawScore,
			MaxScore:   result.NItems,
			Ability:    p.Ability,
			SE:         p.SE,
			TScore:     s.TScore,
			Grade:      s.Grade,
			Percentage: s.Percentage,
			Excluded:   p.Excluded,
		}
		if len(sections) > 0 && !p.Excluded {
			alloc, err := Allocate(m.Row(i), float64(s.TScore), sections)
			if err != nil {
				return nil, fmt.Errorf("person %d: %w", i, err)
			}
			r.Sections = alloc
		}
		reports[i] = r
	}
	return reports, nil
}
