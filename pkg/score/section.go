package score

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoSections is returned when every section is empty.
	ErrNoSections = errors.New("no section has any items")
	// ErrUndefinedScore is returned when the overall T-score is NaN.
	ErrUndefinedScore = errors.New("overall T-score is undefined")
)

// SectionError reports an invalid section definition.
type SectionError struct {
	Section string
	Item    int
	Reason  string
}

func (e *SectionError) Error() string {
	if e.Item != 0 {
		return fmt.Sprintf("section %q: item %d: %s", e.Section, e.Item, e.Reason)
	}
	return fmt.Sprintf("section %q: %s", e.Section, e.Reason)
}

// Section is a named subset of items. Items are 1-indexed item numbers; an
// empty list marks a skipped section.
type Section struct {
	Name  string `json:"name" yaml:"name"`
	Items []int  `json:"items" yaml:"items"`
}

// Sections keeps section definitions in reporting order.
type Sections []Section

// SectionsFromMap builds Sections ordered by name.
func SectionsFromMap(m map[string][]int) Sections {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make(Sections, 0, len(names))
	for _, n := range names {
		out = append(out, Section{Name: n, Items: append([]int(nil), m[n]...)})
	}
	return out
}

// Names returns the section names in order.
func (s Sections) Names() []string {
	out := make([]string, len(s))
	for i, sec := range s {
		out[i] = sec.Name
	}
	return out
}

// ValidateSections checks item numbers against nItems. Items may appear in
// more than one section but not twice in the same one.
func ValidateSections(sections Sections, nItems int) error {
	names := make(map[string]bool, len(sections))
	for _, sec := range sections {
		if sec.Name == "" {
			return &SectionError{Reason: "name is required"}
		}
		if names[sec.Name] {
			return &SectionError{Section: sec.Name, Reason: "duplicate section name"}
		}
		names[sec.Name] = true

		seen := make(map[int]bool, len(sec.Items))
		for _, item := range sec.Items {
			if item < 1 || item > nItems {
				return &SectionError{Section: sec.Name, Item: item, Reason: fmt.Sprintf("out of range 1..%d", nItems)}
			}
			if seen[item] {
				return &SectionError{Section: sec.Name, Item: item, Reason: "listed twice"}
			}
			seen[item] = true
		}
	}
	return nil
}

// SectionScore is one person's share of the overall T-score in one section.
type SectionScore struct {
	RawScore int     `json:"raw_score" yaml:"rawScore"`
	MaxScore int     `json:"max_score" yaml:"maxScore"`
	TScore   float64 `json:"t_score" yaml:"tScore"`
}

// Allocate splits overallT across sections in proportion to the person's
// correct answers in each. When the person scored nothing anywhere, overallT
// is split equally over the sections that have items. Section T-scores always
// add up to overallT.
func Allocate(responses []float64, overallT float64, sections Sections) (map[string]SectionScore, error) {
	if math.IsNaN(overallT) {
		return nil, ErrUndefinedScore
	}
	if err := ValidateSections(sections, len(responses)); err != nil {
		return nil, err
	}

	out := make(map[string]SectionScore, len(sections))
	var total, nonEmpty int
	for _, sec := range sections {
		ss := SectionScore{MaxScore: len(sec.Items)}
		for _, item := range sec.Items {
			if responses[item-1] == 1 {
				ss.RawScore++
			}
		}
		if ss.MaxScore > 0 {
			nonEmpty++
		}
		total += ss.RawScore
		out[sec.Name] = ss
	}
	if nonEmpty == 0 {
		return nil, ErrNoSections
	}

	for name, ss := range out {
		switch {
		case total > 0:
			ss.TScore = overallT * float64(ss.RawScore) / float64(total)
		case ss.MaxScore > 0:
			ss.TScore = overallT / float64(nonEmpty)
		}
		out[name] = ss
	}
	return out, nil
}
