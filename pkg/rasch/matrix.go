package rasch

import (
	"fmt"
	"math"
)

// Missing marks a cell without a response.
var Missing = math.NaN()

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// ResponseMatrix is an immutable persons x items grid of dichotomous responses.
type ResponseMatrix struct {
	items   []string
	persons []string
	cells   [][]float64
}

// MatrixOption customizes a new ResponseMatrix.
type MatrixOption func(*ResponseMatrix)

// WithPersonIDs attaches row identifiers. Ignored when the count does not match.
func WithPersonIDs(ids []string) MatrixOption {
	return func(m *ResponseMatrix) {
		if len(ids) == len(m.cells) {
			m.persons = append([]string(nil), ids...)
		}
	}
}

// NewResponseMatrix copies rows into a new matrix after checking that every
// row has one value per item and every value is 0, 1 or Missing.
func NewResponseMatrix(items []string, rows [][]float64, opts ...MatrixOption) (*ResponseMatrix, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrShape)
	}

	m := &ResponseMatrix{
		items: append([]string(nil), items...),
		cells: make([][]float64, len(rows)),
	}

	for i, row := range rows {
		if len(row) != len(items) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrShape, i, len(row), len(items))
		}
		for j, v := range row {
			if !IsMissing(v) && v != 0 && v != 1 {
				return nil, &InvalidResponseValueError{Row: i, Column: j, Value: v}
			}
		}
		m.cells[i] = append([]float64(nil), row...)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// NumPersons returns the number of rows.
func (m *ResponseMatrix) NumPersons() int { return len(m.cells) }

// NumItems returns the number of columns.
func (m *ResponseMatrix) NumItems() int { return len(m.items) }

// ItemNames returns a copy of the ordered item names.
func (m *ResponseMatrix) ItemNames() []string {
	return append([]string(nil), m.items...)
}

// PersonID returns the identifier of row i, or an empty string.
func (m *ResponseMatrix) PersonID(i int) string {
	if i < 0 || i >= len(m.persons) {
		return ""
	}
	return m.persons[i]
}

// At returns the response of person i to item j.
func (m *ResponseMatrix) At(i, j int) float64 {
	return m.cells[i][j]
}

// Row returns a copy of person i's responses.
func (m *ResponseMatrix) Row(i int) []float64 {
	return append([]float64(nil), m.cells[i]...)
}

// RawScore returns the number of correct and answered items for person i.
func (m *ResponseMatrix) RawScore(i int) (correct, answered int) {
	for _, v := range m.cells[i] {
		if IsMissing(v) {
			continue
		}
		answered++
		if v == 1 {
			correct++
		}
	}
	return correct, answered
}

// Clean returns a new matrix without all-missing rows and columns.
// Dropping or imputing data is a caller decision, the estimators never do it.
func (m *ResponseMatrix) Clean() *ResponseMatrix {
	keepCol := make([]bool, len(m.items))
	for j := range m.items {
		for i := range m.cells {
			if !IsMissing(m.cells[i][j]) {
				keepCol[j] = true
				break
			}
		}
	}

	out := &ResponseMatrix{}
	for j, name := range m.items {
		if keepCol[j] {
			out.items = append(out.items, name)
		}
	}

	for i, row := range m.cells {
		kept := make([]float64, 0, len(out.items))
		answered := 0
		for j, v := range row {
			if !keepCol[j] {
				continue
			}
			if !IsMissing(v) {
				answered++
			}
			kept = append(kept, v)
		}
		if answered == 0 {
			continue
		}
		out.cells = append(out.cells, kept)
		if len(m.persons) == len(m.cells) {
			out.persons = append(out.persons, m.persons[i])
		}
	}

	return out
}

// checkCoverage enforces at least one response per row and per column.
func (m *ResponseMatrix) checkCoverage() error {
	answeredCols := make([]int, len(m.items))
	for i, row := range m.cells {
		answered := 0
		for j, v := range row {
			if IsMissing(v) {
				continue
			}
			answered++
			answeredCols[j]++
		}
		if answered == 0 {
			return &InsufficientDataError{Reason: fmt.Sprintf("person %d has no responses", i)}
		}
	}
	for j, n := range answeredCols {
		if n == 0 {
			return &InsufficientDataError{Reason: fmt.Sprintf("item %q has no responses", m.items[j])}
		}
	}
	return nil
}

// degenerateItems returns one error per column whose non-missing values are all equal.
func (m *ResponseMatrix) degenerateItems() []*DegenerateItemError {
	var out []*DegenerateItemError
	for j, name := range m.items {
		first := math.NaN()
		constant := true
		for i := range m.cells {
			v := m.cells[i][j]
			if IsMissing(v) {
				continue
			}
			if IsMissing(first) {
				first = v
				continue
			}
			if v != first {
				constant = false
				break
			}
		}
		if constant {
			out = append(out, &DegenerateItemError{Index: j, Name: name, Value: first})
		}
	}
	return out
}
