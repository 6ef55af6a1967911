package rasch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrShape is returned when the response rows do not line up with the item names.
var ErrShape = errors.New("response matrix shape mismatch")

// InsufficientDataError is fatal to an analysis: there are too few persons,
// too few calibratable items, or a row/column without any response.
type InsufficientDataError struct {
	Reason     string
	Degenerate []*DegenerateItemError
}

func (e *InsufficientDataError) Error() string {
	if len(e.Degenerate) == 0 {
		return "insufficient data: " + e.Reason
	}
	names := make([]string, 0, len(e.Degenerate))
	for _, d := range e.Degenerate {
		names = append(names, d.Name)
	}
	return fmt.Sprintf("insufficient data: %s (degenerate items: %s)", e.Reason, strings.Join(names, ", "))
}

// Unwrap exposes the degenerate items that caused the failure, if any.
func (e *InsufficientDataError) Unwrap() []error {
	if len(e.Degenerate) == 0 {
		return nil
	}
	errs := make([]error, len(e.Degenerate))
	for i, d := range e.Degenerate {
		errs[i] = d
	}
	return errs
}

// DegenerateItemError flags an item whose responses are all identical.
// It is collected into the analysis metadata, not returned on its own.
type DegenerateItemError struct {
	Index int     `json:"index" yaml:"index"`
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

func (e *DegenerateItemError) Error() string {
	return fmt.Sprintf("item %q (column %d) has zero response variance (all %g)", e.Name, e.Index, e.Value)
}

const (
	StageCalibration = "calibration"
	StageAbility     = "ability"
)

// ConvergenceWarning records an iteration cap reached without meeting tolerance.
// Index is the person row for the ability stage and -1 for calibration.
type ConvergenceWarning struct {
	Stage      string  `json:"stage" yaml:"stage"`
	Index      int     `json:"index" yaml:"index"`
	Iterations int     `json:"iterations" yaml:"iterations"`
	Delta      float64 `json:"delta" yaml:"delta"`
}

func (w *ConvergenceWarning) Error() string {
	if w.Stage == StageAbility {
		return fmt.Sprintf("ability estimate for person %d did not converge after %d iterations (last step %g)", w.Index, w.Iterations, w.Delta)
	}
	return fmt.Sprintf("%s did not converge after %d iterations (max change %g)", w.Stage, w.Iterations, w.Delta)
}

// InvalidResponseValueError reports a cell outside {0, 1, missing}.
type InvalidResponseValueError struct {
	Row    int
	Column int
	Value  float64
}

func (e *InvalidResponseValueError) Error() string {
	return fmt.Sprintf("invalid response value %g at row %d, column %d: expected 0, 1 or missing", e.Value, e.Row, e.Column)
}
