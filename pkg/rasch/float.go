package rasch

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

var jsonNull = []byte("null")

// Float is a float64 that survives JSON round trips when undefined:
// NaN and infinities encode as null, and null decodes to NaN.
type Float float64

// NaN returns an undefined Float.
func NaN() Float { return Float(math.NaN()) }

// Defined reports whether f holds a finite value.
func (f Float) Defined() bool {
	return isFinite(float64(f))
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Defined() {
		return jsonNull, nil
	}
	return strconv.AppendFloat(nil, float64(f), 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts to a plain float64 slice.
func Floats(fs []Float) []float64 {
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = float64(f)
	}
	return out
}
