package trade

import (
	"bytes"
	"math"
	"strconv"
)

// Numeric is an optional number decoded from upstream JSON. The upstream
// mixes numbers, numeric strings, and nulls in the same fields; anything
// that does not parse to a finite float stays absent. Absence is never
// coerced to zero and never raised as a decode error.
type Numeric struct {
	value float64
	valid bool
}

func (n *Numeric) UnmarshalJSON(b []byte) error {
	n.value = 0
	n.valid = false

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		if len(b) < 2 || b[len(b)-1] != '"' {
			return nil
		}
		b = bytes.TrimSpace(b[1 : len(b)-1])
		if len(b) == 0 {
			return nil
		}
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n.value = v
	n.valid = true
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.value, 'f', -1, 64)), nil
}

// Ptr returns the value as an optional, nil when absent.
func (n Numeric) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// Or returns the value, or fallback when absent.
func (n Numeric) Or(fallback float64) float64 {
	if !n.valid {
		return fallback
	}
	return n.value
}

// FiniteOrNil applies the boundary coercion rule to an in-process float:
// finite values pass through, NaN and infinities become absent.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
