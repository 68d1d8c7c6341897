package calculator

import (
	"math"
	"strconv"
	"strings"
)

// Number is an evaluation result. Integer marks values of integer kind:
// integer literals and results derived only from them (sums, products,
// remainders, non-negative powers, rounding). Integer values are exact up to
// 2^53.
type Number struct {
	Value   float64
	Integer bool
}

// Int returns an integer-kind Number.
func Int(v float64) Number { return Number{Value: v, Integer: true} }

// Float returns a float-kind Number.
func Float(v float64) Number { return Number{Value: v} }

// String renders the number the way a Python REPL would: integers without a
// fraction, floats with the shortest round-trip representation and at least
// one fractional digit, exponent notation outside [1e-4, 1e16).
func (n Number) String() string {
	v := n.Value
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if n.Integer {
		if v == 0 {
			return "0"
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(s[strings.IndexByte(s, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return s
	}
	s = strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON writes finite numbers as JSON numbers and non-finite ones as
// strings, since JSON has no literal for them.
func (n Number) MarshalJSON() ([]byte, error) {
	if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte(strconv.Quote(n.String())), nil
	}
	return []byte(n.String()), nil
}
