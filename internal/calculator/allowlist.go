package calculator

import (
	"fmt"
	"math"
	"sort"
)

// function is an allow-listed callable. maxArgs < 0 means variadic.
type function struct {
	minArgs, maxArgs int
	call             func(args []Number) (Number, error)
}

func (f *function) invoke(name string, args []Number) (Number, error) {
	if len(args) < f.minArgs || (f.maxArgs >= 0 && len(args) > f.maxArgs) {
		return Number{}, &Error{Kind: ErrCallNotAllowed, Msg: arityMessage(name, f, len(args)), Pos: -1}
	}
	return f.call(args)
}

func arityMessage(name string, f *function, given int) string {
	switch {
	case f.minArgs == f.maxArgs:
		return fmt.Sprintf("%s() takes exactly %d argument(s) (%d given)", name, f.minArgs, given)
	case f.maxArgs < 0:
		return fmt.Sprintf("%s() takes at least %d argument(s) (%d given)", name, f.minArgs, given)
	}
	return fmt.Sprintf("%s() takes from %d to %d arguments (%d given)", name, f.minArgs, f.maxArgs, given)
}

// entry is either a constant (fn == nil) or a function.
type entry struct {
	value Number
	fn    *function
}

// allowList maps names to the only values and functions an expression can
// reach. It is built once and never written afterwards.
type allowList struct {
	entries map[string]entry
}

func (t *allowList) lookup(name string) (entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

var defaultAllowList = newAllowList()

// Names returns every allow-listed identifier, sorted.
func Names() []string {
	names := make([]string, 0, len(defaultAllowList.entries))
	for name := range defaultAllowList.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newAllowList() *allowList {
	constants := map[string]float64{
		"pi":  math.Pi,
		"e":   math.E,
		"tau": 2 * math.Pi,
		"inf": math.Inf(1),
		"nan": math.NaN(),
	}
	functions := map[string]*function{
		"abs":   {1, 1, absolute},
		"round": {1, 2, roundHalfEven},

		"acos":  unary(math.Acos, false),
		"acosh": unary(math.Acosh, false),
		"asin":  unary(math.Asin, false),
		"asinh": unary(math.Asinh, false),
		"atan":  unary(math.Atan, false),
		"atanh": unary(math.Atanh, false),
		"cbrt":  unary(math.Cbrt, false),
		"cos":   unary(math.Cos, false),
		"cosh":  unary(math.Cosh, true),
		"erf":   unary(math.Erf, false),
		"erfc":  unary(math.Erfc, false),
		"exp":   unary(math.Exp, true),
		"exp2":  unary(math.Exp2, true),
		"expm1": unary(math.Expm1, true),
		"fabs":  unary(math.Abs, false),
		"log10": unary(math.Log10, false),
		"log1p": unary(math.Log1p, false),
		"log2":  unary(math.Log2, false),
		"sin":   unary(math.Sin, false),
		"sinh":  unary(math.Sinh, true),
		"sqrt":  unary(math.Sqrt, false),
		"tan":   unary(math.Tan, false),
		"tanh":  unary(math.Tanh, false),

		"degrees": unary(func(x float64) float64 { return x * 180 / math.Pi }, true),
		"radians": unary(func(x float64) float64 { return x * math.Pi / 180 }, true),
		"gamma":   {1, 1, gamma},
		"lgamma":  {1, 1, lgamma},

		"ceil":  toInteger(math.Ceil),
		"floor": toInteger(math.Floor),
		"trunc": toInteger(math.Trunc),

		"atan2":     binary(math.Atan2, false),
		"copysign":  binary(math.Copysign, false),
		"fmod":      binary(math.Mod, false),
		"remainder": binary(math.Remainder, false),
		"pow":       {2, 2, mathPow},
		"log":       {1, 2, logarithm},
		"ldexp":     {2, 2, ldexp},
		"hypot":     {0, -1, hypot},

		"factorial": {1, 1, factorial},
		"comb":      {2, 2, comb},
		"perm":      {1, 2, perm},
		"gcd":       {0, -1, gcd},
		"lcm":       {0, -1, lcm},
		"isqrt":     {1, 1, isqrt},
	}

	t := &allowList{entries: make(map[string]entry, len(constants)+len(functions))}
	for name, v := range constants {
		t.entries[name] = entry{value: Float(v)}
	}
	for name, fn := range functions {
		t.entries[name] = entry{fn: fn}
	}
	return t
}

// checked maps NaN and infinite results of finite inputs to the errors the
// math vocabulary defines: NaN is a domain error, infinity is a range error
// when the function can overflow and a domain error (a pole) otherwise.
func checked(r float64, canOverflow bool, in ...float64) (Number, error) {
	nanIn, infIn := false, false
	for _, x := range in {
		nanIn = nanIn || math.IsNaN(x)
		infIn = infIn || math.IsInf(x, 0)
	}
	if math.IsNaN(r) && !nanIn {
		return Number{}, errDomain
	}
	if math.IsInf(r, 0) && !infIn && !nanIn {
		if canOverflow {
			return Number{}, errRange
		}
		return Number{}, errDomain
	}
	return Float(r), nil
}

func unary(f func(float64) float64, canOverflow bool) *function {
	return &function{1, 1, func(args []Number) (Number, error) {
		x := args[0].Value
		return checked(f(x), canOverflow, x)
	}}
}

func binary(f func(float64, float64) float64, canOverflow bool) *function {
	return &function{2, 2, func(args []Number) (Number, error) {
		x, y := args[0].Value, args[1].Value
		return checked(f(x, y), canOverflow, x, y)
	}}
}

func toInteger(f func(float64) float64) *function {
	return &function{1, 1, func(args []Number) (Number, error) {
		if args[0].Integer {
			return args[0], nil
		}
		x := args[0].Value
		if err := convertible(x); err != nil {
			return Number{}, err
		}
		return Int(f(x)), nil
	}}
}

func convertible(x float64) error {
	switch {
	case math.IsNaN(x):
		return arithmeticError("cannot convert float NaN to integer")
	case math.IsInf(x, 0):
		return arithmeticError("cannot convert float infinity to integer")
	}
	return nil
}

// integerArg extracts an int64 from an integer-kind argument.
func integerArg(n Number) (int64, error) {
	if !n.Integer {
		return 0, arithmeticError("'float' object cannot be interpreted as an integer")
	}
	if math.Abs(n.Value) >= 1<<63 {
		return 0, arithmeticError("integer argument too large")
	}
	return int64(n.Value), nil
}

func absolute(args []Number) (Number, error) {
	return Number{Value: math.Abs(args[0].Value), Integer: args[0].Integer}, nil
}

// roundHalfEven implements round(x) and round(x, ndigits) with banker's
// rounding. round(x) always yields an integer.
func roundHalfEven(args []Number) (Number, error) {
	x := args[0]
	if len(args) == 1 {
		if x.Integer {
			return x, nil
		}
		if err := convertible(x.Value); err != nil {
			return Number{}, err
		}
		return Int(math.RoundToEven(x.Value)), nil
	}
	digits, err := integerArg(args[1])
	if err != nil {
		return Number{}, err
	}
	if x.Integer {
		if digits >= 0 {
			return x, nil
		}
		if digits < -308 {
			return Int(0), nil
		}
		scale := math.Pow(10, float64(-digits))
		return Int(math.RoundToEven(x.Value/scale) * scale), nil
	}
	if math.IsNaN(x.Value) || math.IsInf(x.Value, 0) || digits > 308 {
		return x, nil
	}
	if digits < -308 {
		return Float(math.Copysign(0, x.Value)), nil
	}
	scale := math.Pow(10, float64(digits))
	scaled := x.Value * scale
	if math.IsInf(scaled, 0) {
		return x, nil
	}
	return Float(math.RoundToEven(scaled) / scale), nil
}

func gamma(args []Number) (Number, error) {
	x := args[0].Value
	if x <= 0 && x == math.Trunc(x) {
		return Number{}, errDomain
	}
	return checked(math.Gamma(x), true, x)
}

func lgamma(args []Number) (Number, error) {
	x := args[0].Value
	if x <= 0 && x == math.Trunc(x) {
		return Number{}, errDomain
	}
	r, _ := math.Lgamma(x)
	return checked(r, true, x)
}

func mathPow(args []Number) (Number, error) {
	x, y := args[0].Value, args[1].Value
	if x == 0 && y < 0 {
		return Number{}, errDomain
	}
	return checked(math.Pow(x, y), true, x, y)
}

func logarithm(args []Number) (Number, error) {
	x := args[0].Value
	num, err := checked(math.Log(x), false, x)
	if err != nil || len(args) == 1 {
		return num, err
	}
	b := args[1].Value
	den, err := checked(math.Log(b), false, b)
	if err != nil {
		return Number{}, err
	}
	if den.Value == 0 {
		return Number{}, arithmeticError("division by zero")
	}
	return Float(num.Value / den.Value), nil
}

func ldexp(args []Number) (Number, error) {
	exp, err := integerArg(args[1])
	if err != nil {
		return Number{}, err
	}
	x := args[0].Value
	if exp > math.MaxInt32 {
		exp = math.MaxInt32
	} else if exp < math.MinInt32 {
		exp = math.MinInt32
	}
	return checked(math.Ldexp(x, int(exp)), true, x)
}

func hypot(args []Number) (Number, error) {
	r := 0.0
	in := make([]float64, len(args))
	for i, a := range args {
		in[i] = a.Value
		r = math.Hypot(r, a.Value)
	}
	return checked(r, true, in...)
}

func factorial(args []Number) (Number, error) {
	n, err := integerArg(args[0])
	if err != nil {
		return Number{}, err
	}
	if n < 0 {
		return Number{}, arithmeticError("factorial() not defined for negative values")
	}
	r := 1.0
	for i := int64(2); i <= n; i++ {
		r *= float64(i)
		if math.IsInf(r, 0) {
			return Number{}, errRange
		}
	}
	return Int(r), nil
}

func nonNegative(args []Number, name string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		v, err := integerArg(a)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, arithmeticError(name + " must be a non-negative integer")
		}
		out[i] = v
	}
	return out, nil
}

// falling returns n * (n-1) * ... * (n-k+1).
func falling(n, k int64) (Number, error) {
	r := 1.0
	for i := int64(0); i < k; i++ {
		r *= float64(n - i)
		if math.IsInf(r, 0) {
			return Number{}, errRange
		}
	}
	return Int(r), nil
}

func comb(args []Number) (Number, error) {
	v, err := nonNegative(args, "comb() arguments")
	if err != nil {
		return Number{}, err
	}
	n, k := v[0], v[1]
	if k > n {
		return Int(0), nil
	}
	if k > n-k {
		k = n - k
	}
	r := 1.0
	for i := int64(1); i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
		if math.IsInf(r, 0) {
			return Number{}, errRange
		}
	}
	return Int(math.Round(r)), nil
}

func perm(args []Number) (Number, error) {
	v, err := nonNegative(args, "perm() arguments")
	if err != nil {
		return Number{}, err
	}
	n, k := v[0], v[0]
	if len(v) == 2 {
		k = v[1]
	}
	if k > n {
		return Int(0), nil
	}
	return falling(n, k)
}

func gcdPair(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcd(args []Number) (Number, error) {
	var r int64
	for _, a := range args {
		v, err := integerArg(a)
		if err != nil {
			return Number{}, err
		}
		r = gcdPair(r, v)
	}
	return Int(float64(r)), nil
}

func lcm(args []Number) (Number, error) {
	r := 1.0
	for _, a := range args {
		v, err := integerArg(a)
		if err != nil {
			return Number{}, err
		}
		if v == 0 || r == 0 {
			r = 0
			continue
		}
		g := gcdPair(int64(r), v)
		r = math.Abs(r / float64(g) * float64(v))
		if r >= 1<<63 {
			return Number{}, errRange
		}
	}
	return Int(r), nil
}

func isqrt(args []Number) (Number, error) {
	v, err := nonNegative(args, "isqrt() argument")
	if err != nil {
		return Number{}, err
	}
	n := v[0]
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	// 3037000499 is floor(sqrt(MaxInt64)); beyond it (r+1)^2 overflows.
	for r < 3037000499 && (r+1)*(r+1) <= n {
		r++
	}
	return Int(float64(r)), nil
}
