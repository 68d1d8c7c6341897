package calculator

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"precedence", "2 + 3 * 4", "14"},
		{"power", "2 ** 10", "1024"},
		{"sqrt is float", "sqrt(16)", "4.0"},
		{"abs and round", "abs(-5) + round(2.6)", "8"},
		{"parentheses", "(2 + 3) * 4", "20"},
		{"true division", "7 / 2", "3.5"},
		{"division of integers is float", "8 / 2", "4.0"},
		{"left associative minus", "10 - 4 - 3", "3"},
		{"right associative power", "2 ** 3 ** 2", "512"},
		{"unary binds looser than power", "-2 ** 2", "-4"},
		{"negative exponent", "2 ** -1", "0.5"},
		{"unary plus", "+7", "7"},
		{"double negation", "--3", "3"},
		{"modulo", "17 % 5", "2"},
		{"modulo takes divisor sign", "-7 % 3", "2"},
		{"float modulo", "7.5 % 2", "1.5"},
		{"negative divisor modulo", "7 % -3", "-2"},
		{"float literal", "1.5 + 1.5", "3.0"},
		{"leading dot", ".5 * 4", "2.0"},
		{"exponent literal", "1e3", "1000.0"},
		{"small float repr", "1 / 100000", "1e-05"},
		{"large float repr", "2.0 ** 60", "1.152921504606847e+18"},
		{"underscore separators", "1_000 + 1", "1001"},
		{"hex literal", "0xff", "255"},
		{"binary literal", "0b101", "5"},
		{"constant", "pi", "3.141592653589793"},
		{"constant arithmetic", "tau / 2 - pi", "0.0"},
		{"infinity constant", "inf", "inf"},
		{"negative infinity", "-inf", "-inf"},
		{"log of one", "log(1)", "0.0"},
		{"log2 of power of two", "log2(8)", "3.0"},
		{"round half to even", "round(2.5)", "2"},
		{"round with digits", "round(3.14159, 2)", "3.14"},
		{"round integer negative digits", "round(1234, -2)", "1200"},
		{"floor yields integer", "floor(3.7)", "3"},
		{"ceil of negative", "ceil(-3.2)", "-3"},
		{"factorial", "factorial(5)", "120"},
		{"gcd variadic", "gcd(12, 18, 27)", "3"},
		{"lcm", "lcm(4, 6)", "12"},
		{"comb", "comb(5, 2)", "10"},
		{"perm single argument", "perm(4)", "24"},
		{"isqrt", "isqrt(17)", "4"},
		{"hypot variadic", "hypot(3, 4)", "5.0"},
		{"nested calls", "sqrt(abs(-16)) + pow(2, 3)", "12.0"},
		{"trailing comma in call", "abs(-1,)", "1"},
		{"whitespace everywhere", "  ( 1 +\t2 )\n* 3 ", "9"},
		{"abs keeps float kind", "abs(-2.5)", "2.5"},
		{"trig", "sin(0) + cos(0)", "1.0"},
		{"radians of zero", "radians(0)", "0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestEvaluateNumericKinds(t *testing.T) {
	n, err := Evaluate("2 + 3 * 4")
	require.NoError(t, err)
	assert.Equal(t, Int(14), n)

	n, err = Evaluate("sqrt(16)")
	require.NoError(t, err)
	assert.Equal(t, Float(4), n)

	n, err = Evaluate("abs(-5) + round(2.6)")
	require.NoError(t, err)
	assert.Equal(t, Int(8), n)
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		kind error
		msg  string
	}{
		{"shell escape via attribute", "os.system('rm -rf /')", ErrSyntax, ""},
		{"dunder import", "__import__('os')", ErrSyntax, ""},
		{"dunder import without string", "__import__(1)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"unknown name", "x + 1", ErrNameNotAllowed, "Name not allowed"},
		{"builtin not in table", "open", ErrNameNotAllowed, "Name not allowed"},
		{"function used as value", "sqrt + 1", ErrNameNotAllowed, "Name not allowed"},
		{"unknown function", "eval(1)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"constant called", "pi(2)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"calling a number", "2(3)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"calling a call result", "abs(1)(2)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"calling a parenthesized name", "(sqrt)(4)", ErrCallNotAllowed, "Function not allowed or unsupported call"},
		{"wrong arity", "sqrt(1, 2)", ErrCallNotAllowed, "sqrt() takes exactly 1 argument(s) (2 given)"},
		{"division by zero", "1 / 0", ErrArithmetic, "division by zero"},
		{"float division by zero", "1.0 / 0.0", ErrArithmetic, "division by zero"},
		{"modulo by zero", "5 % 0", ErrArithmetic, "modulo by zero"},
		{"zero to negative power", "0 ** -1", ErrArithmetic, "0.0 cannot be raised to a negative power"},
		{"fractional power of negative", "(-8) ** 0.5", ErrArithmetic, "negative number cannot be raised to a fractional power"},
		{"power overflow", "10.0 ** 400", ErrArithmetic, "numerical result out of range"},
		{"sqrt domain", "sqrt(-1)", ErrArithmetic, "math domain error"},
		{"log of zero", "log(0)", ErrArithmetic, "math domain error"},
		{"log base one", "log(10, 1)", ErrArithmetic, "division by zero"},
		{"exp overflow", "exp(1000)", ErrArithmetic, "math range error"},
		{"acos domain", "acos(2)", ErrArithmetic, "math domain error"},
		{"gamma pole", "gamma(0)", ErrArithmetic, "math domain error"},
		{"factorial of float", "factorial(5.0)", ErrArithmetic, "'float' object cannot be interpreted as an integer"},
		{"factorial of negative", "factorial(-1)", ErrArithmetic, "factorial() not defined for negative values"},
		{"round infinity", "round(inf)", ErrArithmetic, "cannot convert float infinity to integer"},
		{"floor nan", "floor(nan)", ErrArithmetic, "cannot convert float NaN to integer"},
		{"floor division", "7 // 2", ErrSyntax, ""},
		{"comparison", "1 < 2", ErrSyntax, ""},
		{"equality", "1 == 1", ErrSyntax, ""},
		{"subscript", "pi[0]", ErrSyntax, ""},
		{"assignment", "x = 1", ErrSyntax, ""},
		{"lambda", "lambda: 1", ErrSyntax, ""},
		{"statement separator", "1; 2", ErrSyntax, ""},
		{"string literal", "'a' * 3", ErrSyntax, ""},
		{"keyword argument", "round(2.5, ndigits=1)", ErrSyntax, ""},
		{"complex literal", "1j", ErrSyntax, ""},
		{"leading zeros", "017", ErrSyntax, ""},
		{"unbalanced open", "(1 + 2", ErrSyntax, ""},
		{"unbalanced close", "1 + 2)", ErrSyntax, ""},
		{"dangling operator", "1 +", ErrSyntax, ""},
		{"empty", "   ", ErrSyntax, "empty expression"},
		{"empty argument", "abs(,)", ErrSyntax, ""},
		{"bitwise xor", "2 ^ 3", ErrSyntax, ""},
		{"non ascii", "2 × 3", ErrSyntax, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Evaluate(tt.expr)
			require.Error(t, err)
			assert.Equal(t, Number{}, n)
			assert.ErrorIs(t, err, tt.kind)

			var calcErr *Error
			require.True(t, errors.As(err, &calcErr))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, calcErr.Msg)
			}
		})
	}
}

func TestEvaluateSyntaxErrorPosition(t *testing.T) {
	_, err := Evaluate("1 + $")
	require.Error(t, err)
	assert.Equal(t, "invalid character '$' at position 4", err.Error())
}

func TestEvaluateLimits(t *testing.T) {
	e := New(Limits{MaxLength: 20, MaxDepth: 3})

	_, err := e.Evaluate(strings.Repeat("1+", 15) + "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "too long")

	n, err := e.Evaluate("((1))")
	require.NoError(t, err)
	assert.Equal(t, "1", n.String())

	_, err = e.Evaluate("((((1))))")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested too deeply")
}

func TestEvaluateDeepNestingIsRejected(t *testing.T) {
	deep := strings.Repeat("(", 500) + "1" + strings.Repeat(")", 500)
	_, err := Evaluate(deep)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = Evaluate(strings.Repeat("-", 200) + "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	for _, expr := range []string{"2 + 3 * 4", "1 / 0", "sqrt(2)", "nope"} {
		n1, err1 := Evaluate(expr)
		n2, err2 := Evaluate(expr)
		assert.Equal(t, n1, n2, expr)
		assert.Equal(t, err1, err2, expr)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	exprs := map[string]string{
		"2 + 3 * 4":      "14",
		"sqrt(16)":       "4.0",
		"factorial(10)":  "3628800",
		"round(pi, 3)":   "3.142",
		"log2(1024)":     "10.0",
		"2 ** 0.5 * 2":   "2.8284271247461903",
		"gcd(48, 36, 6)": "6",
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for expr, want := range exprs {
			wg.Add(1)
			go func(expr, want string) {
				defer wg.Done()
				n, err := Evaluate(expr)
				if assert.NoError(t, err) {
					assert.Equal(t, want, n.String(), expr)
				}
			}(expr, want)
		}
	}
	wg.Wait()
}

func TestNumberString(t *testing.T) {
	tests := []struct {
		n    Number
		want string
	}{
		{Int(0), "0"},
		{Int(math.Copysign(0, -1)), "0"},
		{Int(-42), "-42"},
		{Float(0), "0.0"},
		{Float(math.Copysign(0, -1)), "-0.0"},
		{Float(0.1), "0.1"},
		{Float(123456789), "123456789.0"},
		{Float(1e16), "1e+16"},
		{Float(0.0001), "0.0001"},
		{Float(math.NaN()), "nan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.n.String())
	}
}

func TestNumberMarshalJSON(t *testing.T) {
	b, err := Float(4).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "4.0", string(b))

	b, err = Float(math.Inf(1)).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"inf"`, string(b))
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "abs")
	assert.Contains(t, names, "round")
	assert.Contains(t, names, "sqrt")
	assert.Contains(t, names, "pi")
	assert.NotContains(t, names, "eval")
	assert.NotContains(t, names, "__import__")
	assert.IsNonDecreasing(t, names)
}
