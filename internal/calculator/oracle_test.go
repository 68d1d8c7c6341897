package calculator

import (
	"testing"

	"github.com/expr-lang/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The arithmetic subset shared with expr-lang must evaluate identically.
func TestEvaluateAgreesWithExpr(t *testing.T) {
	inputs := []string{
		"2 + 3 * 4",
		"(1.5 + 2.5) * 3",
		"10 / 4",
		"2 ** 3 ** 2",
		"-2 ** 2",
		"7 - 2 - 1",
		"100 / 10 / 5",
		"-(3 - 5) * 2.5",
		"1 + 2 * (3 + 4) / 7",
		"2 ** 0.5",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			want, err := expr.Eval(in, nil)
			require.NoError(t, err)

			got, err := Evaluate(in)
			require.NoError(t, err)
			assert.InDelta(t, toFloat(t, want), got.Value, 1e-12)
		})
	}
}

func toFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	t.Fatalf("unexpected result type %T", v)
	return 0
}
