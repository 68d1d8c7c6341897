package tools

import (
	"context"

	"ragagent/internal/calculator"
)

// Calculator evaluates arithmetic expressions without executing code.
type Calculator struct {
	eval *calculator.Evaluator
}

func NewCalculator(limits calculator.Limits) *Calculator {
	return &Calculator{eval: calculator.New(limits)}
}

func (*Calculator) Name() string { return "calculator" }

func (*Calculator) Description() string {
	return "Evaluate math expressions. Supports numbers, + - * / % **, parentheses, " +
		"math functions such as sqrt, sin, log, factorial and constants pi, e, tau."
}

type calcResult struct {
	Success bool              `json:"success"`
	Result  calculator.Number `json:"result"`
}

// Call never returns an error for a bad expression; the failure is encoded
// in the output.
func (c *Calculator) Call(_ context.Context, input string) (string, error) {
	n, err := c.eval.Evaluate(input)
	if err != nil {
		return fail(err)
	}
	return encode(calcResult{Success: true, Result: n})
}
