// Package calculator evaluates arithmetic expressions from untrusted input.
//
// Expressions are parsed into a closed set of node types and evaluated
// against a fixed allow-list of constants and math functions. Nothing outside
// that list is reachable: there is no attribute access, no string type and no
// way to name anything the table does not contain.
package calculator

import (
	"fmt"
	"math"
)

// Evaluator evaluates expressions under fixed limits. It holds no mutable
// state and is safe for concurrent use.
type Evaluator struct {
	limits Limits
	table  *allowList
}

// New returns an Evaluator; zero limit fields fall back to DefaultLimits.
func New(limits Limits) *Evaluator {
	return &Evaluator{limits: limits.withDefaults(), table: defaultAllowList}
}

var defaultEvaluator = New(DefaultLimits)

// Evaluate evaluates expr with DefaultLimits.
func Evaluate(expr string) (Number, error) {
	return defaultEvaluator.Evaluate(expr)
}

// Evaluate parses and evaluates expr. On failure the returned error is an
// *Error and the Number is zero.
func (e *Evaluator) Evaluate(expr string) (result Number, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Number{}
			err = arithmeticError(fmt.Sprintf("evaluation failed: %v", r))
		}
	}()
	root, err := parse(expr, e.limits)
	if err != nil {
		return Number{}, err
	}
	return e.eval(root)
}

func (e *Evaluator) eval(n Node) (Number, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *BinaryOp:
		left, err := e.eval(n.Left)
		if err != nil {
			return Number{}, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return Number{}, err
		}
		return applyBinary(n.Op, left, right)
	case *UnaryOp:
		v, err := e.eval(n.Operand)
		if err != nil {
			return Number{}, err
		}
		switch n.Op {
		case OpAdd:
			return v, nil
		case OpSub:
			return Number{Value: -v.Value, Integer: v.Integer}, nil
		}
		return Number{}, &Error{Kind: ErrUnsupportedOperator, Msg: "Unsupported unary op", Pos: n.Pos}
	case *Identifier:
		ent, ok := e.table.lookup(n.Name)
		if !ok || ent.fn != nil {
			return Number{}, errNameNotAllowed
		}
		return ent.value, nil
	case *Call:
		ent, ok := e.table.lookup(n.Name)
		if !ok || ent.fn == nil {
			return Number{}, errCallNotAllowed
		}
		args := make([]Number, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := e.eval(a)
			if err != nil {
				return Number{}, err
			}
			args = append(args, v)
		}
		return ent.fn.invoke(n.Name, args)
	}
	return Number{}, errUnsupported
}

func applyBinary(op Operator, a, b Number) (Number, error) {
	integer := a.Integer && b.Integer
	switch op {
	case OpAdd:
		return integerResult(a.Value+b.Value, integer)
	case OpSub:
		return integerResult(a.Value-b.Value, integer)
	case OpMul:
		return integerResult(a.Value*b.Value, integer)
	case OpDiv:
		if b.Value == 0 {
			return Number{}, arithmeticError("division by zero")
		}
		return Float(a.Value / b.Value), nil
	case OpMod:
		if b.Value == 0 {
			return Number{}, arithmeticError("modulo by zero")
		}
		return Number{Value: floorMod(a.Value, b.Value), Integer: integer}, nil
	case OpPow:
		return power(a, b)
	}
	return Number{}, &Error{Kind: ErrUnsupportedOperator, Msg: "Unsupported binary op", Pos: -1}
}

// integerResult rejects integer arithmetic that left the float64 range.
func integerResult(v float64, integer bool) (Number, error) {
	if integer && math.IsInf(v, 0) {
		return Number{}, arithmeticError("integer result too large")
	}
	return Number{Value: v, Integer: integer}, nil
}

// floorMod returns a remainder with the sign of the divisor.
func floorMod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r == 0 {
		return math.Copysign(0, b)
	}
	if (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func power(a, b Number) (Number, error) {
	x, y := a.Value, b.Value
	if x == 0 && y < 0 {
		return Number{}, arithmeticError("0.0 cannot be raised to a negative power")
	}
	if x < 0 && !math.IsInf(y, 0) && !math.IsNaN(y) && y != math.Trunc(y) {
		return Number{}, arithmeticError("negative number cannot be raised to a fractional power")
	}
	v := math.Pow(x, y)
	if math.IsInf(v, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
		return Number{}, arithmeticError("numerical result out of range")
	}
	return Number{Value: v, Integer: a.Integer && b.Integer && y >= 0}, nil
}
