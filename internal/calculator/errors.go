package calculator

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package is an *Error whose Kind
// is one of these, so callers can branch with errors.Is.
var (
	ErrSyntax              = errors.New("syntax error")
	ErrNameNotAllowed      = errors.New("name not allowed")
	ErrCallNotAllowed      = errors.New("call not allowed")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrArithmetic          = errors.New("arithmetic error")
)

// Error describes why an expression could not be evaluated.
type Error struct {
	Kind error
	Msg  string
	// Pos is the byte offset in the expression, or -1 when the failure is not
	// tied to a position.
	Pos int
}

func (e *Error) Error() string {
	if e.Kind == ErrSyntax && e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d", e.Msg, e.Pos)
	}
	return e.Msg
}

// Unwrap exposes the kind for errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

func syntaxError(pos int, format string, args ...any) *Error {
	return &Error{Kind: ErrSyntax, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func arithmeticError(msg string) *Error {
	return &Error{Kind: ErrArithmetic, Msg: msg, Pos: -1}
}

var (
	errNameNotAllowed = &Error{Kind: ErrNameNotAllowed, Msg: "Name not allowed", Pos: -1}
	errCallNotAllowed = &Error{Kind: ErrCallNotAllowed, Msg: "Function not allowed or unsupported call", Pos: -1}
	errUnsupported    = &Error{Kind: ErrSyntax, Msg: "Unsupported expression", Pos: -1}
	errDomain         = arithmeticError("math domain error")
	errRange          = arithmeticError("math range error")
)
