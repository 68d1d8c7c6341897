package calculator

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Limits bound the cost of parsing untrusted input.
type Limits struct {
	// MaxLength is the maximum expression length in runes.
	MaxLength int
	// MaxDepth is the maximum nesting of parentheses, signs, calls and powers.
	MaxDepth int
}

// DefaultLimits are used by Evaluate and for zero fields passed to New.
var DefaultLimits = Limits{MaxLength: 1024, MaxDepth: 64}

func (l Limits) withDefaults() Limits {
	if l.MaxLength <= 0 {
		l.MaxLength = DefaultLimits.MaxLength
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	return l
}

// Parse builds the syntax tree for expr under DefaultLimits.
func Parse(expr string) (Node, error) {
	return parse(expr, DefaultLimits)
}

func parse(src string, limits Limits) (Node, error) {
	if n := utf8.RuneCountInString(src); n > limits.MaxLength {
		return nil, syntaxError(-1, "expression too long (%d characters, limit %d)", n, limits.MaxLength)
	}
	if strings.TrimSpace(src) == "" {
		return nil, syntaxError(-1, "empty expression")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, maxDepth: limits.MaxDepth}
	root, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxError(t.pos, "unexpected %s", t)
	}
	return root, nil
}

// parser is a recursive-descent parser with Python operator precedence:
//
//	expr    := term (("+" | "-") term)*
//	term    := factor (("*" | "/" | "%") factor)*
//	factor  := ("+" | "-") factor | power
//	power   := primary ["**" factor]
//	primary := NUMBER | NAME | NAME "(" [expr ("," expr)* [","]] ")" | "(" expr ")"
type parser struct {
	toks     []token
	pos      int
	depth    int
	maxDepth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOperator(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOperator {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: Operator(op.text), Left: left, Right: right, Pos: op.pos}
	}
	return left, nil
}

func (p *parser) term() (Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/", "%") {
		op := p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: Operator(op.text), Left: left, Right: right, Pos: op.pos}
	}
	return left, nil
}

func (p *parser) factor() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, syntaxError(p.peek().pos, "expression nested too deeply (limit %d)", p.maxDepth)
	}
	if p.isOperator("+", "-") {
		op := p.next()
		operand, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: Operator(op.text), Operand: operand, Pos: op.pos}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	// Only bare names are callable; "2(3)" or "(f)(x)" would call a value.
	if p.peek().kind == tokLParen {
		return nil, errCallNotAllowed
	}
	if !p.isOperator("**") {
		return base, nil
	}
	op := p.next()
	exp, err := p.factor()
	if err != nil {
		return nil, err
	}
	return &BinaryOp{Op: OpPow, Left: base, Right: exp, Pos: op.pos}, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := parseNumber(t.text)
		if err != nil {
			return nil, syntaxError(t.pos, "invalid number %q", t.text)
		}
		return &Literal{Value: v, Pos: t.pos}, nil
	case tokName:
		if p.peek().kind != tokLParen {
			return &Identifier{Name: t.text, Pos: t.pos}, nil
		}
		p.next()
		args, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &Call{Name: t.text, Args: args, Pos: t.pos}, nil
	case tokLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, syntaxError(closing.pos, "expected ')' but found %s", closing)
		}
		return inner, nil
	}
	return nil, syntaxError(t.pos, "unexpected %s", t)
}

// arguments parses a call's argument list after the opening parenthesis.
func (p *parser) arguments() ([]Node, error) {
	var args []Node
	for p.peek().kind != tokRParen {
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch t := p.peek(); t.kind {
		case tokComma:
			p.next()
		case tokRParen:
		default:
			return nil, syntaxError(t.pos, "expected ',' or ')' but found %s", t)
		}
	}
	p.next()
	return args, nil
}

// parseNumber converts a literal to a Number. Integer literals accept "_"
// separators and 0x/0o/0b prefixes; decimal integers may not have leading
// zeros. Integers beyond int64 are kept as integer-kind floats.
func parseNumber(text string) (Number, error) {
	prefixed := len(text) > 1 && text[0] == '0' && strings.IndexByte("xXoObB", text[1]) >= 0
	if prefixed || !strings.ContainsAny(text, ".eE") {
		if !prefixed && len(text) > 1 && text[0] == '0' && strings.Trim(text, "0_") != "" {
			return Number{}, errors.New("leading zeros in decimal integer literal")
		}
		v, err := strconv.ParseInt(text, 0, 64)
		if err == nil {
			return Int(float64(v)), nil
		}
		if !errors.Is(err, strconv.ErrRange) {
			return Number{}, err
		}
		b, ok := new(big.Int).SetString(text, 0)
		if !ok {
			return Number{}, err
		}
		f, _ := new(big.Float).SetInt(b).Float64()
		return Int(f), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Number{}, err
	}
	return Float(v), nil
}
