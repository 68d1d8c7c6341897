package calculator

// Operator is an arithmetic operator symbol.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpMod Operator = "%"
	OpPow Operator = "**"
)

// Node is a syntax tree node. The set of implementations is closed: only the
// types in this file satisfy it.
type Node interface {
	node()
}

// Literal is a numeric constant written in the expression.
type Literal struct {
	Value Number
	Pos   int
}

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Op          Operator
	Left, Right Node
	Pos         int
}

// UnaryOp applies a sign to Operand.
type UnaryOp struct {
	Op      Operator
	Operand Node
	Pos     int
}

// Call invokes an allow-listed function by name.
type Call struct {
	Name string
	Args []Node
	Pos  int
}

// Identifier references an allow-listed constant.
type Identifier struct {
	Name string
	Pos  int
}

func (*Literal) node()    {}
func (*BinaryOp) node()   {}
func (*UnaryOp) node()    {}
func (*Call) node()       {}
func (*Identifier) node() {}
