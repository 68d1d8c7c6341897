package calculator

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokName
	tokOperator
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number " + t.text
	case tokName:
		return "name " + t.text
	}
	return "'" + t.text + "'"
}

// Operators the grammar recognizes lexically but does not evaluate.
var rejectedOperators = []string{"//", "<<", ">>", "<=", ">=", "==", "!="}

// lex splits src into tokens. Only ASCII input is accepted; any character
// that cannot start a token of the grammar is a syntax error.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			end := scanNumber(src, i)
			toks = append(toks, token{kind: tokNumber, text: src[i:end], pos: i})
			i = end
		case isNameStart(c):
			end := i + 1
			for end < len(src) && isNamePart(src[end]) {
				end++
			}
			toks = append(toks, token{kind: tokName, text: src[i:end], pos: i})
			i = end
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			for _, op := range rejectedOperators {
				if strings.HasPrefix(src[i:], op) {
					return nil, syntaxError(i, "operator %q is not supported", op)
				}
			}
			switch c {
			case '*':
				if strings.HasPrefix(src[i:], "**") {
					toks = append(toks, token{kind: tokOperator, text: "**", pos: i})
					i += 2
					continue
				}
				fallthrough
			case '+', '-', '/', '%':
				toks = append(toks, token{kind: tokOperator, text: string(c), pos: i})
				i++
			default:
				return nil, syntaxError(i, "invalid character %q", rune(c))
			}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

// scanNumber returns the end offset of the numeric literal starting at i.
// It is deliberately greedy over letters so that malformed literals such as
// "2pi" or "1j" surface as a single invalid number.
func scanNumber(src string, i int) int {
	prefixed := len(src) > i+1 && src[i] == '0' && strings.IndexByte("xXoObB", src[i+1]) >= 0
	end := i
	for end < len(src) {
		c := src[end]
		switch {
		case isDigit(c) || isNameStart(c) || c == '.':
			end++
		case (c == '+' || c == '-') && !prefixed && (src[end-1] == 'e' || src[end-1] == 'E'):
			end++
		default:
			return end
		}
	}
	return end
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNamePart(c byte) bool  { return isNameStart(c) || isDigit(c) }
