package expr

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkNum
	tkIdent
	tkOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) is(op string) bool { return t.kind == tkOp && t.text == op }

func tokenize(src string) ([]token, error) {
	rs := []rune(src)
	toks := make([]token, 0, len(rs)/2+1)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i = scanNumber(rs, i)
			toks = append(toks, token{kind: tkNum, text: string(rs[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tkIdent, text: string(rs[start:i]), pos: start})
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{kind: tkOp, text: "^", pos: i})
			i += 2
		case r == '·' || r == '×':
			toks = append(toks, token{kind: tkOp, text: "*", pos: i})
			i++
		case r == '−':
			toks = append(toks, token{kind: tkOp, text: "-", pos: i})
			i++
		case r == '’' || r == '′':
			toks = append(toks, token{kind: tkOp, text: "'", pos: i})
			i++
		default:
			switch r {
			case '+', '-', '*', '/', '^', '(', ')', ',', '=', '\'':
				toks = append(toks, token{kind: tkOp, text: string(r), pos: i})
				i++
			default:
				return nil, &SyntaxError{Pos: i, Fragment: string(r), Msg: fmt.Sprintf("unexpected character %q", r)}
			}
		}
	}
	toks = append(toks, token{kind: tkEOF, pos: len(rs)})
	return toks, nil
}

// scanNumber consumes digits, an optional fraction and an optional exponent.
// An 'e' not followed by digits is left for the identifier scanner, so 2exp(x) and 2e^x lex as products.
func scanNumber(rs []rune, i int) int {
	for i < len(rs) && unicode.IsDigit(rs[i]) {
		i++
	}
	if i < len(rs) && rs[i] == '.' {
		i++
		for i < len(rs) && unicode.IsDigit(rs[i]) {
			i++
		}
	}
	if i < len(rs) && (rs[i] == 'e' || rs[i] == 'E') {
		j := i + 1
		if j < len(rs) && (rs[j] == '+' || rs[j] == '-') {
			j++
		}
		if j < len(rs) && unicode.IsDigit(rs[j]) {
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			i = j
		}
	}
	return i
}
