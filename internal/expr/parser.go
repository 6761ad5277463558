package expr

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// ParseEquation parses "lhs = rhs" or a bare expression into an Equation.
func ParseEquation(src string, ctx Context) (*Equation, error) {
	p, err := newParser(src, ctx)
	if err != nil {
		return nil, err
	}
	lhs, err := p.expr(precSum)
	if err != nil {
		return nil, err
	}
	eq := &Equation{LHS: lhs}
	if p.peek().is("=") {
		p.next()
		if eq.RHS, err = p.expr(precSum); err != nil {
			return nil, err
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return eq, nil
}

// ParseExpr parses a single expression; '=' is rejected.
func ParseExpr(src string, ctx Context) (Expr, error) {
	p, err := newParser(src, ctx)
	if err != nil {
		return nil, err
	}
	e, err := p.expr(precSum)
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustParse is ParseExpr for literals known to be valid; it panics on error.
func MustParse(src string, ctx Context) Expr {
	e, err := ParseExpr(src, ctx)
	if err != nil {
		panic(err)
	}
	return e
}

var leibnizRe = regexp.MustCompile(`^d([23]?)([A-Za-z_][A-Za-z0-9_]*)$`)

const maxOrder = 3

type parser struct {
	toks []token
	pos  int
	ctx  Context
}

func newParser(src string, ctx Context) (*parser, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, &SyntaxError{Pos: 0, Fragment: src, Msg: "empty expression"}
	}
	return &parser{toks: toks, ctx: ctx}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tkEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	frag := t.text
	if t.kind == tkEOF {
		frag = "end of input"
	}
	return &SyntaxError{Pos: t.pos, Fragment: frag, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(op string) error {
	t := p.next()
	if !t.is(op) {
		return p.errorf(t, "expected %q", op)
	}
	return nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tkEOF {
		return p.errorf(t, "unexpected token")
	}
	return nil
}

// binaryOp classifies the next token as an infix operator. Juxtaposition of a
// number, identifier or '(' is an implicit product.
func (p *parser) binaryOp(t token) (op Op, prec int, implicit bool) {
	switch t.kind {
	case tkOp:
		switch t.text {
		case "+":
			return OpAdd, precSum, false
		case "-":
			return OpSub, precSum, false
		case "*":
			return OpMul, precProduct, false
		case "/":
			return OpDiv, precProduct, false
		case "^":
			return OpPow, precPower, false
		case "(":
			return OpMul, precProduct, true
		}
	case tkNum, tkIdent:
		return OpMul, precProduct, true
	}
	return 0, 0, false
}

func (p *parser) expr(min int) (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec, implicit := p.binaryOp(p.peek())
		if prec == 0 || prec < min {
			return left, nil
		}
		if !implicit {
			p.next()
		}
		next := prec + 1
		if op == OpPow {
			next = precPower
		}
		right, err := p.expr(next)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	if t.is("-") || t.is("+") {
		p.next()
		x, err := p.expr(precUnary)
		if err != nil {
			return nil, err
		}
		if t.is("+") {
			return x, nil
		}
		return &Neg{X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tkNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, p.errorf(t, "invalid number")
		}
		return &Num{V: r}, nil
	case tkIdent:
		return p.ident(t)
	case tkOp:
		if t.is("(") {
			e, err := p.expr(precSum)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
		return nil, p.errorf(t, "unexpected operator")
	}
	return nil, p.errorf(t, "unexpected end of input")
}

func (p *parser) ident(t token) (Expr, error) {
	name := t.text
	switch {
	case name == "Derivative":
		return p.derivativeCall(t)
	case p.ctx.IsFunc(name):
		return p.depRef(name, t)
	case name == p.ctx.Var:
		return &Sym{Name: name}, nil
	}
	if fn, ok := elementary[name]; ok {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		arg, err := p.expr(precSum)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return &Call{Fn: fn, Arg: arg}, nil
	}
	if c, ok := constants[name]; ok {
		return &Const{Name: c}, nil
	}
	if m := leibnizRe.FindStringSubmatch(name); m != nil && p.ctx.IsFunc(m[2]) {
		return p.leibniz(t, m[2], m[1])
	}
	if parts, ok := p.splitSymbols(name); ok {
		p.splice(t, parts)
		return p.primary()
	}
	return &Sym{Name: name}, nil
}

// depRef parses y, y', y'' or y'''; an optional (x) application follows the primes.
func (p *parser) depRef(name string, t token) (Expr, error) {
	order := 0
	for p.peek().is("'") {
		p.next()
		order++
	}
	if order > maxOrder {
		return nil, p.errorf(t, "derivative order %d above %d", order, maxOrder)
	}
	if p.peek().is("(") {
		open := p.next()
		arg, err := p.expr(precSum)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		if s, ok := arg.(*Sym); !ok || s.Name != p.ctx.Var {
			return nil, p.errorf(open, "%s must be applied to %s", name, p.ctx.Var)
		}
	}
	return p.ctx.Dep(name, order), nil
}

// leibniz parses dy/dx and d2y/dx2 once the numerator identifier is consumed.
func (p *parser) leibniz(t token, fn, digits string) (Expr, error) {
	if !p.peek().is("/") {
		return nil, p.errorf(t, "incomplete derivative notation")
	}
	p.next()
	den := p.next()
	if den.kind != tkIdent || den.text != "d"+p.ctx.Var+digits {
		return nil, p.errorf(den, "expected d%s%s", p.ctx.Var, digits)
	}
	order := 1
	if digits != "" {
		order, _ = strconv.Atoi(digits)
	}
	return p.ctx.Dep(fn, order), nil
}

// derivativeCall parses Derivative(y(x),x), Derivative(y(x),x,2) and Derivative(y(x),x,x).
func (p *parser) derivativeCall(t token) (Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	inner, err := p.expr(precSum)
	if err != nil {
		return nil, err
	}
	dep, ok := inner.(*Dep)
	if !ok {
		return nil, p.errorf(t, "Derivative expects a dependent function")
	}
	order := dep.Order
	for p.peek().is(",") {
		p.next()
		arg := p.next()
		switch {
		case arg.kind == tkIdent && arg.text == p.ctx.Var:
			if p.peek().is(",") && p.toks[p.pos+1].kind == tkNum {
				p.next()
				n := p.next()
				k, err := strconv.Atoi(n.text)
				if err != nil || k < 1 {
					return nil, p.errorf(n, "invalid derivative count")
				}
				order += k
			} else {
				order++
			}
		default:
			return nil, p.errorf(arg, "expected %s", p.ctx.Var)
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if order == dep.Order {
		order++
	}
	if order > maxOrder {
		return nil, p.errorf(t, "derivative order %d above %d", order, maxOrder)
	}
	return p.ctx.Dep(dep.Name, order), nil
}

// splitSymbols breaks an unknown identifier such as "xy" into known single-letter names.
func (p *parser) splitSymbols(name string) ([]string, bool) {
	rs := []rune(name)
	if len(rs) < 2 {
		return nil, false
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		s := string(r)
		if s != p.ctx.Var && !p.ctx.IsFunc(s) {
			return nil, false
		}
		parts[i] = s
	}
	return parts, true
}

// splice replaces the just-consumed token t with one identifier per part, so
// the implicit product loop sees "xy" as "x y".
func (p *parser) splice(t token, parts []string) {
	at := p.pos - 1
	toks := make([]token, 0, len(p.toks)+len(parts)-1)
	toks = append(toks, p.toks[:at]...)
	for i, s := range parts {
		toks = append(toks, token{kind: tkIdent, text: s, pos: t.pos + i})
	}
	toks = append(toks, p.toks[at+1:]...)
	p.toks = toks
	p.pos = at
}
