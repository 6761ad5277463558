package expr

import (
	"math/big"
	"strconv"
	"strings"
)

type style struct {
	pow, mul string
	spaced   bool
	deps     func(*Dep) string
}

var canonical = style{
	pow: "**",
	mul: "*",
	deps: func(d *Dep) string {
		switch d.Order {
		case 0:
			return d.Name + "(" + d.Var + ")"
		case 1:
			return "Derivative(" + d.Name + "(" + d.Var + ")," + d.Var + ")"
		}
		return "Derivative(" + d.Name + "(" + d.Var + ")," + d.Var + "," + strconv.Itoa(d.Order) + ")"
	},
}

var display = style{
	pow:    "^",
	mul:    "·",
	spaced: true,
	deps: func(d *Dep) string {
		return d.Name + strings.Repeat("'", d.Order)
	},
}

// String renders e in the canonical grammar. Parsing the result yields a tree
// that prints back to the same text.
func String(e Expr) string {
	var b strings.Builder
	canonical.write(&b, e)
	return b.String()
}

// Text renders e for people: ^ for powers, · for products, y' for derivatives.
func Text(e Expr) string {
	var b strings.Builder
	display.write(&b, e)
	return b.String()
}

// String renders the equation canonically as "lhs=rhs".
func (e *Equation) String() string {
	if e.RHS == nil {
		return String(e.LHS)
	}
	return String(e.LHS) + "=" + String(e.RHS)
}

// Text renders the equation for people as "lhs = rhs".
func (e *Equation) Text() string {
	if e.RHS == nil {
		return Text(e.LHS)
	}
	return Text(e.LHS) + " = " + Text(e.RHS)
}

func (s style) write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Num:
		b.WriteString(ratString(n.V))
	case *Sym:
		b.WriteString(n.Name)
	case *Const:
		b.WriteString(n.Name)
	case *Dep:
		b.WriteString(s.deps(n))
	case *Call:
		b.WriteString(n.Fn)
		b.WriteByte('(')
		s.write(b, n.Arg)
		b.WriteByte(')')
	case *Neg:
		b.WriteByte('-')
		s.child(b, n.X, n.X.prec() < precPower || s.leadsWithMinus(n.X))
	case *Binary:
		s.binary(b, n)
	}
}

func (s style) binary(b *strings.Builder, n *Binary) {
	op := opPrec(n.Op)
	if n.Op == OpPow {
		s.child(b, n.L, n.L.prec() < precAtom)
		b.WriteString(s.pow)
		s.child(b, n.R, n.R.prec() < precPower || s.leadsWithMinus(n.R))
		return
	}
	s.child(b, n.L, n.L.prec() < op)
	switch n.Op {
	case OpMul:
		b.WriteString(s.mul)
	case OpAdd, OpSub:
		if s.spaced {
			b.WriteString(" " + string(rune(n.Op)) + " ")
		} else {
			b.WriteByte(byte(n.Op))
		}
	default:
		b.WriteByte(byte(n.Op))
	}
	s.child(b, n.R, n.R.prec() <= op || s.leadsWithMinus(n.R))
}

func (s style) child(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	s.write(b, e)
	if paren {
		b.WriteByte(')')
	}
}

// leadsWithMinus reports whether the printed form of e starts with '-'.
func (s style) leadsWithMinus(e Expr) bool {
	for {
		switch n := e.(type) {
		case *Neg:
			return true
		case *Num:
			return n.V.Sign() < 0
		case *Binary:
			if n.Op == OpPow {
				if n.L.prec() < precAtom {
					return false
				}
			} else if n.L.prec() < opPrec(n.Op) {
				return false
			}
			e = n.L
		default:
			return false
		}
	}
}

func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	if digits, ok := decimalDigits(r.Denom()); ok {
		out := r.FloatString(digits)
		out = strings.TrimRight(out, "0")
		return strings.TrimSuffix(out, ".")
	}
	return r.String()
}

// decimalDigits returns the number of fractional digits needed to print 1/d exactly.
func decimalDigits(d *big.Int) (int, bool) {
	ten := big.NewInt(10)
	p := big.NewInt(1)
	m := new(big.Int)
	for k := 0; k <= 64; k++ {
		if m.Mod(p, d).Sign() == 0 {
			return k, true
		}
		p.Mul(p, ten)
	}
	return 0, false
}
