package expr

import "math/big"

// Expr is a node of the symbolic expression tree. Trees are immutable once built.
type Expr interface {
	prec() int
}

// Op is a binary operator.
type Op byte

const (
	OpAdd Op = '+'
	OpSub Op = '-'
	OpMul Op = '*'
	OpDiv Op = '/'
	OpPow Op = '^'
)

const (
	precSum = iota + 1
	precProduct
	precUnary
	precPower
	precAtom
)

// Num is an exact rational literal.
type Num struct{ V *big.Rat }

// Sym is a free symbol: the independent variable, a parameter or an integration constant.
type Sym struct{ Name string }

// Const is a named mathematical constant (pi, E).
type Const struct{ Name string }

// Dep is a dependent function applied to the independent variable, differentiated Order times.
// Order 0 is the plain applied form y(x).
type Dep struct {
	Name  string
	Var   string
	Order int
}

// Call applies an elementary function to a single argument.
type Call struct {
	Fn  string
	Arg Expr
}

// Neg is unary negation.
type Neg struct{ X Expr }

// Binary is a binary operation.
type Binary struct {
	Op   Op
	L, R Expr
}

// Equation is LHS = RHS. RHS is nil when the source had no '='.
type Equation struct {
	LHS, RHS Expr
}

func (n *Num) prec() int {
	switch {
	case n.V.Sign() < 0:
		return precUnary
	case !n.V.IsInt() && !finiteDecimal(n.V):
		return precProduct
	}
	return precAtom
}
func (*Sym) prec() int   { return precAtom }
func (*Const) prec() int { return precAtom }
func (*Dep) prec() int   { return precAtom }
func (*Call) prec() int  { return precAtom }
func (*Neg) prec() int   { return precUnary }
func (b *Binary) prec() int {
	return opPrec(b.Op)
}

func opPrec(op Op) int {
	switch op {
	case OpAdd, OpSub:
		return precSum
	case OpMul, OpDiv:
		return precProduct
	}
	return precPower
}

// Int returns the integer literal n.
func Int(n int64) *Num { return &Num{V: new(big.Rat).SetInt64(n)} }

// Frac returns the rational literal p/q.
func Frac(p, q int64) *Num { return &Num{V: big.NewRat(p, q)} }

// RatNum wraps a copy of r.
func RatNum(r *big.Rat) *Num { return &Num{V: new(big.Rat).Set(r)} }

// Add, Sub, Mul, Div and Pow build binary nodes without simplifying.
func Add(l, r Expr) Expr { return &Binary{Op: OpAdd, L: l, R: r} }
func Sub(l, r Expr) Expr { return &Binary{Op: OpSub, L: l, R: r} }
func Mul(l, r Expr) Expr { return &Binary{Op: OpMul, L: l, R: r} }
func Div(l, r Expr) Expr { return &Binary{Op: OpDiv, L: l, R: r} }
func Pow(l, r Expr) Expr { return &Binary{Op: OpPow, L: l, R: r} }

// Negate builds -x.
func Negate(x Expr) Expr { return &Neg{X: x} }

// Fn builds fn(arg).
func Fn(fn string, arg Expr) Expr { return &Call{Fn: fn, Arg: arg} }

// Residual returns LHS - RHS, or LHS when the equation has no right side.
func (e *Equation) Residual() Expr {
	if e.RHS == nil {
		return e.LHS
	}
	return Sub(e.LHS, e.RHS)
}

// IsEquality reports whether the equation had an explicit '='.
func (e *Equation) IsEquality() bool { return e.RHS != nil }

func finiteDecimal(r *big.Rat) bool {
	d := new(big.Int).Set(r.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	m := new(big.Int)
	for {
		if m.Mod(d, two).Sign() == 0 {
			d.Quo(d, two)
			continue
		}
		if m.Mod(d, five).Sign() == 0 {
			d.Quo(d, five)
			continue
		}
		break
	}
	return d.Cmp(big.NewInt(1)) == 0
}
