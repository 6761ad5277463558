package expr

import (
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

var latexFuncs = map[string]string{
	"sin": `\sin`, "cos": `\cos`, "tan": `\tan`, "log": `\log`,
	"asin": `\operatorname{asin}`, "acos": `\operatorname{acos}`, "atan": `\operatorname{atan}`,
	"sec": `\sec`, "csc": `\csc`, "cot": `\cot`,
	"sinh": `\sinh`, "cosh": `\cosh`, "tanh": `\tanh`,
}

// LaTeX renders e as a LaTeX math fragment.
func LaTeX(e Expr) string {
	var b strings.Builder
	writeLaTeX(&b, e)
	return b.String()
}

// LaTeX renders the equation as "lhs = rhs".
func (e *Equation) LaTeX() string {
	if e.RHS == nil {
		return LaTeX(e.LHS)
	}
	return LaTeX(e.LHS) + " = " + LaTeX(e.RHS)
}

func writeLaTeX(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Num:
		b.WriteString(latexRat(n.V))
	case *Sym:
		b.WriteString(latexSym(n.Name))
	case *Const:
		if n.Name == "pi" {
			b.WriteString(`\pi`)
		} else {
			b.WriteString("e")
		}
	case *Dep:
		applied := n.Name + `{\left(` + n.Var + ` \right)}`
		switch n.Order {
		case 0:
			b.WriteString(applied)
		case 1:
			b.WriteString(`\frac{d}{d ` + n.Var + `} ` + applied)
		default:
			k := strconv.Itoa(n.Order)
			b.WriteString(`\frac{d^{` + k + `}}{d ` + n.Var + `^{` + k + `}} ` + applied)
		}
	case *Call:
		latexCall(b, n)
	case *Neg:
		b.WriteByte('-')
		latexChild(b, n.X, n.X.prec() < precProduct || isNegative(n.X))
	case *Binary:
		latexBinary(b, n)
	}
}

func latexCall(b *strings.Builder, n *Call) {
	switch n.Fn {
	case "exp":
		b.WriteString("e^{")
		writeLaTeX(b, n.Arg)
		b.WriteByte('}')
	case "sqrt":
		b.WriteString(`\sqrt{`)
		writeLaTeX(b, n.Arg)
		b.WriteByte('}')
	case "abs":
		b.WriteString(`\left|{`)
		writeLaTeX(b, n.Arg)
		b.WriteString(`}\right|`)
	default:
		name, ok := latexFuncs[n.Fn]
		if !ok {
			name = `\operatorname{` + n.Fn + `}`
		}
		b.WriteString(name + `{\left(`)
		writeLaTeX(b, n.Arg)
		b.WriteString(` \right)}`)
	}
}

func latexBinary(b *strings.Builder, n *Binary) {
	switch n.Op {
	case OpDiv:
		b.WriteString(`\frac{`)
		writeLaTeX(b, n.L)
		b.WriteString("}{")
		writeLaTeX(b, n.R)
		b.WriteByte('}')
	case OpPow:
		if r, ok := n.R.(*Num); ok && r.V.Cmp(big.NewRat(1, 2)) == 0 {
			b.WriteString(`\sqrt{`)
			writeLaTeX(b, n.L)
			b.WriteByte('}')
			return
		}
		latexChild(b, n.L, n.L.prec() < precAtom || isExp(n.L))
		b.WriteString("^{")
		writeLaTeX(b, n.R)
		b.WriteByte('}')
	case OpMul:
		latexChild(b, n.L, n.L.prec() < precProduct)
		var r strings.Builder
		latexChild(&r, n.R, n.R.prec() < precProduct || isNegative(n.R))
		rs := r.String()
		if rs != "" && (unicode.IsDigit(rune(rs[0])) || rs[0] == '\\' && strings.HasPrefix(rs, `\frac`)) {
			b.WriteString(` \cdot `)
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(rs)
	default:
		writeLaTeX(b, n.L)
		b.WriteString(" " + string(rune(n.Op)) + " ")
		latexChild(b, n.R, n.R.prec() <= precSum || isNegative(n.R))
	}
}

func latexChild(b *strings.Builder, e Expr, paren bool) {
	if paren {
		b.WriteString(`\left(`)
	}
	writeLaTeX(b, e)
	if paren {
		b.WriteString(`\right)`)
	}
}

func isNegative(e Expr) bool {
	return canonical.leadsWithMinus(e)
}

func isExp(e Expr) bool {
	c, ok := e.(*Call)
	return ok && c.Fn == "exp"
}

func latexRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	if _, ok := decimalDigits(r.Denom()); ok {
		return ratString(r)
	}
	num := new(big.Int).Abs(r.Num())
	s := `\frac{` + num.String() + "}{" + r.Denom().String() + "}"
	if r.Sign() < 0 {
		return "-" + s
	}
	return s
}

// latexSym subscripts trailing digits: C1 becomes C_{1}.
func latexSym(name string) string {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(name) {
		return name
	}
	return name[:i] + "_{" + name[i:] + "}"
}
