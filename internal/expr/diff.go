package expr

// Diff differentiates e with respect to v. A dependent function of v has its
// order raised; symbols other than v are constants. The result is not simplified.
func Diff(e Expr, v string) Expr {
	if !DependsOn(e, v) {
		return Int(0)
	}
	switch n := e.(type) {
	case *Sym:
		return Int(1)
	case *Dep:
		if n.Var == v {
			return &Dep{Name: n.Name, Var: n.Var, Order: n.Order + 1}
		}
		return Int(1)
	case *Neg:
		return Negate(Diff(n.X, v))
	case *Call:
		return Mul(callDeriv(n.Fn, n.Arg), Diff(n.Arg, v))
	case *Binary:
		dl, dr := Diff(n.L, v), Diff(n.R, v)
		switch n.Op {
		case OpAdd:
			return Add(dl, dr)
		case OpSub:
			return Sub(dl, dr)
		case OpMul:
			return Add(Mul(dl, n.R), Mul(n.L, dr))
		case OpDiv:
			return Div(Sub(Mul(dl, n.R), Mul(n.L, dr)), Pow(n.R, Int(2)))
		case OpPow:
			switch {
			case !DependsOn(n.R, v):
				return Mul(Mul(n.R, Pow(n.L, Sub(n.R, Int(1)))), dl)
			case !DependsOn(n.L, v):
				return Mul(Mul(e, Fn("log", n.L)), dr)
			}
			return Mul(e, Add(Mul(dr, Fn("log", n.L)), Div(Mul(n.R, dl), n.L)))
		}
	}
	return Int(0)
}

func callDeriv(fn string, u Expr) Expr {
	one := Int(1)
	switch fn {
	case "sin":
		return Fn("cos", u)
	case "cos":
		return Negate(Fn("sin", u))
	case "tan":
		return Div(one, Pow(Fn("cos", u), Int(2)))
	case "exp":
		return Fn("exp", u)
	case "log":
		return Div(one, u)
	case "sqrt":
		return Div(one, Mul(Int(2), Fn("sqrt", u)))
	case "asin":
		return Div(one, Fn("sqrt", Sub(one, Pow(u, Int(2)))))
	case "acos":
		return Negate(Div(one, Fn("sqrt", Sub(one, Pow(u, Int(2))))))
	case "atan":
		return Div(one, Add(one, Pow(u, Int(2))))
	case "sinh":
		return Fn("cosh", u)
	case "cosh":
		return Fn("sinh", u)
	case "tanh":
		return Sub(one, Pow(Fn("tanh", u), Int(2)))
	case "sec":
		return Mul(Fn("sec", u), Fn("tan", u))
	case "csc":
		return Negate(Mul(Fn("csc", u), Fn("cot", u)))
	case "cot":
		return Negate(Add(one, Pow(Fn("cot", u), Int(2))))
	case "abs":
		return Div(u, Fn("abs", u))
	}
	return Int(0)
}
