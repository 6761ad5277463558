package expr

import "math/big"

// Integrate returns an antiderivative of e with respect to v, without a
// constant. It covers power rules, substitutions of the form k*f(u)*u',
// polynomial-times-exponential and polynomial-times-trig by parts, exp*trig
// products and 1/(a*v^2+c). The second result is false for anything else.
func Integrate(e Expr, v string) (Expr, bool) {
	p := toPoly(e)
	if p.isZero() {
		return Int(0), true
	}
	var out Expr
	for _, t := range p.terms {
		r, ok := integrateTerm(t, v)
		if !ok {
			return nil, false
		}
		if out == nil {
			out = r
		} else {
			out = Add(out, r)
		}
	}
	return Simplify(out), true
}

func single(t term) Expr { return fromPoly(normalize([]term{t})) }

func integrateTerm(t term, v string) (Expr, bool) {
	c := term{coef: t.coef}
	d := term{coef: big.NewRat(1, 1)}
	for _, f := range t.factors {
		if DependsOn(f.base, v) {
			d.factors = append(d.factors, f)
		} else {
			c.factors = append(c.factors, f)
		}
	}
	if t.exp != nil {
		if DependsOn(fromPoly(t.exp), v) {
			d.exp = t.exp
		} else {
			c.exp = t.exp
		}
	}
	r, ok := integrateDep(d, v)
	if !ok {
		return nil, false
	}
	return Mul(single(c), r), true
}

func integrateDep(d term, v string) (Expr, bool) {
	x := &Sym{Name: v}
	if len(d.factors) == 0 && d.exp == nil {
		return x, true
	}
	if len(d.factors) == 1 && d.exp == nil {
		if s, ok := d.factors[0].base.(*Sym); ok && s.Name == v {
			return powerRule(x, d.factors[0].pow), true
		}
	}
	// k * B^n * B'
	for i, f := range d.factors {
		rest := d
		rest.factors = without(d.factors, i)
		if k, ok := Ratio(single(rest), Diff(f.base, v)); ok {
			return Mul(RatNum(k), powerRule(f.base, f.pow)), true
		}
	}
	// k * exp(A) * A'
	if d.exp != nil {
		rest := d
		rest.exp = nil
		a := fromPoly(d.exp)
		if k, ok := Ratio(single(rest), Diff(a, v)); ok {
			return Mul(RatNum(k), Fn("exp", a)), true
		}
	}
	// k * f(u) * u'
	for i, f := range d.factors {
		call, ok := f.base.(*Call)
		if !ok || f.pow.Cmp(ratOne) != 0 || d.exp != nil {
			continue
		}
		anti, ok := callAntiderivative(call)
		if !ok {
			continue
		}
		rest := d
		rest.factors = without(d.factors, i)
		if k, ok := Ratio(single(rest), Diff(call.Arg, v)); ok {
			return Mul(RatNum(k), anti), true
		}
	}
	if r, ok := byParts(d, v); ok {
		return r, true
	}
	return inverseQuadratic(d, v)
}

func powerRule(b Expr, n *big.Rat) Expr {
	if n.Cmp(big.NewRat(-1, 1)) == 0 {
		return Fn("log", b)
	}
	m := new(big.Rat).Add(n, ratOne)
	return Div(Pow(b, RatNum(m)), RatNum(m))
}

func without(fs []factor, i int) []factor {
	out := make([]factor, 0, len(fs)-1)
	out = append(out, fs[:i]...)
	return append(out, fs[i+1:]...)
}

func callAntiderivative(c *Call) (Expr, bool) {
	u := c.Arg
	switch c.Fn {
	case "sin":
		return Negate(Fn("cos", u)), true
	case "cos":
		return Fn("sin", u), true
	case "sinh":
		return Fn("cosh", u), true
	case "cosh":
		return Fn("sinh", u), true
	case "tan":
		return Negate(Fn("log", Fn("cos", u))), true
	}
	return nil, false
}

// linearCoeff returns a when e = a*v + b with a, b free of v.
func linearCoeff(e Expr, v string) (Expr, bool) {
	cs, ok := CoeffsIn(e, &Sym{Name: v})
	if !ok {
		return nil, false
	}
	var a Expr
	for _, c := range cs {
		switch {
		case c.Pow.Sign() == 0:
		case c.Pow.Cmp(ratOne) == 0:
			a = c.Coef
		default:
			return nil, false
		}
		if DependsOn(c.Coef, v) {
			return nil, false
		}
	}
	return a, a != nil
}

// monomial splits d into v^n and the remaining factors.
func monomial(d term, v string) (int64, []factor) {
	var n int64
	var rest []factor
	for _, f := range d.factors {
		if s, ok := f.base.(*Sym); ok && s.Name == v && f.pow.IsInt() && f.pow.Sign() > 0 {
			n = f.pow.Num().Int64()
			continue
		}
		rest = append(rest, f)
	}
	return n, rest
}

func byParts(d term, v string) (Expr, bool) {
	x := &Sym{Name: v}
	n, rest := monomial(d, v)
	switch {
	case d.exp != nil && len(rest) == 0:
		arg := fromPoly(d.exp)
		a, ok := linearCoeff(arg, v)
		if !ok {
			return nil, false
		}
		// x^n e^(ax+b) = e^(ax+b) * sum_k (-1)^k n!/(n-k)! x^(n-k) / a^(k+1)
		var sum Expr = Int(0)
		fall := big.NewInt(1)
		for k := int64(0); k <= n; k++ {
			if k > 0 {
				fall.Mul(fall, big.NewInt(n-k+1))
			}
			c := new(big.Rat).SetInt(fall)
			if k%2 == 1 {
				c.Neg(c)
			}
			sum = Add(sum, Div(Mul(RatNum(c), Pow(x, Int(n-k))), Pow(a, Int(k+1))))
		}
		return Mul(Fn("exp", arg), sum), true
	case d.exp != nil && n == 0 && len(rest) == 1:
		call, ok := rest[0].base.(*Call)
		if !ok || rest[0].pow.Cmp(ratOne) != 0 || (call.Fn != "sin" && call.Fn != "cos") {
			return nil, false
		}
		arg := fromPoly(d.exp)
		a, ok := linearCoeff(arg, v)
		if !ok {
			return nil, false
		}
		c, ok := linearCoeff(call.Arg, v)
		if !ok {
			return nil, false
		}
		den := Add(Pow(a, Int(2)), Pow(c, Int(2)))
		sin, cos := Fn("sin", call.Arg), Fn("cos", call.Arg)
		var num Expr
		if call.Fn == "sin" {
			num = Sub(Mul(a, sin), Mul(c, cos))
		} else {
			num = Add(Mul(a, cos), Mul(c, sin))
		}
		return Div(Mul(Fn("exp", arg), num), den), true
	case d.exp == nil && n > 0 && len(rest) == 1:
		call, ok := rest[0].base.(*Call)
		if !ok || rest[0].pow.Cmp(ratOne) != 0 || (call.Fn != "sin" && call.Fn != "cos") {
			return nil, false
		}
		a, ok := linearCoeff(call.Arg, v)
		if !ok {
			return nil, false
		}
		return polyTrig(n, call.Fn, call.Arg, a, x), true
	}
	return nil, false
}

func polyTrig(n int64, fn string, u, a Expr, x Expr) Expr {
	xn := Pow(x, Int(n))
	if fn == "sin" {
		head := Negate(Div(Mul(xn, Fn("cos", u)), a))
		if n == 0 {
			return head
		}
		return Add(head, Mul(Div(Int(n), a), polyTrig(n-1, "cos", u, a, x)))
	}
	head := Div(Mul(xn, Fn("sin", u)), a)
	if n == 0 {
		return head
	}
	return Sub(head, Mul(Div(Int(n), a), polyTrig(n-1, "sin", u, a, x)))
}

// inverseQuadratic integrates 1/(a*v^2 + c) with a, c > 0.
func inverseQuadratic(d term, v string) (Expr, bool) {
	if len(d.factors) != 1 || d.exp != nil || d.factors[0].pow.Cmp(big.NewRat(-1, 1)) != 0 {
		return nil, false
	}
	cs, ok := CoeffsIn(d.factors[0].base, &Sym{Name: v})
	if !ok || len(cs) != 2 || cs[0].Pow.Sign() != 0 || cs[1].Pow.Cmp(big.NewRat(2, 1)) != 0 {
		return nil, false
	}
	c, ok1 := Constant(cs[0].Coef)
	a, ok2 := Constant(cs[1].Coef)
	if !ok1 || !ok2 || a.Sign() <= 0 || c.Sign() <= 0 {
		return nil, false
	}
	half := RatNum(ratHalf)
	scaleBy := Pow(RatNum(new(big.Rat).Quo(a, c)), half)
	return Div(Fn("atan", Mul(scaleBy, &Sym{Name: v})), Pow(RatNum(new(big.Rat).Mul(a, c)), half)), true
}
