package expr

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// The normal form is a sum of terms; each term is a rational coefficient times a
// sorted product of factors raised to rational powers, times at most one exp().
// Multi-term sums only appear as factors when they cannot be expanded
// (negative or fractional powers); such sums are stored monic with their
// content pulled out, so proportional sums share a key and cancel.

type factor struct {
	key  string
	base Expr
	pow  *big.Rat
}

type term struct {
	coef    *big.Rat
	factors []factor
	exp     *poly
}

type poly struct{ terms []term }

var (
	ratOne  = big.NewRat(1, 1)
	ratHalf = big.NewRat(1, 2)
)

func constPoly(r *big.Rat) *poly {
	if r.Sign() == 0 {
		return &poly{}
	}
	return &poly{terms: []term{{coef: new(big.Rat).Set(r)}}}
}

func atomPoly(e Expr) *poly {
	return &poly{terms: []term{{
		coef:    big.NewRat(1, 1),
		factors: []factor{{key: String(e), base: e, pow: big.NewRat(1, 1)}},
	}}}
}

func (p *poly) isZero() bool { return len(p.terms) == 0 }

// rational returns the value of a constant polynomial.
func (p *poly) rational() (*big.Rat, bool) {
	switch {
	case len(p.terms) == 0:
		return new(big.Rat), true
	case len(p.terms) == 1 && len(p.terms[0].factors) == 0 && p.terms[0].exp == nil:
		return p.terms[0].coef, true
	}
	return nil, false
}

func (t term) key() string {
	var b strings.Builder
	for _, f := range t.factors {
		b.WriteString(f.key)
		b.WriteByte('^')
		b.WriteString(f.pow.RatString())
		b.WriteByte(';')
	}
	if t.exp != nil {
		b.WriteString("exp(")
		b.WriteString(String(fromPoly(t.exp)))
		b.WriteByte(')')
	}
	return b.String()
}

func (t term) degree() float64 {
	d := 0.0
	for _, f := range t.factors {
		v, _ := f.pow.Float64()
		d += v
	}
	if t.exp != nil {
		d += 0.5
	}
	return d
}

func (t term) factor(key string) (factor, bool) {
	for _, f := range t.factors {
		if f.key == key {
			return f, true
		}
	}
	return factor{}, false
}

func normalize(ts []term) *poly {
	idx := map[string]int{}
	var out []term
	var keys []string
	for _, t := range ts {
		if t.coef.Sign() == 0 {
			continue
		}
		k := t.key()
		if i, ok := idx[k]; ok {
			out[i].coef = new(big.Rat).Add(out[i].coef, t.coef)
			continue
		}
		idx[k] = len(out)
		out = append(out, term{coef: new(big.Rat).Set(t.coef), factors: t.factors, exp: t.exp})
		keys = append(keys, k)
	}
	type keyed struct {
		t   term
		key string
		deg float64
	}
	kept := make([]keyed, 0, len(out))
	for i, t := range out {
		if t.coef.Sign() != 0 {
			kept = append(kept, keyed{t: t, key: keys[i], deg: t.degree()})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].deg != kept[j].deg {
			return kept[i].deg > kept[j].deg
		}
		return kept[i].key < kept[j].key
	})
	p := &poly{terms: make([]term, len(kept))}
	for i, k := range kept {
		p.terms[i] = k.t
	}
	return p
}

func add(p, q *poly) *poly {
	ts := make([]term, 0, len(p.terms)+len(q.terms))
	ts = append(ts, p.terms...)
	ts = append(ts, q.terms...)
	return normalize(ts)
}

func scale(p *poly, r *big.Rat) *poly {
	ts := make([]term, len(p.terms))
	for i, t := range p.terms {
		ts[i] = term{coef: new(big.Rat).Mul(t.coef, r), factors: t.factors, exp: t.exp}
	}
	return normalize(ts)
}

func mulTerm(a, b term) term {
	out := term{coef: new(big.Rat).Mul(a.coef, b.coef)}
	i, j := 0, 0
	for i < len(a.factors) || j < len(b.factors) {
		switch {
		case j == len(b.factors) || (i < len(a.factors) && a.factors[i].key < b.factors[j].key):
			out.factors = append(out.factors, a.factors[i])
			i++
		case i == len(a.factors) || b.factors[j].key < a.factors[i].key:
			out.factors = append(out.factors, b.factors[j])
			j++
		default:
			p := new(big.Rat).Add(a.factors[i].pow, b.factors[j].pow)
			if p.Sign() != 0 {
				f := a.factors[i]
				f.pow = p
				out.factors = append(out.factors, f)
			}
			i++
			j++
		}
	}
	out = foldNumericFactors(out)
	switch {
	case a.exp == nil:
		out.exp = b.exp
	case b.exp == nil:
		out.exp = a.exp
	default:
		if s := add(a.exp, b.exp); !s.isZero() {
			out.exp = s
		}
	}
	return out
}

// foldNumericFactors moves numeric bases whose power became rational into the coefficient.
func foldNumericFactors(t term) term {
	kept := t.factors[:0:0]
	for _, f := range t.factors {
		if n, ok := f.base.(*Num); ok {
			if r, ok := ratPow(n.V, f.pow); ok {
				t.coef = new(big.Rat).Mul(t.coef, r)
				continue
			}
		}
		kept = append(kept, f)
	}
	t.factors = kept
	return t
}

func mul(p, q *poly) *poly {
	if p.isZero() || q.isZero() {
		return &poly{}
	}
	if len(p.terms) == 1 && len(q.terms) > 1 {
		if r, ok := absorb(p.terms[0], q); ok {
			return r
		}
	}
	if len(q.terms) == 1 && len(p.terms) > 1 {
		if r, ok := absorb(q.terms[0], p); ok {
			return r
		}
	}
	ts := make([]term, 0, len(p.terms)*len(q.terms))
	for _, a := range p.terms {
		for _, b := range q.terms {
			ts = append(ts, mulTerm(a, b))
		}
	}
	return normalize(ts)
}

// absorb multiplies t by the sum s when t already carries s (up to content) as a factor.
func absorb(t term, s *poly) (*poly, bool) {
	c, rest := content(s)
	f := sumFactor(rest, ratOne)
	if _, ok := t.factor(f.key); !ok {
		return nil, false
	}
	out := mulTerm(mulTerm(t, c), term{coef: big.NewRat(1, 1), factors: []factor{f}})
	return normalize([]term{out}), true
}

func sumFactor(s *poly, pow *big.Rat) factor {
	base := fromPoly(s)
	return factor{key: String(base), base: base, pow: new(big.Rat).Set(pow)}
}

// content splits a multi-term sum into common part times a monic sum.
func content(p *poly) (term, *poly) {
	first := p.terms[0]
	common := term{coef: new(big.Rat).Set(first.coef)}
	for _, f := range first.factors {
		pow := f.pow
		shared := true
		for _, t := range p.terms[1:] {
			g, ok := t.factor(f.key)
			if !ok || g.pow.Sign() != f.pow.Sign() {
				shared = false
				break
			}
			if new(big.Rat).Abs(g.pow).Cmp(new(big.Rat).Abs(pow)) < 0 {
				pow = g.pow
			}
		}
		if shared {
			common.factors = append(common.factors, factor{key: f.key, base: f.base, pow: pow})
		}
	}
	inv := term{coef: new(big.Rat).Inv(common.coef)}
	for _, f := range common.factors {
		inv.factors = append(inv.factors, factor{key: f.key, base: f.base, pow: new(big.Rat).Neg(f.pow)})
	}
	ts := make([]term, len(p.terms))
	for i, t := range p.terms {
		ts[i] = mulTerm(t, inv)
	}
	rest := normalize(ts)
	if lead := rest.terms[0].coef; lead.Cmp(ratOne) != 0 {
		common.coef = new(big.Rat).Mul(common.coef, lead)
		rest = scale(rest, new(big.Rat).Inv(lead))
	}
	return common, rest
}

func powRat(p *poly, k *big.Rat) *poly {
	switch {
	case k.Sign() == 0:
		return constPoly(ratOne)
	case p.isZero():
		if k.Sign() > 0 {
			return &poly{}
		}
		return &poly{terms: []term{{coef: big.NewRat(1, 1), factors: []factor{{key: "0", base: Int(0), pow: new(big.Rat).Set(k)}}}}}
	case len(p.terms) == 1:
		t := p.terms[0]
		if k.IsInt() || t.coef.Sign() > 0 || (len(t.factors) == 0 && t.exp == nil) {
			return normalize([]term{powTerm(t, k)})
		}
		// (-a·f)^k with fractional k: only a^k comes out, the sign stays with f.
		abs := term{coef: new(big.Rat).Abs(t.coef)}
		inner := t
		inner.coef = big.NewRat(-1, 1)
		out := mulTerm(powTerm(abs, k), term{coef: big.NewRat(1, 1), factors: []factor{sumFactor(&poly{terms: []term{inner}}, k)}})
		return normalize([]term{out})
	}
	if k.IsInt() && k.Sign() > 0 && k.Num().Int64() <= 10 {
		out := p
		for i := int64(1); i < k.Num().Int64(); i++ {
			out = mul(out, p)
		}
		return out
	}
	c, rest := content(p)
	if !k.IsInt() && c.coef.Sign() < 0 {
		// A negative content under a fractional power stays inside the sum.
		c.coef = new(big.Rat).Neg(c.coef)
		rest = scale(rest, big.NewRat(-1, 1))
	}
	t := mulTerm(powTerm(c, k), term{coef: big.NewRat(1, 1), factors: []factor{sumFactor(rest, k)}})
	return normalize([]term{t})
}

func powTerm(t term, k *big.Rat) term {
	out := term{coef: big.NewRat(1, 1)}
	var numeric *factor
	if r, ok := ratPow(t.coef, k); ok {
		out.coef = r
	} else {
		numeric = &factor{key: ratString(t.coef), base: RatNum(t.coef), pow: new(big.Rat).Set(k)}
	}
	for _, f := range t.factors {
		out.factors = append(out.factors, factor{key: f.key, base: f.base, pow: new(big.Rat).Mul(f.pow, k)})
	}
	if numeric != nil {
		out = mulTerm(out, term{coef: big.NewRat(1, 1), factors: []factor{*numeric}})
	}
	out = foldNumericFactors(out)
	if t.exp != nil {
		out.exp = scale(t.exp, k)
	}
	return out
}

// ratPow computes r^k exactly when the result is rational.
func ratPow(r, k *big.Rat) (*big.Rat, bool) {
	if r.Sign() == 0 {
		return new(big.Rat), k.Sign() > 0
	}
	num, den := new(big.Int).Set(r.Num()), new(big.Int).Set(r.Denom())
	if !k.IsInt() {
		q := k.Denom()
		if !q.IsInt64() || q.Int64() > 16 {
			return nil, false
		}
		neg := num.Sign() < 0
		if neg && q.Bit(0) == 0 {
			return nil, false
		}
		rn, ok := intRoot(new(big.Int).Abs(num), q.Int64())
		if !ok {
			return nil, false
		}
		rd, ok := intRoot(den, q.Int64())
		if !ok {
			return nil, false
		}
		if neg {
			rn.Neg(rn)
		}
		num, den = rn, rd
	}
	e := new(big.Int).Abs(k.Num())
	if e.BitLen() > 16 {
		return nil, false
	}
	num.Exp(num, e, nil)
	den.Exp(den, e, nil)
	out := new(big.Rat).SetFrac(num, den)
	if k.Sign() < 0 {
		out.Inv(out)
	}
	return out, true
}

func intRoot(v *big.Int, q int64) (*big.Int, bool) {
	if q == 2 {
		s := new(big.Int).Sqrt(v)
		return s, new(big.Int).Mul(s, s).Cmp(v) == 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) {
		return nil, false
	}
	guess := int64(math.Round(math.Pow(f, 1/float64(q))))
	for _, g := range []int64{guess - 1, guess, guess + 1} {
		if g < 0 {
			continue
		}
		b := big.NewInt(g)
		if new(big.Int).Exp(b, big.NewInt(q), nil).Cmp(v) == 0 {
			return b, true
		}
	}
	return nil, false
}

func toPoly(e Expr) *poly {
	switch n := e.(type) {
	case *Num:
		return constPoly(n.V)
	case *Sym, *Dep, *Const:
		return atomPoly(n)
	case *Neg:
		return scale(toPoly(n.X), big.NewRat(-1, 1))
	case *Call:
		return callPoly(n)
	case *Binary:
		l := toPoly(n.L)
		switch n.Op {
		case OpAdd:
			return add(l, toPoly(n.R))
		case OpSub:
			return add(l, scale(toPoly(n.R), big.NewRat(-1, 1)))
		case OpMul:
			return mul(l, toPoly(n.R))
		case OpDiv:
			return mul(l, powRat(toPoly(n.R), big.NewRat(-1, 1)))
		case OpPow:
			r := toPoly(n.R)
			if k, ok := r.rational(); ok {
				return powRat(l, k)
			}
			if c, ok := n.L.(*Const); ok && c.Name == "E" {
				return expPoly(r)
			}
			return atomPoly(Pow(fromPoly(l), fromPoly(r)))
		}
	}
	return atomPoly(e)
}

// expPoly builds exp(a), pulling c*log(w) terms out as w^c.
func expPoly(a *poly) *poly {
	out := constPoly(ratOne)
	var rest []term
	for _, t := range a.terms {
		if len(t.factors) == 1 && t.exp == nil && t.factors[0].pow.Cmp(ratOne) == 0 {
			if c, ok := t.factors[0].base.(*Call); ok && c.Fn == "log" {
				out = mul(out, powRat(toPoly(c.Arg), t.coef))
				continue
			}
		}
		rest = append(rest, t)
	}
	if len(rest) == 0 {
		return out
	}
	return mul(out, &poly{terms: []term{{coef: big.NewRat(1, 1), exp: normalize(rest)}}})
}

func callPoly(n *Call) *poly {
	a := toPoly(n.Arg)
	zero := a.isZero()
	switch n.Fn {
	case "exp":
		return expPoly(a)
	case "sqrt":
		return powRat(a, ratHalf)
	case "log":
		if r, ok := a.rational(); ok && r.Cmp(ratOne) == 0 {
			return &poly{}
		}
		if len(a.terms) == 1 {
			t := a.terms[0]
			if t.coef.Cmp(ratOne) == 0 && len(t.factors) == 0 && t.exp != nil {
				return t.exp
			}
			if t.coef.Cmp(ratOne) == 0 && len(t.factors) == 1 && t.exp == nil && t.factors[0].key == "E" {
				return constPoly(t.factors[0].pow)
			}
		}
	case "sin", "tan", "sinh", "tanh", "asin", "atan":
		if zero {
			return &poly{}
		}
	case "cos", "cosh":
		if zero {
			return constPoly(ratOne)
		}
	}
	return atomPoly(&Call{Fn: n.Fn, Arg: fromPoly(a)})
}

func fromPoly(p *poly) Expr {
	if p.isZero() {
		return Int(0)
	}
	var out Expr
	for i, t := range p.terms {
		neg := t.coef.Sign() < 0
		abs := term{coef: new(big.Rat).Abs(t.coef), factors: t.factors, exp: t.exp}
		te := termExpr(abs)
		switch {
		case i == 0 && neg:
			out = negateLeading(te)
		case i == 0:
			out = te
		case neg:
			out = Sub(out, te)
		default:
			out = Add(out, te)
		}
	}
	return out
}

func termExpr(t term) Expr {
	var num, den []Expr
	for _, f := range t.factors {
		if f.pow.Sign() > 0 {
			num = append(num, powExpr(f.base, f.pow))
		} else {
			den = append(den, powExpr(f.base, new(big.Rat).Neg(f.pow)))
		}
	}
	if t.exp != nil {
		num = append(num, Fn("exp", fromPoly(t.exp)))
	}
	if p := t.coef.Num(); !p.IsInt64() || p.Int64() != 1 || len(num) == 0 {
		num = append([]Expr{&Num{V: new(big.Rat).SetInt(p)}}, num...)
	}
	if q := t.coef.Denom(); !q.IsInt64() || q.Int64() != 1 {
		den = append([]Expr{&Num{V: new(big.Rat).SetInt(q)}}, den...)
	}
	n := product(num)
	if len(den) == 0 {
		return n
	}
	return Div(n, product(den))
}

func powExpr(base Expr, r *big.Rat) Expr {
	switch {
	case r.Cmp(ratOne) == 0:
		return base
	case r.Cmp(ratHalf) == 0:
		return Fn("sqrt", base)
	}
	return Pow(base, RatNum(r))
}

func product(fs []Expr) Expr {
	out := fs[0]
	for _, f := range fs[1:] {
		out = Mul(out, f)
	}
	return out
}

func negateLeading(e Expr) Expr {
	switch n := e.(type) {
	case *Binary:
		if n.Op == OpMul || n.Op == OpDiv {
			return &Binary{Op: n.Op, L: negateLeading(n.L), R: n.R}
		}
	case *Num:
		return &Num{V: new(big.Rat).Neg(n.V)}
	}
	return Negate(e)
}

// Simplify returns the normal form of e: expanded, like terms collected,
// exp/log pairs cancelled and proportional sums divided out.
func Simplify(e Expr) Expr { return fromPoly(toPoly(e)) }

// IsZero reports whether e simplifies to 0.
func IsZero(e Expr) bool { return toPoly(e).isZero() }

// Equal reports whether a and b have the same normal form.
func Equal(a, b Expr) bool { return IsZero(Sub(a, b)) }

// Constant returns the rational value of e when it simplifies to a number.
func Constant(e Expr) (*big.Rat, bool) {
	r, ok := toPoly(e).rational()
	if !ok {
		return nil, false
	}
	return new(big.Rat).Set(r), true
}

// Ratio returns a/b when it is a rational constant.
func Ratio(a, b Expr) (*big.Rat, bool) {
	if IsZero(b) {
		return nil, false
	}
	return Constant(Div(a, b))
}

// Terms splits the normal form of e into its additive terms.
func Terms(e Expr) []Expr {
	p := toPoly(e)
	out := make([]Expr, len(p.terms))
	for i, t := range p.terms {
		out[i] = fromPoly(&poly{terms: []term{t}})
	}
	return out
}

// Coeff is the coefficient of one power of a target atom.
type Coeff struct {
	Pow  *big.Rat
	Coef Expr
}

// CoeffsIn collects e by powers of target, in increasing power order. It fails
// when target also occurs inside another factor, such as sin(y) or 1/(x+y).
func CoeffsIn(e, target Expr) ([]Coeff, bool) {
	key := String(target)
	groups := map[string]*Coeff{}
	parts := map[string][]term{}
	for _, t := range toPoly(e).terms {
		pow := new(big.Rat)
		rest := term{coef: t.coef, exp: t.exp}
		if t.exp != nil && mentions(fromPoly(t.exp), key) {
			return nil, false
		}
		for _, f := range t.factors {
			switch {
			case f.key == key:
				pow = f.pow
			case mentions(f.base, key):
				return nil, false
			default:
				rest.factors = append(rest.factors, f)
			}
		}
		k := pow.RatString()
		if _, ok := groups[k]; !ok {
			groups[k] = &Coeff{Pow: pow}
		}
		parts[k] = append(parts[k], rest)
	}
	out := make([]Coeff, 0, len(groups))
	for k, g := range groups {
		g.Coef = fromPoly(normalize(parts[k]))
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pow.Cmp(out[j].Pow) < 0 })
	return out, true
}

func mentions(e Expr, key string) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch n.(type) {
		case *Sym, *Dep, *Const:
			found = found || String(n) == key
		}
		return !found
	})
	return found
}

// Separate writes e as f*g where f does not depend on b and g does not depend
// on a. It reports false when no such split exists in the normal form.
func Separate(e Expr, a, b string) (f, g Expr, ok bool) {
	p := toPoly(e)
	switch {
	case p.isZero():
		return nil, nil, false
	case len(p.terms) == 1:
		return splitTerm(p.terms[0], a, b)
	}
	c, rest := content(p)
	s := fromPoly(rest)
	inA, inB := DependsOn(s, a), DependsOn(s, b)
	if inA && inB {
		return nil, nil, false
	}
	f, g, ok = splitTerm(c, a, b)
	if !ok {
		return nil, nil, false
	}
	if inB {
		return f, Simplify(Mul(g, s)), true
	}
	return Simplify(Mul(f, s)), g, true
}

func splitTerm(t term, a, b string) (Expr, Expr, bool) {
	ft := term{coef: t.coef}
	gt := term{coef: big.NewRat(1, 1)}
	for _, fc := range t.factors {
		inA, inB := DependsOn(fc.base, a), DependsOn(fc.base, b)
		switch {
		case inA && inB:
			return nil, nil, false
		case inB:
			gt.factors = append(gt.factors, fc)
		default:
			ft.factors = append(ft.factors, fc)
		}
	}
	if t.exp != nil {
		var fe, ge []term
		for _, et := range t.exp.terms {
			x := fromPoly(&poly{terms: []term{et}})
			inA, inB := DependsOn(x, a), DependsOn(x, b)
			switch {
			case inA && inB:
				return nil, nil, false
			case inB:
				ge = append(ge, et)
			default:
				fe = append(fe, et)
			}
		}
		if len(fe) > 0 {
			ft.exp = normalize(fe)
		}
		if len(ge) > 0 {
			gt.exp = normalize(ge)
		}
	}
	return fromPoly(normalize([]term{ft})), fromPoly(normalize([]term{gt})), true
}
