package expr

import "math/big"

// Quasi is one term Coef·v^N·exp(A·v)·Trig(B·v). Trig is empty when B is zero.
type Quasi struct {
	Coef *big.Rat
	N    int
	A, B *big.Rat
	Trig string
}

// QuasiTerms splits e into Quasi terms in v. It fails when any term has
// another shape, such as a product of two trigonometric factors.
func QuasiTerms(e Expr, v string) ([]Quasi, bool) {
	p := toPoly(e)
	out := make([]Quasi, 0, len(p.terms))
	for _, t := range p.terms {
		q := Quasi{Coef: new(big.Rat).Set(t.coef), A: new(big.Rat), B: new(big.Rat)}
		if t.exp != nil {
			a, ok := linearRat(t.exp, v)
			if !ok {
				return nil, false
			}
			q.A = a
		}
		for _, f := range t.factors {
			switch b := f.base.(type) {
			case *Sym:
				if b.Name != v || !f.pow.IsInt() || f.pow.Sign() < 0 || !f.pow.Num().IsInt64() {
					return nil, false
				}
				q.N = int(f.pow.Num().Int64())
			case *Call:
				if q.Trig != "" || f.pow.Cmp(ratOne) != 0 || (b.Fn != "sin" && b.Fn != "cos") {
					return nil, false
				}
				k, ok := linearRat(toPoly(b.Arg), v)
				if !ok {
					return nil, false
				}
				q.Trig, q.B = b.Fn, k
			default:
				return nil, false
			}
		}
		if q.B.Sign() < 0 {
			q.B.Neg(q.B)
			if q.Trig == "sin" {
				q.Coef.Neg(q.Coef)
			}
		}
		out = append(out, q)
	}
	return out, true
}

// linearRat returns k when p is exactly k·v.
func linearRat(p *poly, v string) (*big.Rat, bool) {
	if len(p.terms) != 1 {
		return nil, false
	}
	t := p.terms[0]
	if t.exp != nil || len(t.factors) != 1 {
		return nil, false
	}
	f := t.factors[0]
	s, ok := f.base.(*Sym)
	if !ok || s.Name != v || f.pow.Cmp(ratOne) != 0 {
		return nil, false
	}
	return new(big.Rat).Set(t.coef), true
}
