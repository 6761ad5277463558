package cas

import (
	"math/big"
	"sort"

	"github.com/san-kum/odelab/internal/expr"
)

// quasi holds exp(alpha·x)·Σ x^j·(cos[j]·cos(beta·x) + sin[j]·sin(beta·x)).
// With beta zero only the cos slots are used and cos(0·x) reads as 1.
type quasi struct {
	cos, sin map[int]*big.Rat
}

func newQuasi() quasi {
	return quasi{cos: map[int]*big.Rat{}, sin: map[int]*big.Rat{}}
}

func addTo(m map[int]*big.Rat, j int, v *big.Rat) {
	if v.Sign() == 0 {
		return
	}
	if cur, ok := m[j]; ok {
		cur.Add(cur, v)
		return
	}
	m[j] = new(big.Rat).Set(v)
}

func mulRat(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }

// derive differentiates q under fixed alpha and beta.
func (q quasi) derive(alpha, beta *big.Rat) quasi {
	out := newQuasi()
	for j, v := range q.cos {
		addTo(out.cos, j, mulRat(alpha, v))
		if j > 0 {
			addTo(out.cos, j-1, mulRat(big.NewRat(int64(j), 1), v))
		}
		addTo(out.sin, j, new(big.Rat).Neg(mulRat(beta, v)))
	}
	for j, v := range q.sin {
		addTo(out.sin, j, mulRat(alpha, v))
		if j > 0 {
			addTo(out.sin, j-1, mulRat(big.NewRat(int64(j), 1), v))
		}
		addTo(out.cos, j, mulRat(beta, v))
	}
	return out
}

// apply computes a·q'' + b·q' + c·q.
func (q quasi) apply(a, b, c, alpha, beta *big.Rat) quasi {
	d1 := q.derive(alpha, beta)
	d2 := d1.derive(alpha, beta)
	out := newQuasi()
	for _, part := range []struct {
		k *big.Rat
		q quasi
	}{{a, d2}, {b, d1}, {c, q}} {
		for j, v := range part.q.cos {
			addTo(out.cos, j, mulRat(part.k, v))
		}
		for j, v := range part.q.sin {
			addTo(out.sin, j, mulRat(part.k, v))
		}
	}
	return out
}

// multiplicity counts how often alpha + i·beta is a root of a·r^2 + b·r + c.
func multiplicity(a, b, c, alpha, beta *big.Rat) int {
	a2, b2 := mulRat(alpha, alpha), mulRat(beta, beta)
	re := new(big.Rat).Add(mulRat(a, new(big.Rat).Sub(a2, b2)), mulRat(b, alpha))
	re.Add(re, c)
	deriv := new(big.Rat).Add(mulRat(big.NewRat(2, 1), mulRat(a, alpha)), b)
	im := mulRat(beta, deriv)
	if re.Sign() != 0 || im.Sign() != 0 {
		return 0
	}
	if deriv.Sign() != 0 || beta.Sign() != 0 {
		return 1
	}
	return 2
}

type freq struct{ alpha, beta *big.Rat }

// group collects the forcing terms that share one frequency.
type group struct {
	f      freq
	target quasi
	degree int
}

// undetermined finds a particular solution of a·y'' + b·y' + c·y = g for g a
// sum of x^n·exp(alpha·x)·sin/cos(beta·x) terms. It reports false for any
// other forcing.
func undetermined(a, b, c *big.Rat, g expr.Expr, x *expr.Sym) (expr.Expr, bool) {
	terms, ok := expr.QuasiTerms(g, x.Name)
	if !ok || len(terms) == 0 {
		return nil, false
	}
	groups := map[string]*group{}
	var keys []string
	for _, t := range terms {
		k := t.A.RatString() + "/" + t.B.RatString()
		grp, ok := groups[k]
		if !ok {
			grp = &group{f: freq{t.A, t.B}, target: newQuasi()}
			groups[k] = grp
			keys = append(keys, k)
		}
		if t.Trig == "sin" {
			addTo(grp.target.sin, t.N, t.Coef)
		} else {
			addTo(grp.target.cos, t.N, t.Coef)
		}
		if t.N > grp.degree {
			grp.degree = t.N
		}
	}
	sort.Strings(keys)

	var out expr.Expr = expr.Int(0)
	for _, k := range keys {
		grp := groups[k]
		part, ok := particular(a, b, c, grp.f, grp.target, grp.degree, x)
		if !ok {
			return nil, false
		}
		out = expr.Add(out, part)
	}
	return expr.Simplify(out), true
}

// particular solves for the coefficients of x^s·exp(alpha·x)·Σ x^k·(A_k·cos + B_k·sin).
func particular(a, b, c *big.Rat, f freq, target quasi, degree int, x *expr.Sym) (expr.Expr, bool) {
	s := multiplicity(a, b, c, f.alpha, f.beta)
	trig := f.beta.Sign() != 0

	type unknown struct {
		pow int
		sin bool
	}
	var cols []unknown
	var images []quasi
	for k := 0; k <= degree; k++ {
		kinds := []bool{false}
		if trig {
			kinds = append(kinds, true)
		}
		for _, isSin := range kinds {
			basis := newQuasi()
			if isSin {
				basis.sin[s+k] = big.NewRat(1, 1)
			} else {
				basis.cos[s+k] = big.NewRat(1, 1)
			}
			cols = append(cols, unknown{pow: s + k, sin: isSin})
			images = append(images, basis.apply(a, b, c, f.alpha, f.beta))
		}
	}

	// One row per (kind, power) slot.
	type slot struct {
		pow int
		sin bool
	}
	rowOf := map[slot]int{}
	var rows [][]*big.Rat
	row := func(sl slot) []*big.Rat {
		if i, ok := rowOf[sl]; ok {
			return rows[i]
		}
		r := make([]*big.Rat, len(cols)+1)
		for i := range r {
			r[i] = new(big.Rat)
		}
		rowOf[sl] = len(rows)
		rows = append(rows, r)
		return r
	}
	for ci, img := range images {
		for j, v := range img.cos {
			r := row(slot{j, false})
			r[ci].Add(r[ci], v)
		}
		for j, v := range img.sin {
			r := row(slot{j, true})
			r[ci].Add(r[ci], v)
		}
	}
	last := len(cols)
	for j, v := range target.cos {
		row(slot{j, false})[last].Set(v)
	}
	for j, v := range target.sin {
		row(slot{j, true})[last].Set(v)
	}

	sol, ok := solveLinear(rows, len(cols))
	if !ok {
		return nil, false
	}

	var out expr.Expr = expr.Int(0)
	for i, u := range cols {
		if sol[i].Sign() == 0 {
			continue
		}
		t := expr.Mul(expr.RatNum(sol[i]), expr.Pow(x, expr.Int(int64(u.pow))))
		if f.alpha.Sign() != 0 {
			t = expr.Mul(t, expr.Fn("exp", expr.Mul(expr.RatNum(f.alpha), x)))
		}
		if trig {
			fn := "cos"
			if u.sin {
				fn = "sin"
			}
			t = expr.Mul(t, expr.Fn(fn, expr.Mul(expr.RatNum(f.beta), x)))
		}
		out = expr.Add(out, t)
	}
	return out, true
}

// solveLinear reduces the augmented rows in place and returns the unique
// solution. Free unknowns are set to zero; an inconsistent system fails.
func solveLinear(rows [][]*big.Rat, n int) ([]*big.Rat, bool) {
	pivotCol := make([]int, 0, n)
	r := 0
	for col := 0; col < n && r < len(rows); col++ {
		p := -1
		for i := r; i < len(rows); i++ {
			if rows[i][col].Sign() != 0 {
				p = i
				break
			}
		}
		if p < 0 {
			continue
		}
		rows[r], rows[p] = rows[p], rows[r]
		inv := new(big.Rat).Inv(rows[r][col])
		for k := col; k <= n; k++ {
			rows[r][k].Mul(rows[r][k], inv)
		}
		for i := range rows {
			if i == r || rows[i][col].Sign() == 0 {
				continue
			}
			factor := new(big.Rat).Set(rows[i][col])
			for k := col; k <= n; k++ {
				rows[i][k].Sub(rows[i][k], mulRat(factor, rows[r][k]))
			}
		}
		pivotCol = append(pivotCol, col)
		r++
	}
	for i := r; i < len(rows); i++ {
		if rows[i][n].Sign() != 0 {
			return nil, false
		}
	}
	out := make([]*big.Rat, n)
	for i := range out {
		out[i] = new(big.Rat)
	}
	for i, col := range pivotCol {
		out[col] = rows[i][n]
	}
	return out, true
}
