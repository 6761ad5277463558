package cas

import (
	"fmt"

	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/expr"
)

func (f *frame) exactForm() (m, n expr.Expr, err error) {
	if f.p.Exact == nil {
		return nil, nil, fmt.Errorf("%w: needs an equation written as M dx + N dy = 0", ErrPrecondition)
	}
	return expr.Freeze(f.p.Exact.M), expr.Freeze(f.p.Exact.N), nil
}

// potential returns F with F_x = M and F_y = N.
func (f *frame) potential(m, n expr.Expr) (expr.Expr, error) {
	fx, ok := expr.Integrate(m, f.x)
	if !ok {
		return nil, noIntegral("M =", m)
	}
	rest := expr.Simplify(expr.Sub(n, expr.Diff(fx, f.y)))
	if expr.DependsOn(rest, f.x) {
		return nil, fmt.Errorf("%w: N - dF/dy still depends on %s", ErrNoSolution, f.x)
	}
	g, ok := expr.Integrate(rest, f.y)
	if !ok {
		return nil, noIntegral("N - dF/dy =", rest)
	}
	return expr.Simplify(expr.Add(fx, g)), nil
}

// exact solves M dx + N dy = 0 with M_y = N_x as F(x, y) = C1.
func (f *frame) exact() (*Solution, error) {
	m, n, err := f.exactForm()
	if err != nil {
		return nil, err
	}
	if !classify.IsExact(f.p.Exact, f.ec) {
		return nil, fmt.Errorf("%w: equation is not exact (M_y != N_x)", ErrNoSolution)
	}
	pot, err := f.potential(m, n)
	if err != nil {
		return nil, err
	}
	sol := f.potentialSolution(pot, classify.Exact)
	sol.Diagnostics["is_exact"] = "true"
	sol.Diagnostics["potential"] = expr.Text(expr.Thaw(pot, f.ec))
	return sol, nil
}

// integratingFactor looks for mu(x) or mu(y) making mu*M dx + mu*N dy = 0 exact.
func (f *frame) integratingFactor() (*Solution, error) {
	m, n, err := f.exactForm()
	if err != nil {
		return nil, err
	}
	my, nx := expr.Diff(m, f.y), expr.Diff(n, f.x)

	var mu expr.Expr
	var kind string
	switch {
	case expr.Equal(my, nx):
		mu, kind = expr.Int(1), "none"
	default:
		if r := expr.Simplify(expr.Div(expr.Sub(my, nx), n)); !expr.DependsOn(r, f.y) {
			if ir, ok := expr.Integrate(r, f.x); ok {
				mu, kind = expr.Simplify(expr.Fn("exp", ir)), "mu(x)"
				break
			}
		}
		if r := expr.Simplify(expr.Div(expr.Sub(nx, my), m)); !expr.DependsOn(r, f.x) {
			if ir, ok := expr.Integrate(r, f.y); ok {
				mu, kind = expr.Simplify(expr.Fn("exp", ir)), "mu(y)"
			}
		}
	}
	if mu == nil {
		return nil, fmt.Errorf("%w: no integrating factor of x or y alone", ErrNoSolution)
	}

	pot, err := f.potential(expr.Simplify(expr.Mul(mu, m)), expr.Simplify(expr.Mul(mu, n)))
	if err != nil {
		return nil, err
	}
	sol := f.potentialSolution(pot, classify.IntegratingFactor)
	sol.Diagnostics["factor_type"] = kind
	sol.Diagnostics["integrating_factor"] = expr.Text(expr.Thaw(mu, f.ec))
	return sol, nil
}

// potentialSolution writes F(x, y) = C1, solved for y when y enters F linearly.
func (f *frame) potentialSolution(pot expr.Expr, tag classify.Tag) *Solution {
	roots, err := expr.SolveFor(expr.Sub(pot, c1), f.Y())
	if err == nil && len(roots) == 1 && !expr.DependsOn(roots[0], f.y) {
		if cs, ok := expr.CoeffsIn(pot, f.Y()); ok && len(cs) <= 2 && cs[len(cs)-1].Pow.IsInt() && cs[len(cs)-1].Pow.Num().Int64() == 1 {
			return f.explicit(roots[0], tag)
		}
	}
	return f.implicit(pot, c1, tag)
}
