package cas

import (
	"fmt"
	"math/big"

	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/expr"
)

// rate isolates y' and freezes the result.
func (f *frame) rate() (expr.Expr, error) {
	if f.order() != 1 {
		return nil, fmt.Errorf("%w: expected a first-order equation", ErrPrecondition)
	}
	r, ok := classify.Rate(f.residual(), f.ec)
	if !ok {
		return nil, fmt.Errorf("%w: cannot isolate %s'", ErrNoSolution, f.y)
	}
	return r, nil
}

func noIntegral(what string, e expr.Expr) error {
	return fmt.Errorf("%w: no antiderivative for %s %s", ErrNoSolution, what, expr.String(e))
}

// separable solves y' = f(x)*g(y) as the integral of dy/g(y) = integral of f dx + C1.
func (f *frame) separable() (*Solution, error) {
	r, err := f.rate()
	if err != nil {
		return nil, err
	}
	fx, gy, ok := expr.Separate(expr.Freeze(r), f.x, f.y)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not separate", ErrNoSolution, expr.String(r))
	}
	lhs, ok := expr.Integrate(expr.Div(expr.Int(1), gy), f.y)
	if !ok {
		return nil, noIntegral("1/g(y) =", expr.Simplify(expr.Div(expr.Int(1), gy)))
	}
	rhs, ok := expr.Integrate(fx, f.x)
	if !ok {
		return nil, noIntegral("f(x) =", fx)
	}
	sol := f.resolve(lhs, rhs, classify.Separable)
	sol.Diagnostics["factor_x"] = expr.Text(fx)
	sol.Diagnostics["factor_y"] = expr.Text(expr.Thaw(gy, f.ec))
	return sol, nil
}

// linearSolution returns (integral of mu*q + C1)/mu with mu = exp(integral of p),
// the general solution of y' + p*y = q.
func linearSolution(p, q expr.Expr, x string) (sol, mu expr.Expr, err error) {
	ip, ok := expr.Integrate(p, x)
	if !ok {
		return nil, nil, noIntegral("P(x) =", p)
	}
	mu = expr.Simplify(expr.Fn("exp", ip))
	iq, ok := expr.Integrate(expr.Mul(mu, q), x)
	if !ok {
		return nil, nil, noIntegral("mu*Q =", expr.Simplify(expr.Mul(mu, q)))
	}
	return expr.Simplify(expr.Div(expr.Add(iq, c1), mu)), mu, nil
}

func (f *frame) linear() (*Solution, error) {
	r, err := f.rate()
	if err != nil {
		return nil, err
	}
	p, q, ok := classify.LinearParts(r, f.ec)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not linear in %s", ErrNoSolution, expr.String(r), f.y)
	}
	y, mu, err := linearSolution(expr.Freeze(p), expr.Freeze(q), f.x)
	if err != nil {
		return nil, err
	}
	sol := f.explicit(y, classify.Linear)
	sol.Diagnostics["p"] = expr.Text(p)
	sol.Diagnostics["q"] = expr.Text(q)
	sol.Diagnostics["integrating_factor"] = expr.Text(mu)
	return sol, nil
}

// bernoulli substitutes v = y^(1-n), which turns y' + p*y = q*y^n into the
// linear v' + (1-n)p*v = (1-n)q.
func (f *frame) bernoulli() (*Solution, error) {
	r, err := f.rate()
	if err != nil {
		return nil, err
	}
	p, q, n, ok := classify.BernoulliParts(r, f.ec)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not of Bernoulli form", ErrNoSolution, expr.String(r))
	}
	k := new(big.Rat).Sub(big.NewRat(1, 1), n)
	kk := expr.RatNum(k)
	v, _, err := linearSolution(expr.Mul(kk, expr.Freeze(p)), expr.Mul(kk, expr.Freeze(q)), f.x)
	if err != nil {
		return nil, err
	}
	y := expr.Pow(v, expr.RatNum(new(big.Rat).Inv(k)))
	sol := f.explicit(y, classify.Bernoulli)
	sol.Diagnostics["n"] = n.RatString()
	sol.Diagnostics["substitution"] = fmt.Sprintf("v = %s^%s", f.y, k.RatString())
	return sol, nil
}

// homogeneous substitutes y = v*x, so x*v' + v = h(v) separates into
// dv/(h(v) - v) = dx/x.
func (f *frame) homogeneous() (*Solution, error) {
	r, err := f.rate()
	if err != nil {
		return nil, err
	}
	v := &expr.Sym{Name: "v"}
	if expr.Contains(r, v.Name) {
		return nil, fmt.Errorf("%w: symbol v already in use", ErrNoSolution)
	}
	h := expr.Simplify(expr.Replace(expr.Freeze(r), f.y, expr.Mul(v, f.X())))
	if expr.DependsOn(h, f.x) {
		return nil, fmt.Errorf("%w: %s is not homogeneous", ErrNoSolution, expr.String(r))
	}
	d := expr.Simplify(expr.Sub(h, v))
	if expr.IsZero(d) {
		sol := f.explicit(expr.Mul(c1, f.X()), classify.Homogeneous)
		sol.Diagnostics["substitution"] = "v = y/x"
		return sol, nil
	}
	g, ok := expr.Integrate(expr.Div(expr.Int(1), d), v.Name)
	if !ok {
		return nil, noIntegral("1/(h(v) - v) =", expr.Simplify(expr.Div(expr.Int(1), d)))
	}
	logx := expr.Fn("log", f.X())
	ratio := expr.Div(f.Y(), f.X())

	var sol *Solution
	if k, ok := expr.Ratio(g, expr.Fn("log", v)); ok {
		vx := expr.Mul(c1, expr.Fn("exp", expr.Div(logx, expr.RatNum(k))))
		sol = f.explicit(expr.Mul(f.X(), vx), classify.Homogeneous)
	} else if roots, err := expr.SolveFor(expr.Sub(g, expr.Add(logx, c1)), v); err == nil && len(roots) == 1 {
		sol = f.explicit(expr.Mul(f.X(), roots[0]), classify.Homogeneous)
	} else {
		sol = f.implicit(expr.Replace(g, v.Name, ratio), expr.Add(logx, c1), classify.Homogeneous)
	}
	sol.Diagnostics["substitution"] = "v = y/x"
	return sol, nil
}
