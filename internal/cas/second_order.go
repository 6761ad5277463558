package cas

import (
	"context"
	"fmt"
	"math/big"

	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/expr"
)

var half = expr.Frac(1, 2)

// basis is a fundamental pair of the homogeneous equation and its Wronskian.
type basis struct {
	y1, y2, w expr.Expr
	roots     string
}

// characteristic builds the basis from the roots of a*r^2 + b*r + c.
func characteristic(a, b, c *big.Rat, x *expr.Sym) basis {
	disc := new(big.Rat).Sub(new(big.Rat).Mul(b, b), new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))
	twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
	alpha := expr.RatNum(new(big.Rat).Quo(new(big.Rat).Neg(b), twoA))
	exp := func(r expr.Expr) expr.Expr { return expr.Fn("exp", expr.Mul(r, x)) }

	switch disc.Sign() {
	case 1:
		sd := expr.Pow(expr.RatNum(disc), half)
		r1 := expr.Simplify(expr.Div(expr.Add(expr.RatNum(new(big.Rat).Neg(b)), sd), expr.RatNum(twoA)))
		r2 := expr.Simplify(expr.Div(expr.Sub(expr.RatNum(new(big.Rat).Neg(b)), sd), expr.RatNum(twoA)))
		return basis{
			y1:    exp(r1),
			y2:    exp(r2),
			w:     expr.Mul(expr.Sub(r2, r1), exp(expr.Add(r1, r2))),
			roots: expr.Text(r1) + ", " + expr.Text(r2),
		}
	case 0:
		return basis{
			y1:    exp(alpha),
			y2:    expr.Mul(x, exp(alpha)),
			w:     exp(expr.Mul(expr.Int(2), alpha)),
			roots: expr.Text(alpha) + " (double)",
		}
	}
	negDisc := new(big.Rat).Neg(disc)
	beta := expr.Simplify(expr.Div(expr.Pow(expr.RatNum(negDisc), half), expr.RatNum(new(big.Rat).Abs(twoA))))
	return basis{
		y1:    expr.Mul(exp(alpha), expr.Fn("cos", expr.Mul(beta, x))),
		y2:    expr.Mul(exp(alpha), expr.Fn("sin", expr.Mul(beta, x))),
		w:     expr.Mul(beta, exp(expr.Mul(expr.Int(2), alpha))),
		roots: expr.Text(expr.Simplify(alpha)) + " ± " + expr.Text(beta) + "·i",
	}
}

// secondOrderConst solves a*y'' + b*y' + c*y = g(x) from the characteristic
// roots. The particular solution comes from undetermined coefficients when g
// is a sum of polynomial, exponential and sin/cos products, and from
// variation of parameters otherwise.
func (f *frame) secondOrderConst() (*Solution, error) {
	co, ok := classify.ConstCoefficients(f.residual(), f.ec)
	if !ok {
		return nil, fmt.Errorf("%w: not a constant-coefficient second-order linear equation", ErrNoSolution)
	}
	bs := characteristic(co.A, co.B, co.C, f.X())
	y := expr.Add(expr.Mul(c1, bs.y1), expr.Mul(c2, bs.y2))

	forcing := expr.Freeze(co.Forcing)
	homogeneous := expr.IsZero(forcing)
	method := ""
	if !homogeneous {
		yp, by, err := f.particular(co, bs, forcing)
		if err != nil {
			return nil, err
		}
		y, method = expr.Add(y, yp), by
	}

	sol := f.explicit(y, classify.SecondOrderConst)
	sol.Diagnostics["is_homogeneous"] = fmt.Sprint(homogeneous)
	sol.Diagnostics["characteristic_roots"] = bs.roots
	if method != "" {
		sol.Diagnostics["particular_solution"] = method
	}
	return sol, nil
}

// particular returns a particular solution and the method that found it.
func (f *frame) particular(co *classify.Coefficients, bs basis, forcing expr.Expr) (expr.Expr, string, error) {
	if yp, ok := undetermined(co.A, co.B, co.C, forcing, f.X()); ok {
		return yp, "undetermined_coefficients", nil
	}
	g := expr.Div(forcing, expr.RatNum(co.A))
	u1, ok := expr.Integrate(expr.Simplify(expr.Div(expr.Mul(bs.y2, g), bs.w)), f.x)
	if !ok {
		return nil, "", noIntegral("forcing term", forcing)
	}
	u2, ok := expr.Integrate(expr.Simplify(expr.Div(expr.Mul(bs.y1, g), bs.w)), f.x)
	if !ok {
		return nil, "", noIntegral("forcing term", forcing)
	}
	yp := expr.Sub(expr.Mul(bs.y2, u2), expr.Mul(bs.y1, u1))
	return pythagorean(expr.Simplify(yp)), "variation_of_parameters", nil
}

// pythagorean rewrites even powers of sin(u) through cos(u)^2 = 1 - sin(u)^2
// so products from the trigonometric basis collapse.
func pythagorean(e expr.Expr) expr.Expr {
	return expr.Simplify(expr.Map(e, func(n expr.Expr) expr.Expr {
		b, ok := n.(*expr.Binary)
		if !ok || b.Op != expr.OpPow {
			return n
		}
		call, ok := b.L.(*expr.Call)
		if !ok || call.Fn != "sin" {
			return n
		}
		k, ok := expr.Constant(b.R)
		if !ok || !k.IsInt() || k.Num().Int64()%2 != 0 || k.Sign() <= 0 {
			return n
		}
		one := expr.Sub(expr.Int(1), expr.Pow(expr.Fn("cos", call.Arg), expr.Int(2)))
		return expr.Pow(one, expr.Int(k.Num().Int64()/2))
	}))
}

// reducible handles second-order equations without y: p = y' turns them into
// a first-order equation in p, and y is the integral of p plus C2.
func (f *frame) reducible(ctx context.Context) (*Solution, error) {
	if f.order() != 2 {
		return nil, fmt.Errorf("%w: reduction of order needs a second-order equation", ErrNoSolution)
	}
	if hasOrder(f.residual(), f.y, 0) {
		return nil, fmt.Errorf("%w: %s appears undifferentiated", ErrNoSolution, f.y)
	}
	const pname = "p"
	if expr.Contains(f.residual(), pname) {
		return nil, fmt.Errorf("%w: symbol p already in use", ErrNoSolution)
	}
	pctx := expr.Context{Var: f.x, Funcs: []string{pname}}
	reduced := expr.ReplaceDep(f.residual(), f.y, 2, pctx.Dep(pname, 1))
	reduced = expr.ReplaceDep(reduced, f.y, 1, pctx.Dep(pname, 0))
	eq := &expr.Equation{LHS: reduced, RHS: expr.Int(0)}

	sub := newFrame(Problem{
		Equation: eq,
		Context:  pctx,
		Class:    classify.Classify(eq, pctx, classify.Options{}),
	})
	psol, err := sub.general(ctx)
	if err != nil {
		return nil, err
	}
	if !psol.Explicit {
		return nil, fmt.Errorf("%w: reduced equation has only an implicit solution", ErrNoSolution)
	}
	p := expr.Freeze(psol.Equation.RHS)
	y, ok := expr.Integrate(p, f.x)
	if !ok {
		return nil, noIntegral("p =", p)
	}
	sol := f.explicit(expr.Add(y, c2), classify.Reducible)
	sol.Diagnostics["substitution"] = "p = " + f.y + "'"
	sol.Diagnostics["reduced_by"] = psol.Diagnostics["resolved_by"]
	return sol, nil
}

func hasOrder(e expr.Expr, name string, order int) bool {
	found := false
	expr.Walk(e, func(n expr.Expr) bool {
		if d, ok := n.(*expr.Dep); ok && d.Name == name && d.Order == order {
			found = true
		}
		return !found
	})
	return found
}
