// Package classify picks the solving strategy for a canonical equation.
package classify

import (
	"fmt"
	"math/big"

	"github.com/san-kum/odelab/internal/expr"
	"github.com/san-kum/odelab/internal/notation"
)

// Tag is a solving strategy.
type Tag string

const (
	Separable         Tag = "separable"
	Homogeneous       Tag = "homogeneous"
	Exact             Tag = "exact"
	IntegratingFactor Tag = "integrating_factor"
	Linear            Tag = "linear"
	Bernoulli         Tag = "bernoulli"
	SecondOrderConst  Tag = "second_order_const"
	Reducible         Tag = "reducible"
	General           Tag = "general"
)

// Tags lists every strategy in dispatch order.
var Tags = []Tag{Separable, Homogeneous, Exact, IntegratingFactor, Linear, Bernoulli, SecondOrderConst, Reducible, General}

// ParseTag accepts a tag name; the empty string means no preference.
func ParseTag(s string) (Tag, error) {
	if s == "" {
		return "", nil
	}
	for _, t := range Tags {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Options carries the caller's override and the exact form, if the
// normalizer saw one.
type Options struct {
	Requested Tag
	Exact     *notation.ExactForm
}

// Result is the chosen strategy plus every strategy whose structural test matched.
type Result struct {
	Tag       Tag
	Hints     []Tag
	Special   *Special
	Requested bool
}

// Classify never fails: shapes it cannot place fall back to General.
func Classify(eq *expr.Equation, ctx expr.Context, opts Options) Result {
	residual := eq.Residual()
	hints := Hints(eq, ctx, opts.Exact)

	if opts.Requested != "" {
		r := Result{Tag: opts.Requested, Hints: hints, Requested: true}
		switch opts.Requested {
		case Separable, Homogeneous, Reducible, General:
			r.Special = MatchSpecial(residual, ctx)
		}
		return r
	}
	if sp := MatchSpecial(residual, ctx); sp != nil {
		return Result{Tag: Reducible, Hints: hints, Special: sp}
	}
	if len(hints) > 0 {
		return Result{Tag: hints[0], Hints: hints}
	}
	return Result{Tag: General, Hints: hints}
}

// Hints runs every structural test and returns the matching tags in dispatch order.
func Hints(eq *expr.Equation, ctx expr.Context, exact *notation.ExactForm) []Tag {
	residual := eq.Residual()
	y := ctx.Primary()
	var out []Tag
	if exact != nil {
		if IsExact(exact, ctx) {
			out = append(out, Exact)
		} else {
			out = append(out, IntegratingFactor)
		}
	}
	switch expr.MaxOrder(residual, y) {
	case 1:
		rate, ok := Rate(residual, ctx)
		if !ok {
			return out
		}
		frozen := expr.Freeze(rate)
		if _, _, ok := expr.Separate(frozen, ctx.Var, y); ok {
			out = append(out, Separable)
		}
		if isHomogeneous(frozen, ctx.Var, y) {
			out = append(out, Homogeneous)
		}
		if p, _, ok := LinearParts(rate, ctx); ok && !expr.IsZero(p) {
			out = append(out, Linear)
		}
		if _, _, _, ok := BernoulliParts(rate, ctx); ok {
			out = append(out, Bernoulli)
		}
	case 2:
		if _, ok := ConstCoefficients(residual, ctx); ok {
			out = append(out, SecondOrderConst)
		} else {
			out = append(out, Reducible)
		}
	}
	return out
}

// Rate isolates y' in a first-order residual, taking the first root.
func Rate(residual expr.Expr, ctx expr.Context) (expr.Expr, bool) {
	roots, err := expr.SolveFor(residual, ctx.Dep(ctx.Primary(), 1))
	if err != nil || len(roots) == 0 {
		return nil, false
	}
	if expr.MaxOrder(roots[0], ctx.Primary()) > 0 {
		return nil, false
	}
	return roots[0], true
}

// IsExact tests M_y == N_x, treating y as independent of x.
func IsExact(form *notation.ExactForm, ctx expr.Context) bool {
	m, n := expr.Freeze(form.M), expr.Freeze(form.N)
	return expr.Equal(expr.Diff(m, ctx.Primary()), expr.Diff(n, ctx.Var))
}

func isHomogeneous(f expr.Expr, x, y string) bool {
	if !expr.DependsOn(f, y) || !expr.DependsOn(f, x) {
		return false
	}
	t := &expr.Sym{Name: "t_"}
	scaled := expr.Replace(expr.Replace(f, x, expr.Mul(t, &expr.Sym{Name: x})), y, expr.Mul(t, &expr.Sym{Name: y}))
	return !expr.DependsOn(expr.Simplify(scaled), t.Name)
}

// LinearParts writes rate = Q(x) - P(x)*y. P may be zero.
func LinearParts(rate expr.Expr, ctx expr.Context) (p, q expr.Expr, ok bool) {
	cs, ok := expr.CoeffsIn(rate, ctx.Dep(ctx.Primary(), 0))
	if !ok {
		return nil, nil, false
	}
	p, q = expr.Int(0), expr.Int(0)
	for _, c := range cs {
		switch {
		case c.Pow.Sign() == 0:
			q = c.Coef
		case c.Pow.Cmp(big.NewRat(1, 1)) == 0:
			p = expr.Simplify(expr.Negate(c.Coef))
		default:
			return nil, nil, false
		}
	}
	return p, q, true
}

// BernoulliParts writes rate = Q(x)*y^n - P(x)*y with n not 0 or 1.
func BernoulliParts(rate expr.Expr, ctx expr.Context) (p, q expr.Expr, n *big.Rat, ok bool) {
	cs, ok := expr.CoeffsIn(rate, ctx.Dep(ctx.Primary(), 0))
	if !ok || len(cs) != 2 {
		return nil, nil, nil, false
	}
	one := big.NewRat(1, 1)
	for _, c := range cs {
		switch {
		case c.Pow.Cmp(one) == 0:
			p = expr.Simplify(expr.Negate(c.Coef))
		case c.Pow.Sign() != 0:
			q, n = c.Coef, c.Pow
		}
	}
	if p == nil || q == nil {
		return nil, nil, nil, false
	}
	return p, q, n, true
}

// Coefficients is a*y'' + b*y' + c*y = g(x) with constant a, b, c.
type Coefficients struct {
	A, B, C *big.Rat
	Forcing expr.Expr
}

// ConstCoefficients matches a second-order linear equation with constant coefficients.
func ConstCoefficients(residual expr.Expr, ctx expr.Context) (*Coefficients, bool) {
	y := ctx.Primary()
	rest := residual
	var k [3]*big.Rat
	for order := 2; order >= 0; order-- {
		cs, ok := expr.CoeffsIn(rest, ctx.Dep(y, order))
		if !ok {
			return nil, false
		}
		rest = expr.Int(0)
		k[order] = new(big.Rat)
		for _, c := range cs {
			switch {
			case c.Pow.Sign() == 0:
				rest = c.Coef
			case c.Pow.Cmp(big.NewRat(1, 1)) == 0:
				v, ok := expr.Constant(c.Coef)
				if !ok {
					return nil, false
				}
				k[order] = v
			default:
				return nil, false
			}
		}
	}
	if k[2].Sign() == 0 || expr.DependsOn(rest, y) {
		return nil, false
	}
	return &Coefficients{A: k[2], B: k[1], C: k[0], Forcing: expr.Simplify(expr.Negate(rest))}, true
}
