// Package cas is the built-in closed-form engine. It covers the textbook
// strategies the classifier names and makes no promise beyond them: any shape
// it cannot finish is reported as ErrNoSolution.
package cas

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/expr"
	"github.com/san-kum/odelab/internal/ics"
	"github.com/san-kum/odelab/internal/notation"
)

var (
	// ErrNoSolution means the engine found no closed form. It is not a fault.
	ErrNoSolution = errors.New("cas: no closed-form solution")

	// ErrPrecondition means the requested strategy cannot apply to the input,
	// such as exact without an M dx + N dy = 0 form.
	ErrPrecondition = errors.New("cas: strategy precondition not met")
)

// Problem is one equation ready for closed-form solving.
type Problem struct {
	Equation *expr.Equation
	Context  expr.Context
	Exact    *notation.ExactForm
	ICs      *ics.Binding
	Class    classify.Result
}

// Solution is y(x) = f(x) when Explicit, and an implicit relation otherwise.
// Constants lists the free constants left after fitting initial conditions.
type Solution struct {
	Equation    *expr.Equation
	Explicit    bool
	Method      classify.Tag
	Constants   []string
	Diagnostics map[string]string
}

// Engine implements SolveClosedForm. It holds no state.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// SolveClosedForm solves p with the strategy in p.Class, then fits any
// initial conditions to the free constants.
func (e *Engine) SolveClosedForm(ctx context.Context, p Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := newFrame(p)

	var sol *Solution
	var err error
	if sp := p.Class.Special; sp != nil {
		sol = f.special(sp)
	} else {
		sol, err = f.dispatch(ctx, p.Class.Tag)
	}
	if err != nil {
		return nil, err
	}
	if p.ICs.Len() > 0 {
		return f.fit(sol, p.ICs)
	}
	return sol, nil
}

// SolveSystem solves a decoupled system one equation at a time. Each equation
// may mention only its own unknown; coupled systems are ErrNoSolution.
// Constants are numbered across the whole system.
func (e *Engine) SolveSystem(ctx context.Context, eqs []*expr.Equation, ec expr.Context, names []string, b *ics.Binding) ([]*Solution, error) {
	if len(eqs) != len(names) {
		return nil, fmt.Errorf("%w: %d equations for %d unknowns", ErrPrecondition, len(eqs), len(names))
	}
	out := make([]*Solution, len(eqs))
	next := 1
	for i, eq := range eqs {
		deps := expr.Deps(eq.Residual())
		if len(deps) != 1 || deps[0] != names[i] {
			return nil, fmt.Errorf("%w: equation %d is coupled (%s)", ErrNoSolution, i+1, strings.Join(deps, ", "))
		}
		single := expr.Context{Var: ec.Var, Funcs: []string{names[i]}}
		p := Problem{
			Equation: eq,
			Context:  single,
			ICs:      b,
			Class:    classify.Classify(eq, single, classify.Options{}),
		}
		sol, err := e.SolveClosedForm(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", names[i], err)
		}
		next = renumber(sol, next)
		out[i] = sol
	}
	return out, nil
}

var (
	c1 = &expr.Sym{Name: "C1"}
	c2 = &expr.Sym{Name: "C2"}
)

// frame holds the frozen view of one problem: y(x) becomes the symbol y so
// the integrator and differentiator can treat it as an independent variable.
type frame struct {
	p    Problem
	ec   expr.Context
	x, y string
}

func newFrame(p Problem) *frame {
	return &frame{p: p, ec: p.Context, x: p.Context.Var, y: p.Context.Primary()}
}

func (f *frame) X() *expr.Sym { return &expr.Sym{Name: f.x} }
func (f *frame) Y() *expr.Sym { return &expr.Sym{Name: f.y} }

func (f *frame) residual() expr.Expr { return f.p.Equation.Residual() }

func (f *frame) order() int { return expr.MaxOrder(f.residual(), f.y) }

// dispatch is the single switch over every strategy.
func (f *frame) dispatch(ctx context.Context, tag classify.Tag) (*Solution, error) {
	switch tag {
	case classify.Separable:
		return f.separable()
	case classify.Homogeneous:
		return f.homogeneous()
	case classify.Exact:
		return f.exact()
	case classify.IntegratingFactor:
		return f.integratingFactor()
	case classify.Linear:
		return f.linear()
	case classify.Bernoulli:
		return f.bernoulli()
	case classify.SecondOrderConst:
		return f.secondOrderConst()
	case classify.Reducible:
		return f.reducible(ctx)
	case classify.General:
		return f.general(ctx)
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", ErrPrecondition, tag)
}

// general tries the matching strategies first and then every remaining
// strategy for the equation's order. The first success wins.
func (f *frame) general(ctx context.Context) (*Solution, error) {
	var order []classify.Tag
	seen := map[classify.Tag]bool{classify.General: true}
	add := func(tags ...classify.Tag) {
		for _, t := range tags {
			if !seen[t] {
				seen[t] = true
				order = append(order, t)
			}
		}
	}
	add(f.p.Class.Hints...)
	switch f.order() {
	case 1:
		add(classify.Separable, classify.Linear, classify.Bernoulli, classify.Homogeneous)
	case 2:
		add(classify.SecondOrderConst, classify.Reducible)
	}

	var tried []string
	for _, tag := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sol, err := f.dispatch(ctx, tag)
		if err == nil {
			sol.Diagnostics["resolved_by"] = string(tag)
			return sol, nil
		}
		tried = append(tried, string(tag))
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoSolution, strings.Join(tried, ", "))
}

func (f *frame) special(sp *classify.Special) *Solution {
	sol := &Solution{
		Equation:    sp.Solution,
		Method:      classify.Reducible,
		Constants:   constantsIn(expr.Sub(sp.Solution.LHS, sp.Solution.RHS)),
		Diagnostics: map[string]string{"special_case": sp.Name},
	}
	if d, ok := sp.Solution.LHS.(*expr.Dep); ok && d.Order == 0 && !expr.Contains(sp.Solution.RHS, d.Name) {
		sol.Explicit = true
	}
	return sol
}

// explicit builds y(x) = rhs from a frozen right side.
func (f *frame) explicit(rhs expr.Expr, tag classify.Tag) *Solution {
	rhs = expr.Simplify(rhs)
	return &Solution{
		Equation:    &expr.Equation{LHS: f.ec.Dep(f.y, 0), RHS: expr.Thaw(rhs, f.ec)},
		Explicit:    true,
		Method:      tag,
		Constants:   constantsIn(rhs),
		Diagnostics: map[string]string{},
	}
}

func (f *frame) implicit(lhs, rhs expr.Expr, tag classify.Tag) *Solution {
	lhs, rhs = expr.Simplify(lhs), expr.Simplify(rhs)
	return &Solution{
		Equation:    &expr.Equation{LHS: expr.Thaw(lhs, f.ec), RHS: expr.Thaw(rhs, f.ec)},
		Method:      tag,
		Constants:   constantsIn(expr.Sub(lhs, rhs)),
		Diagnostics: map[string]string{},
	}
}

// resolve turns G(y) = F(x) + C1 into an explicit solution when y has a
// single root or G is a multiple of log(y); otherwise the relation stays
// implicit.
func (f *frame) resolve(g, fx expr.Expr, tag classify.Tag) *Solution {
	if k, ok := expr.Ratio(g, expr.Fn("log", f.Y())); ok {
		return f.explicit(expr.Mul(c1, expr.Fn("exp", expr.Div(fx, expr.RatNum(k)))), tag)
	}
	rhs := expr.Add(fx, c1)
	roots, err := expr.SolveFor(expr.Sub(g, rhs), f.Y())
	if err == nil && len(roots) == 1 && !expr.DependsOn(roots[0], f.y) {
		return f.explicit(roots[0], tag)
	}
	return f.implicit(g, rhs, tag)
}

// fit substitutes the initial conditions and solves for the constants in
// order. Constants with no condition stay free.
func (f *frame) fit(sol *Solution, b *ics.Binding) (*Solution, error) {
	lhs, rhs := expr.Freeze(sol.Equation.LHS), expr.Freeze(sol.Equation.RHS)
	var conds []expr.Expr
	if sol.Explicit {
		for _, order := range b.Orders(f.y) {
			v, _ := b.Get(f.y, order)
			d := rhs
			for k := 0; k < order; k++ {
				d = expr.Diff(d, f.x)
			}
			conds = append(conds, expr.Sub(expr.Replace(d, f.x, v.X0Expr), v.ValueExpr))
		}
	} else {
		v, ok := b.Get(f.y, 0)
		if !ok {
			return nil, fmt.Errorf("%w: implicit solution needs a value of %s", ErrNoSolution, f.y)
		}
		at := expr.Replace(expr.Replace(expr.Sub(lhs, rhs), f.y, v.ValueExpr), f.x, v.X0Expr)
		conds = append(conds, at)
	}

	used := make([]bool, len(conds))
	fitted := 0
	for _, name := range sol.Constants {
		c := &expr.Sym{Name: name}
		for i, cond := range conds {
			if used[i] || !expr.Contains(cond, name) {
				continue
			}
			roots, err := expr.SolveFor(cond, c)
			if err != nil || len(roots) == 0 {
				return nil, fmt.Errorf("%w: cannot fit %s to the initial conditions", ErrNoSolution, name)
			}
			used[i] = true
			fitted++
			for j := range conds {
				conds[j] = expr.Replace(conds[j], name, roots[0])
			}
			lhs = expr.Replace(lhs, name, roots[0])
			rhs = expr.Replace(rhs, name, roots[0])
			break
		}
	}
	for i, cond := range conds {
		if used[i] {
			continue
		}
		if r, ok := expr.Constant(cond); ok && r.Sign() != 0 {
			return nil, fmt.Errorf("%w: initial conditions are inconsistent", ErrNoSolution)
		}
	}

	out := &Solution{
		Explicit:    sol.Explicit,
		Method:      sol.Method,
		Diagnostics: sol.Diagnostics,
	}
	lhs, rhs = expr.Simplify(lhs), expr.Simplify(rhs)
	if sol.Explicit {
		out.Equation = &expr.Equation{LHS: sol.Equation.LHS, RHS: expr.Thaw(rhs, f.ec)}
	} else {
		out.Equation = &expr.Equation{LHS: expr.Thaw(lhs, f.ec), RHS: expr.Thaw(rhs, f.ec)}
	}
	out.Constants = constantsIn(expr.Sub(lhs, rhs))
	out.Diagnostics["constants_fitted"] = strconv.Itoa(fitted)
	return out, nil
}

// constantsIn lists C1, C2, ... in numeric order.
func constantsIn(e expr.Expr) []string {
	var out []string
	for _, s := range expr.Syms(e) {
		if isConstant(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i][1:])
		b, _ := strconv.Atoi(out[j][1:])
		return a < b
	})
	return out
}

func isConstant(name string) bool {
	if len(name) < 2 || name[0] != 'C' {
		return false
	}
	_, err := strconv.Atoi(name[1:])
	return err == nil
}

// renumber renames the constants of sol to Cnext, Cnext+1, ... and returns
// the next free index.
func renumber(sol *Solution, next int) int {
	names := map[string]string{}
	for _, c := range sol.Constants {
		names[c] = "C" + strconv.Itoa(next)
		next++
	}
	rename := func(e expr.Expr) expr.Expr {
		return expr.Map(e, func(n expr.Expr) expr.Expr {
			if s, ok := n.(*expr.Sym); ok {
				if to, ok := names[s.Name]; ok {
					return &expr.Sym{Name: to}
				}
			}
			return n
		})
	}
	sol.Equation = &expr.Equation{LHS: rename(sol.Equation.LHS), RHS: rename(sol.Equation.RHS)}
	for i, c := range sol.Constants {
		sol.Constants[i] = names[c]
	}
	return next
}
