// Package integrand compiles canonical equations in explicit derivative form
// into numeric right-hand sides for the integrators.
package integrand

import (
	"errors"
	"fmt"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/expr"
)

var (
	// ErrNotEquality means the equation has no right-hand side to isolate against.
	ErrNotEquality = errors.New("integrand: equation is not an equality")

	// ErrNotExplicitForm means the highest derivative could not be isolated.
	ErrNotExplicitForm = errors.New("integrand: derivative cannot be isolated")
)

// Integrand is a first-order system built from one or more equations. Each
// slot of the state is named by expr.Key; Derive allocates its result and
// holds no mutable state, so one Integrand may be shared across goroutines.
type Integrand struct {
	names []string
	rates []expr.Expr
	fns   []expr.Func
}

var _ dynamo.System = (*Integrand)(nil)

func (in *Integrand) Dim() int { return len(in.fns) }

// Names labels the state slots, e.g. y, y' for a second-order equation.
func (in *Integrand) Names() []string { return in.names }

// Rates returns the symbolic right-hand side of each slot.
func (in *Integrand) Rates() []expr.Expr { return in.rates }

func (in *Integrand) Derive(x float64, s dynamo.State) (dynamo.State, error) {
	if len(s) != len(in.fns) {
		return nil, fmt.Errorf("%w: got %d values, want %d", dynamo.ErrDimensionMismatch, len(s), len(in.fns))
	}
	out := make(dynamo.State, len(in.fns))
	for i, f := range in.fns {
		v, err := f(x, s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.names[i], err)
		}
		out[i] = v
	}
	return out, nil
}

// BuildScalar isolates the highest derivative of unknown and reduces the
// equation to a first-order system over unknown, unknown', ... up to one
// below the equation's order.
func BuildScalar(eq *expr.Equation, ctx expr.Context, unknown string) (*Integrand, error) {
	if !eq.IsEquality() {
		return nil, fmt.Errorf("%w: %s", ErrNotEquality, eq)
	}
	order := expr.MaxOrder(eq.Residual(), unknown)
	if order < 1 {
		return nil, fmt.Errorf("%w: no derivative of %s in %s", ErrNotExplicitForm, unknown, eq)
	}
	top, err := isolate(eq, ctx.Dep(unknown, order))
	if err != nil {
		return nil, err
	}

	in := &Integrand{}
	index := make(map[string]int, order)
	for k := 0; k < order; k++ {
		index[expr.Key(unknown, k)] = k
		in.names = append(in.names, expr.Key(unknown, k))
		if k < order-1 {
			in.rates = append(in.rates, ctx.Dep(unknown, k+1))
		} else {
			in.rates = append(in.rates, top)
		}
	}
	if err := in.compile(expr.Layout{Var: ctx.Var, Index: index}); err != nil {
		return nil, err
	}
	return in, nil
}

// BuildSystem isolates unknowns[i]' in eqs[i] for each pair, in declaration
// order. Every equation must be first order in its own unknown; rates may
// refer to any of the unknowns.
func BuildSystem(eqs []*expr.Equation, ctx expr.Context, unknowns []string) (*Integrand, error) {
	if len(eqs) != len(unknowns) {
		return nil, fmt.Errorf("%w: %d equations for %d unknowns", dynamo.ErrDimensionMismatch, len(eqs), len(unknowns))
	}
	in := &Integrand{}
	index := make(map[string]int, len(unknowns))
	for i, name := range unknowns {
		eq := eqs[i]
		if !eq.IsEquality() {
			return nil, fmt.Errorf("%w: %s", ErrNotEquality, eq)
		}
		if order := expr.MaxOrder(eq.Residual(), name); order != 1 {
			return nil, fmt.Errorf("%w: %s must be first order in %s, found order %d", ErrNotExplicitForm, eq, name, order)
		}
		rate, err := isolate(eq, ctx.Dep(name, 1))
		if err != nil {
			return nil, err
		}
		index[expr.Key(name, 0)] = i
		in.names = append(in.names, name)
		in.rates = append(in.rates, rate)
	}
	if err := in.compile(expr.Layout{Var: ctx.Var, Index: index}); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Integrand) compile(l expr.Layout) error {
	in.fns = make([]expr.Func, len(in.rates))
	for i, r := range in.rates {
		if d := unboundDerivative(r, l.Index); d != nil {
			return fmt.Errorf("%w: rate of %s still contains %s", ErrNotExplicitForm, in.names[i], expr.String(d))
		}
		f, err := expr.Compile(r, l)
		if err != nil {
			return fmt.Errorf("rate of %s: %w", in.names[i], err)
		}
		in.fns[i] = f
	}
	return nil
}

// isolate returns the right side when the left side is already the bare
// target, and otherwise the first root of the residual in target.
func isolate(eq *expr.Equation, target *expr.Dep) (expr.Expr, error) {
	if d, ok := eq.LHS.(*expr.Dep); ok && *d == *target && expr.MaxOrder(eq.RHS, target.Name) < target.Order {
		return eq.RHS, nil
	}
	roots, err := expr.SolveFor(eq.Residual(), target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotExplicitForm, eq, err)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %s has no solution for %s", ErrNotExplicitForm, eq, expr.String(target))
	}
	return roots[0], nil
}

// unboundDerivative returns the first derivative in e that is not a state
// slot. Lower derivatives of a reduced scalar equation are slots.
func unboundDerivative(e expr.Expr, index map[string]int) *expr.Dep {
	var found *expr.Dep
	expr.Walk(e, func(n expr.Expr) bool {
		if d, ok := n.(*expr.Dep); ok && d.Order > 0 {
			if _, slot := index[expr.Key(d.Name, d.Order)]; !slot {
				found = d
			}
		}
		return found == nil
	})
	return found
}
