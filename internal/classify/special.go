package classify

import (
	"github.com/san-kum/odelab/internal/expr"
)

// Special is a closed form recognized directly from the residual.
type Special struct {
	Name     string
	Pattern  string
	Solution *expr.Equation
}

// Patterns and solutions are written in y; they are renamed to the primary function.
var specialTable = []struct {
	name, pattern, solution string
}{
	{"product rule", "y*y''+(y')^2", "y^2 = C1*x + C2"},
	{"logarithmic derivative", "y*y''-(y')^2", "y = C1*exp(C2*x)"},
	{"exponential substitution", "y''+(y')^2", "y = log(C1*x + C2)"},
}

// MatchSpecial returns the table entry whose pattern is a nonzero constant
// multiple of the simplified residual, or nil.
func MatchSpecial(residual expr.Expr, ctx expr.Context) *Special {
	tctx := expr.Context{Var: ctx.Var, Funcs: []string{"y"}}
	rename := func(e expr.Expr) expr.Expr {
		return expr.Map(e, func(n expr.Expr) expr.Expr {
			if d, ok := n.(*expr.Dep); ok && d.Name == "y" {
				return ctx.Dep(ctx.Primary(), d.Order)
			}
			return n
		})
	}
	for _, row := range specialTable {
		pattern := rename(expr.MustParse(row.pattern, tctx))
		k, ok := expr.Ratio(residual, pattern)
		if !ok || k.Sign() == 0 {
			continue
		}
		sol, err := expr.ParseEquation(row.solution, tctx)
		if err != nil {
			continue
		}
		return &Special{
			Name:     row.name,
			Pattern:  row.pattern,
			Solution: &expr.Equation{LHS: rename(sol.LHS), RHS: rename(sol.RHS)},
		}
	}
	return nil
}
