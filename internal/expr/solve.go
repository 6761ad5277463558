package expr

import (
	"fmt"
	"math/big"
)

// SolveFor isolates target in residual = 0. Linear and quadratic occurrences
// are supported; quadratic roots come back with the + branch first.
func SolveFor(residual, target Expr) ([]Expr, error) {
	coeffs, ok := CoeffsIn(residual, target)
	if !ok {
		return nil, fmt.Errorf("%w: %s occurs inside another term", ErrNotIsolable, String(target))
	}
	byPow := map[int64]Expr{}
	lowest := int64(0)
	for _, c := range coeffs {
		if !c.Pow.IsInt() || !c.Pow.Num().IsInt64() {
			return nil, fmt.Errorf("%w: fractional power of %s", ErrNotIsolable, String(target))
		}
		k := c.Pow.Num().Int64()
		if k < lowest {
			lowest = k
		}
		byPow[k] = c.Coef
	}
	shifted := map[int64]Expr{}
	degree := int64(0)
	for k, c := range byPow {
		shifted[k-lowest] = c
		if k-lowest > degree {
			degree = k - lowest
		}
	}
	coef := func(k int64) Expr {
		if c, ok := shifted[k]; ok {
			return c
		}
		return Int(0)
	}
	switch degree {
	case 1:
		return []Expr{Simplify(Negate(Div(coef(0), coef(1))))}, nil
	case 2:
		a, b, c := coef(2), coef(1), coef(0)
		if IsZero(c) {
			// Drop the trivial root target = 0.
			return []Expr{Simplify(Negate(Div(b, a)))}, nil
		}
		disc := Simplify(Sub(Pow(b, Int(2)), Mul(Mul(Int(4), a), c)))
		if r, ok := Constant(disc); ok && r.Sign() < 0 {
			return nil, fmt.Errorf("%w: no real root for %s", ErrNotIsolable, String(target))
		}
		root := Pow(disc, RatNum(big.NewRat(1, 2)))
		twoA := Mul(Int(2), a)
		plus := Simplify(Div(Add(Negate(b), root), twoA))
		minus := Simplify(Div(Sub(Negate(b), root), twoA))
		if Equal(plus, minus) {
			return []Expr{plus}, nil
		}
		return []Expr{plus, minus}, nil
	}
	return nil, fmt.Errorf("%w: %s does not occur with degree 1 or 2", ErrNotIsolable, String(target))
}
