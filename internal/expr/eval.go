package expr

import (
	"fmt"
	"math"
	"strings"
)

// Func is a compiled numeric expression over the independent variable and a state vector.
type Func func(x float64, state []float64) (float64, error)

// Layout binds the leaves of a tree to numeric inputs at compile time.
type Layout struct {
	// Var is the independent variable; empty means the expression must be constant.
	Var string
	// Index maps Key(name, order) of a dependent function to its state slot.
	Index map[string]int
	// Syms holds values for free symbols such as parameters.
	Syms map[string]float64
}

// Key names a dependent function derivative in a Layout index: y, y', y''.
func Key(name string, order int) string {
	return name + strings.Repeat("'", order)
}

// Compile turns e into a closure. Unbound leaves fail here, not at call time.
func Compile(e Expr, l Layout) (Func, error) {
	switch n := e.(type) {
	case *Num:
		v, _ := n.V.Float64()
		return func(float64, []float64) (float64, error) { return v, nil }, nil
	case *Const:
		v := math.Pi
		if n.Name == "E" {
			v = math.E
		}
		return func(float64, []float64) (float64, error) { return v, nil }, nil
	case *Sym:
		if l.Var != "" && n.Name == l.Var {
			return func(x float64, _ []float64) (float64, error) { return x, nil }, nil
		}
		if v, ok := l.Syms[n.Name]; ok {
			return func(float64, []float64) (float64, error) { return v, nil }, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnbound, n.Name)
	case *Dep:
		i, ok := l.Index[Key(n.Name, n.Order)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnbound, Key(n.Name, n.Order))
		}
		return func(_ float64, s []float64) (float64, error) { return s[i], nil }, nil
	case *Neg:
		f, err := Compile(n.X, l)
		if err != nil {
			return nil, err
		}
		return func(x float64, s []float64) (float64, error) {
			v, err := f(x, s)
			return -v, err
		}, nil
	case *Call:
		return compileCall(n, l)
	case *Binary:
		return compileBinary(n, l)
	}
	return nil, fmt.Errorf("%w: unknown node %T", ErrUnbound, e)
}

func compileBinary(n *Binary, l Layout) (Func, error) {
	lf, err := Compile(n.L, l)
	if err != nil {
		return nil, err
	}
	rf, err := Compile(n.R, l)
	if err != nil {
		return nil, err
	}
	op := n.Op
	return func(x float64, s []float64) (float64, error) {
		a, err := lf(x, s)
		if err != nil {
			return 0, err
		}
		b, err := rf(x, s)
		if err != nil {
			return 0, err
		}
		switch op {
		case OpAdd:
			return a + b, nil
		case OpSub:
			return a - b, nil
		case OpMul:
			return a * b, nil
		case OpDiv:
			if b == 0 {
				return 0, ErrDivisionByZero
			}
			return a / b, nil
		}
		if a < 0 && b != math.Trunc(b) {
			return 0, fmt.Errorf("%w: (%g)^(%g)", ErrDomain, a, b)
		}
		return math.Pow(a, b), nil
	}, nil
}

func compileCall(n *Call, l Layout) (Func, error) {
	arg, err := Compile(n.Arg, l)
	if err != nil {
		return nil, err
	}
	fn, ok := callTable[n.Fn]
	if !ok {
		return nil, fmt.Errorf("%w: function %s", ErrUnbound, n.Fn)
	}
	name := n.Fn
	return func(x float64, s []float64) (float64, error) {
		v, err := arg(x, s)
		if err != nil {
			return 0, err
		}
		out, ok := fn(v)
		if !ok {
			return 0, fmt.Errorf("%w: %s(%g)", ErrDomain, name, v)
		}
		return out, nil
	}, nil
}

var callTable = map[string]func(float64) (float64, bool){
	"sin":  func(v float64) (float64, bool) { return math.Sin(v), true },
	"cos":  func(v float64) (float64, bool) { return math.Cos(v), true },
	"tan":  func(v float64) (float64, bool) { return math.Tan(v), true },
	"exp":  func(v float64) (float64, bool) { return math.Exp(v), true },
	"sinh": func(v float64) (float64, bool) { return math.Sinh(v), true },
	"cosh": func(v float64) (float64, bool) { return math.Cosh(v), true },
	"tanh": func(v float64) (float64, bool) { return math.Tanh(v), true },
	"atan": func(v float64) (float64, bool) { return math.Atan(v), true },
	"abs":  func(v float64) (float64, bool) { return math.Abs(v), true },
	"log":  func(v float64) (float64, bool) { return math.Log(v), v > 0 },
	"sqrt": func(v float64) (float64, bool) { return math.Sqrt(v), v >= 0 },
	"asin": func(v float64) (float64, bool) { return math.Asin(v), v >= -1 && v <= 1 },
	"acos": func(v float64) (float64, bool) { return math.Acos(v), v >= -1 && v <= 1 },
	"sec": func(v float64) (float64, bool) {
		c := math.Cos(v)
		return 1 / c, c != 0
	},
	"csc": func(v float64) (float64, bool) {
		s := math.Sin(v)
		return 1 / s, s != 0
	},
	"cot": func(v float64) (float64, bool) {
		t := math.Tan(v)
		return 1 / t, t != 0
	},
}

// Eval evaluates a constant expression; syms may bind free symbols.
func Eval(e Expr, syms map[string]float64) (float64, error) {
	f, err := Compile(e, Layout{Syms: syms})
	if err != nil {
		return 0, err
	}
	return f(0, nil)
}
