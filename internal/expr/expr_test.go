package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) Expr {
	t.Helper()
	e, err := ParseExpr(src, DefaultContext())
	require.NoError(t, err, src)
	return e
}

func TestParseEquationCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"y'+2*y=4*x", "Derivative(y(x),x)+2*y(x)=4*x"},
		{"dy/dx = x*y", "Derivative(y(x),x)=x*y(x)"},
		{"y''-3y'+2y=0", "Derivative(y(x),x,2)-3*Derivative(y(x),x)+2*y(x)=0"},
		{"d2y/dx2 = -y", "Derivative(y(x),x,2)=-y(x)"},
		{"y'(x) = y(x)^2", "Derivative(y(x),x)=y(x)**2"},
		{"Derivative(y(x),x) = x**2", "Derivative(y(x),x)=x**2"},
		{"Derivative(y(x),x,3) = 0", "Derivative(y(x),x,3)=0"},
		{"y' = ln(x)", "Derivative(y(x),x)=log(x)"},
		{"y' = 2xy", "Derivative(y(x),x)=2*x*y(x)"},
		{"y' = sin(x)·y", "Derivative(y(x),x)=sin(x)*y(x)"},
		{"y' + y", "Derivative(y(x),x)+y(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			eq, err := ParseEquation(tt.in, DefaultContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, eq.String())
		})
	}
}

func TestPrintRoundTrip(t *testing.T) {
	srcs := []string{
		"-x^2", "2^-1", "a-(b-c)", "a/b/c", "a/(b*c)", "x^y^z", "(x^y)^z",
		"(x+1)*(x-1)", "-(x+y)", "x*(-y)", "x-(-1/3)", "exp(-x)*(x+2)",
		"(2*x+y)/(x+2*y)", "0.25*x", "-2*x/3",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			first := String(parse(t, src))
			again := String(parse(t, first))
			assert.Equal(t, first, again)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"y''''", "sin(", "x +", "y(0)", "dy", "x $ 2", "dy/dt"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseEquation(src, DefaultContext())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestSystemContext(t *testing.T) {
	ctx := SystemContext("y1", "y2")
	eq, err := ParseEquation("y1' = y2", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Derivative(y1(x),x)=y2(x)", eq.String())
	assert.Equal(t, []string{"y1", "y2"}, Deps(eq.Residual()))
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"x*y/x", "y(x)"},
		{"(x+1)^2", "x**2+2*x+1"},
		{"(2*x+2*y)/(x+y)", "2"},
		{"exp(log(x))", "x"},
		{"exp(2*log(x))", "x**2"},
		{"log(exp(x))", "x"},
		{"x-x", "0"},
		{"sqrt(4)", "2"},
		{"sqrt(x)*sqrt(x)", "x"},
		{"exp(x)*exp(-x)", "1"},
		{"3*x/6", "x/2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, String(Simplify(parse(t, tt.in))))
		})
	}
}

func TestEqualAndRatio(t *testing.T) {
	assert.True(t, Equal(parse(t, "(x+y)^2"), parse(t, "x^2+2*x*y+y^2")))
	assert.False(t, Equal(parse(t, "x+1"), parse(t, "x")))

	r, ok := Ratio(parse(t, "4*x+6*y"), parse(t, "2*x+3*y"))
	require.True(t, ok)
	assert.Equal(t, "2", r.RatString())

	_, ok = Ratio(parse(t, "x"), parse(t, "0"))
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"x^3", "3*x^2"},
		{"sin(x^2)", "2*x*cos(x^2)"},
		{"exp(3*x)", "3*exp(3*x)"},
		{"log(x)", "1/x"},
		{"x*k", "k"},
		{"1/x", "-1/x^2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Diff(parse(t, tt.in), "x")
			assert.True(t, Equal(got, parse(t, tt.want)), String(Simplify(got)))
		})
	}

	d := Diff(parse(t, "y^2"), "x")
	assert.True(t, Equal(d, parse(t, "2*y*y'")))
}

func TestIntegrate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"x^2", "x^3/3"},
		{"5", "5*x"},
		{"1/x", "log(x)"},
		{"exp(2*x)", "exp(2*x)/2"},
		{"x*exp(x)", "exp(x)*(x-1)"},
		{"sin(3*x)", "-cos(3*x)/3"},
		{"x*cos(x)", "x*sin(x)+cos(x)"},
		{"exp(x)*sin(x)", "exp(x)*(sin(x)-cos(x))/2"},
		{"1/(1+x^2)", "atan(x)"},
		{"2*x/(x^2+1)", "log(x^2+1)"},
		{"1/(2*x+1)", "log(x+1/2)/2"},
		{"x^2*exp(-x)", "-exp(-x)*(x^2+2*x+2)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Integrate(parse(t, tt.in), "x")
			require.True(t, ok)
			assert.True(t, Equal(got, parse(t, tt.want)), String(got))
		})
	}

	_, ok := Integrate(parse(t, "exp(x^2)"), "x")
	assert.False(t, ok)
}

func TestSolveFor(t *testing.T) {
	eq, err := ParseEquation("y'+2*y=4*x", DefaultContext())
	require.NoError(t, err)
	got, err := SolveFor(eq.Residual(), DefaultContext().Dep("y", 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, Equal(got[0], parse(t, "4*x-2*y")))

	eq, err = ParseEquation("(y')^2 = 4", DefaultContext())
	require.NoError(t, err)
	got, err = SolveFor(eq.Residual(), DefaultContext().Dep("y", 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", String(got[0]))
	assert.Equal(t, "-2", String(got[1]))

	eq, err = ParseEquation("sin(y') = x", DefaultContext())
	require.NoError(t, err)
	_, err = SolveFor(eq.Residual(), DefaultContext().Dep("y", 1))
	assert.ErrorIs(t, err, ErrNotIsolable)
}

func TestCompile(t *testing.T) {
	e := parse(t, "x*y + pi")
	f, err := Compile(e, Layout{Var: "x", Index: map[string]int{"y": 0}})
	require.NoError(t, err)
	v, err := f(2, []float64{3})
	require.NoError(t, err)
	assert.InDelta(t, 6+math.Pi, v, 1e-12)

	_, err = Compile(parse(t, "k*x"), Layout{Var: "x"})
	assert.ErrorIs(t, err, ErrUnbound)

	f, err = Compile(parse(t, "1/x"), Layout{Var: "x"})
	require.NoError(t, err)
	_, err = f(0, nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	f, err = Compile(parse(t, "log(x)"), Layout{Var: "x"})
	require.NoError(t, err)
	_, err = f(-1, nil)
	assert.ErrorIs(t, err, ErrDomain)

	v, err = Eval(parse(t, "E^2/2"), nil)
	require.NoError(t, err)
	assert.InDelta(t, math.E*math.E/2, v, 1e-12)
}

func TestLaTeX(t *testing.T) {
	assert.Equal(t, `\frac{x^{2}}{2}`, LaTeX(parse(t, "x^2/2")))
	assert.Equal(t, `\frac{d}{d x} y{\left(x \right)}`, LaTeX(parse(t, "y'")))
	assert.Equal(t, `\frac{d^{2}}{d x^{2}} y{\left(x \right)}`, LaTeX(parse(t, "y''")))
	assert.Equal(t, `C_{1} e^{-2 x}`, LaTeX(&Binary{Op: OpMul, L: &Sym{Name: "C1"}, R: Fn("exp", Negate(Mul(Int(2), &Sym{Name: "x"})))}))
	assert.Equal(t, `\sin{\left(x \right)}`, LaTeX(parse(t, "sin(x)")))
}

func TestText(t *testing.T) {
	eq, err := ParseEquation("y'' + y = x^2", DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "y'' + y = x^2", eq.Text())
	assert.Equal(t, "2·x", Text(parse(t, "2*x")))
}

func TestCoeffsIn(t *testing.T) {
	y := DefaultContext().Dep("y", 0)
	cs, ok := CoeffsIn(parse(t, "x*y^2 + 3*y - 1"), y)
	require.True(t, ok)
	require.Len(t, cs, 3)
	assert.Equal(t, "0", cs[0].Pow.RatString())
	assert.Equal(t, "-1", String(cs[0].Coef))
	assert.Equal(t, "2", cs[2].Pow.RatString())
	assert.Equal(t, "x", String(cs[2].Coef))

	_, ok = CoeffsIn(parse(t, "sin(y) + y"), y)
	assert.False(t, ok)
}

func TestSeparate(t *testing.T) {
	f, g, ok := Separate(Freeze(parse(t, "x + x*y")), "x", "y")
	require.True(t, ok)
	assert.True(t, Equal(Mul(f, g), Freeze(parse(t, "x*(1+y)"))))
	assert.False(t, DependsOn(f, "y"))
	assert.False(t, DependsOn(g, "x"))

	_, _, ok = Separate(Freeze(parse(t, "x + y")), "x", "y")
	assert.False(t, ok)

	f, g, ok = Separate(Freeze(parse(t, "exp(x+y)")), "x", "y")
	require.True(t, ok)
	assert.Equal(t, "exp(x)", String(f))
	assert.Equal(t, "exp(y)", String(g))
}

func TestSimplifyFractionalPowerKeepsSign(t *testing.T) {
	tests := []struct {
		in   string
		syms map[string]float64
	}{
		{"(C - 2/7*x^3)^(1/2)", map[string]float64{"C": 5.0 / 7, "x": 0}},
		{"(C - 2/7*x^3)^(1/2)", map[string]float64{"C": 1, "x": -1}},
		{"(8 - 4*x)^(1/2)", map[string]float64{"x": 1}},
		{"(-2*x)^(1/2)", map[string]float64{"x": -2}},
		{"(4 - 4*z)^(3/2)", map[string]float64{"z": 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e := parse(t, tt.in)
			want, err := Eval(e, tt.syms)
			require.NoError(t, err)

			simplified := Simplify(e)
			got, err := Eval(simplified, tt.syms)
			require.NoError(t, err, String(simplified))
			assert.InDelta(t, want, got, 1e-12)
		})
	}
}

func TestSolveForQuadraticKeepsRealRoot(t *testing.T) {
	ctx := DefaultContext()
	eq, err := ParseEquation("(y')^2 = 2 - x", ctx)
	require.NoError(t, err)
	roots, err := SolveFor(eq.Residual(), ctx.Dep("y", 1))
	require.NoError(t, err)
	require.Len(t, roots, 2)

	v, err := Eval(roots[0], map[string]float64{"x": 0})
	require.NoError(t, err, String(roots[0]))
	assert.InDelta(t, math.Sqrt2, v, 1e-12)
}

func TestPowDomain(t *testing.T) {
	f, err := Compile(parse(t, "x^0.5"), Layout{Var: "x"})
	require.NoError(t, err)
	_, err = f(-1, nil)
	assert.ErrorIs(t, err, ErrDomain)

	f, err = Compile(parse(t, "sqrt(x)"), Layout{Var: "x"})
	require.NoError(t, err)
	_, err = f(-1, nil)
	assert.ErrorIs(t, err, ErrDomain)

	f, err = Compile(parse(t, "x^3"), Layout{Var: "x"})
	require.NoError(t, err)
	v, err := f(-2, nil)
	require.NoError(t, err)
	assert.Equal(t, -8.0, v)
}
