package notation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odelab/internal/expr"
)

func TestNormalizeSplitsClauses(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		clauses []string
	}{
		{"semicolon", "dy/dx = x*y; y(0)=1", "Derivative(y(x),x)=x*y(x)", []string{"y(0)=1"}},
		{"newline", "y'' + y = 0\ny(0)=0\ny'(0)=1", "Derivative(y(x),x,2)+y(x)=0", []string{"y(0)=0", "y'(0)=1"}},
		{"comma", "y' = y, y(0) = 2", "Derivative(y(x),x)=y(x)", []string{"y(0) = 2"}},
		{"no clauses", "y' = x^2", "Derivative(y(x),x)=x**2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Normalize(tt.in, expr.DefaultContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Canonical)
			assert.Equal(t, tt.clauses, n.Clauses)
			assert.Nil(t, n.Exact)
		})
	}
}

func TestSplitKeepsArgumentCommas(t *testing.T) {
	got := Split("y' = g(x, y(x)), y(0)=2")
	assert.Equal(t, []string{"y' = g(x, y(x))", "y(0)=2"}, got)

	got = Split("y' = y , y'(1)=3 ;; ")
	assert.Equal(t, []string{"y' = y", "y'(1)=3"}, got)
}

func TestNormalizeEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", " ;\n ; "} {
		_, err := Normalize(in, expr.DefaultContext())
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	_, err := Normalize("y' = (x", expr.DefaultContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedEquation)
	assert.ErrorIs(t, err, expr.ErrSyntax)
	assert.Contains(t, err.Error(), "y' = (x")
}

func TestNormalizeExactForm(t *testing.T) {
	ctx := expr.DefaultContext()
	for _, in := range []string{"(2*x+y)dx+(x+2*y)dy=0", "(2*x + y) DX + (x + 2*y) DY = 0"} {
		n, err := Normalize(in, ctx)
		require.NoError(t, err)
		require.NotNil(t, n.Exact)
		assert.Equal(t, "Derivative(y(x),x)=-(2*x+y(x))/(x+2*y(x))", n.Canonical)

		rate, err := expr.SolveFor(n.Equation.Residual(), ctx.Dep("y", 1))
		require.NoError(t, err)
		want := expr.MustParse("-(2*x+y)/(x+2*y)", ctx)
		assert.True(t, expr.Equal(rate[0], want))
	}
}

func TestNormalizeEquivalentNotations(t *testing.T) {
	ctx := expr.DefaultContext()
	var canon []string
	for _, in := range []string{"y'' + y = 0", "d2y/dx2 + y = 0", "Derivative(y(x),x,2)+y(x)=0", "y''(x) + y(x) = 0"} {
		n, err := Normalize(in, ctx)
		require.NoError(t, err)
		canon = append(canon, n.Canonical)
	}
	for _, c := range canon[1:] {
		assert.Equal(t, canon[0], c)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	ctx := expr.DefaultContext()
	inputs := []string{
		"dy/dx = y",
		"dy/dx + 2*y = 4*x",
		"dy/dx = (x^2+y^2)/(x*y)",
		"dy/dx - 2*y/x = x^2*y^3",
		"(2*x+y)dx + (x+2*y)dy = 0",
		"y*y'' + (y')^2 = 0",
		"y' = -x^2 + exp(-x)*sin(3x)",
		"y' = x/(-2)",
		"y''' - y = 2^-x",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first, err := Normalize(in, ctx)
			require.NoError(t, err)
			again, err := Normalize(first.Canonical, ctx)
			require.NoError(t, err)
			assert.Equal(t, first.Canonical, again.Canonical)
		})
	}
}

func TestNormalizeSystemNames(t *testing.T) {
	n, err := Normalize("y1' = y1 - y2", expr.SystemContext("y1", "y2"))
	require.NoError(t, err)
	assert.Equal(t, "Derivative(y1(x),x)=y1(x)-y2(x)", n.Canonical)
}
