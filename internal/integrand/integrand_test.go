package integrand

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/expr"
)

func parse(t *testing.T, src string, ctx expr.Context) *expr.Equation {
	t.Helper()
	eq, err := expr.ParseEquation(src, ctx)
	require.NoError(t, err)
	return eq
}

func TestBuildScalarExplicit(t *testing.T) {
	ctx := expr.DefaultContext()
	in, err := BuildScalar(parse(t, "y' = x*y", ctx), ctx, "y")
	require.NoError(t, err)

	assert.Equal(t, 1, in.Dim())
	assert.Equal(t, []string{"y"}, in.Names())

	rate, err := in.Derive(2, dynamo.State{3})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, rate[0], 1e-12)
}

func TestBuildScalarIsolates(t *testing.T) {
	ctx := expr.DefaultContext()
	cases := []struct {
		src  string
		x    float64
		y    float64
		want float64
	}{
		{"2*y' - 4*x = 0", 3, 0, 6},
		{"y' + 2*y = 4*x", 1, 1, 2},
		{"x*y' = y", 2, 4, 2},
		{"y'*y = x", 3, 2, 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			in, err := BuildScalar(parse(t, tc.src, ctx), ctx, "y")
			require.NoError(t, err)
			rate, err := in.Derive(tc.x, dynamo.State{tc.y})
			require.NoError(t, err)
			assert.InDelta(t, tc.want, rate[0], 1e-12)
		})
	}
}

func TestBuildScalarQuadraticRealBranch(t *testing.T) {
	ctx := expr.DefaultContext()
	cases := []struct {
		src  string
		x    float64
		y    float64
		want float64
	}{
		{"(y')^2 = 2 - x", 0, 0, math.Sqrt2},
		{"(y')^2 + x = 2", 1, 0, 1},
		{"(y')^2 = 1 - y", 0, 0, 1},
		{"(y')^2 = 1 - y", 0, -3, 2},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			in, err := BuildScalar(parse(t, tc.src, ctx), ctx, "y")
			require.NoError(t, err)
			rate, err := in.Derive(tc.x, dynamo.State{tc.y})
			require.NoError(t, err, expr.String(in.Rates()[0]))
			assert.InDelta(t, tc.want, rate[0], 1e-12)
		})
	}
}

func TestBuildScalarReducesOrder(t *testing.T) {
	ctx := expr.DefaultContext()
	in, err := BuildScalar(parse(t, "y'' + y = 0", ctx), ctx, "y")
	require.NoError(t, err)

	assert.Equal(t, []string{"y", "y'"}, in.Names())
	rate, err := in.Derive(0, dynamo.State{1, 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, -1}, []float64(rate), 1e-12)

	in, err = BuildScalar(parse(t, "y''' = x + y'", ctx), ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, 3, in.Dim())
	rate, err = in.Derive(1, dynamo.State{0, 2, 5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 5, 3}, []float64(rate), 1e-12)
}

func TestBuildScalarNumericDomainErrorPropagates(t *testing.T) {
	ctx := expr.DefaultContext()
	in, err := BuildScalar(parse(t, "y' = 1/y", ctx), ctx, "y")
	require.NoError(t, err)

	_, err = in.Derive(0, dynamo.State{0})
	assert.ErrorIs(t, err, expr.ErrDivisionByZero)

	_, err = in.Derive(0, dynamo.State{1, 2})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestBuildScalarRejects(t *testing.T) {
	ctx := expr.DefaultContext()

	_, err := BuildScalar(parse(t, "y' + y", ctx), ctx, "y")
	assert.ErrorIs(t, err, ErrNotEquality)

	_, err = BuildScalar(parse(t, "y = x", ctx), ctx, "y")
	assert.ErrorIs(t, err, ErrNotExplicitForm)

	_, err = BuildScalar(parse(t, "sin(y') = x", ctx), ctx, "y")
	assert.ErrorIs(t, err, ErrNotExplicitForm)

	_, err = BuildScalar(parse(t, "y' = k*y", ctx), ctx, "y")
	assert.ErrorIs(t, err, expr.ErrUnbound)
}

func TestBuildSystem(t *testing.T) {
	ctx := expr.SystemContext("y1", "y2")
	eqs := []*expr.Equation{
		parse(t, "y1' = y2", ctx),
		parse(t, "y2' + y1 = 0", ctx),
	}
	in, err := BuildSystem(eqs, ctx, []string{"y1", "y2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"y1", "y2"}, in.Names())
	rate, err := in.Derive(0, dynamo.State{1, 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, -1}, []float64(rate), 1e-12)
}

func TestBuildSystemRejects(t *testing.T) {
	ctx := expr.SystemContext("y1", "y2")

	_, err := BuildSystem([]*expr.Equation{parse(t, "y1' = y2", ctx)}, ctx, []string{"y1", "y2"})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	_, err = BuildSystem([]*expr.Equation{
		parse(t, "y1' = y2'", ctx),
		parse(t, "y2' = y1", ctx),
	}, ctx, []string{"y1", "y2"})
	assert.ErrorIs(t, err, ErrNotExplicitForm)

	_, err = BuildSystem([]*expr.Equation{
		parse(t, "y1'' = y2", ctx),
		parse(t, "y2' = y1", ctx),
	}, ctx, []string{"y1", "y2"})
	assert.ErrorIs(t, err, ErrNotExplicitForm)
}
