package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odelab/internal/dynamo"
)

// PlotTrace draws one chart per state column. Infinite values are plotted as
// gaps; a column with no finite value is reported instead of drawn.
func PlotTrace(t *dynamo.Trace, width, height int) string {
	var b strings.Builder
	xs := t.Xs()
	for i, name := range t.Names {
		col := gaps(t.Column(i))
		caption := fmt.Sprintf("%s(x), x in [%g, %g]", name, first(xs), last(xs))
		if len(finiteOnly(col)) == 0 {
			b.WriteString(caption + ": no finite values\n\n")
			continue
		}
		b.WriteString(asciigraph.Plot(col,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(caption),
		))
		b.WriteString("\n\n")
	}
	return b.String()
}

// gaps maps infinities to NaN, which asciigraph leaves blank.
func gaps(col []float64) []float64 {
	out := make([]float64, len(col))
	for i, v := range col {
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func finiteOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func first(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[0]
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
