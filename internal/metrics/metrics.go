// Package metrics summarizes numeric traces sample by sample.
package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Metric observes one sample at a time and reports a single number.
type Metric interface {
	Name() string
	Observe(x float64, s dynamo.State)
	Value() float64
	Reset()
}

// EscapeThreshold bounds the magnitude the default stability metric accepts.
const EscapeThreshold = 1e6

// Defaults returns the metrics recorded for every saved run.
func Defaults() []Metric {
	return []Metric{NewPeak(), NewFinite(), NewStability(EscapeThreshold), NewJump()}
}

// Escape is implemented by metrics that can locate where a trace left its bound.
type Escape interface {
	FirstEscape() (float64, bool)
}

// FirstEscape returns the earliest escape point reported by any of ms after
// they have been evaluated.
func FirstEscape(ms ...Metric) (float64, bool) {
	var (
		at    float64
		found bool
	)
	for _, m := range ms {
		e, ok := m.(Escape)
		if !ok {
			continue
		}
		if x, ok := e.FirstEscape(); ok && (!found || x < at) {
			at, found = x, true
		}
	}
	return at, found
}

// Evaluate feeds every sample of t through ms and collects the values by name.
func Evaluate(t *dynamo.Trace, ms ...Metric) map[string]float64 {
	if t == nil {
		return nil
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, s := range t.Samples {
			m.Observe(s.X, s.State)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
