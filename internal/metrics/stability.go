package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Stability is the fraction of samples whose slots all stay finite and within
// threshold. FirstEscape is the x of the first sample that did not.
type Stability struct {
	threshold float64
	inside    int
	total     int
	escaped   bool
	escapeX   float64
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x float64, st dynamo.State) {
	s.total++
	for _, v := range st {
		if !finite(v) || math.Abs(v) > s.threshold {
			if !s.escaped {
				s.escaped, s.escapeX = true, x
			}
			return
		}
	}
	s.inside++
}

func (s *Stability) Value() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.inside) / float64(s.total)
}

// FirstEscape reports the x where the trace first left the bound.
func (s *Stability) FirstEscape() (float64, bool) {
	return s.escapeX, s.escaped
}

func (s *Stability) Reset() {
	*s = Stability{threshold: s.threshold}
}
