package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Jump is the largest Euclidean distance between consecutive finite states.
// A large jump relative to peak points at a step size that is too coarse.
type Jump struct {
	prev dynamo.State
	max  float64
}

func NewJump() *Jump {
	return &Jump{}
}

func (j *Jump) Name() string { return "jump" }

func (j *Jump) Observe(x float64, s dynamo.State) {
	if !s.IsValid() {
		j.prev = nil
		return
	}
	if j.prev != nil {
		if d := s.Sub(j.prev).Norm(); finite(d) {
			j.max = math.Max(j.max, d)
		}
	}
	j.prev = s.Clone()
}

func (j *Jump) Value() float64 { return j.max }

func (j *Jump) Reset() {
	j.prev, j.max = nil, 0
}
