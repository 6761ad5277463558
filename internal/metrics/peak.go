package metrics

import (
	"math"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Peak is the largest finite magnitude seen in any slot.
type Peak struct {
	name string
	max  float64
}

func NewPeak() *Peak {
	return &Peak{name: "peak"}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(x float64, s dynamo.State) {
	for _, v := range s {
		if finite(v) {
			p.max = math.Max(p.max, math.Abs(v))
		}
	}
}

func (p *Peak) Value() float64 { return p.max }

func (p *Peak) Reset() { p.max = 0 }
