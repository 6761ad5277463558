package metrics

import "github.com/san-kum/odelab/internal/dynamo"

// Finite is the fraction of samples whose every slot is finite.
type Finite struct {
	name    string
	good    int
	samples int
}

func NewFinite() *Finite {
	return &Finite{name: "finite"}
}

func (f *Finite) Name() string { return f.name }

func (f *Finite) Observe(x float64, s dynamo.State) {
	f.samples++
	for _, v := range s {
		if !finite(v) {
			return
		}
	}
	f.good++
}

func (f *Finite) Value() float64 {
	if f.samples == 0 {
		return 1.0
	}
	return float64(f.good) / float64(f.samples)
}

func (f *Finite) Reset() {
	f.good = 0
	f.samples = 0
}
