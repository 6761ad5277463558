package integrators

import "github.com/san-kum/odelab/internal/dynamo"

// Euler is the explicit Euler method: s_{n+1} = s_n + h*f(x_n, s_n).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(sys dynamo.System, x float64, s dynamo.State, h float64) (dynamo.State, error) {
	ds, err := sys.Derive(x, s)
	if err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(s))
	for i := range s {
		result[i] = s[i] + h*ds[i]
	}
	return result, nil
}
