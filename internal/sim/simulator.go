// Package sim drives an integrator over a fixed number of steps.
package sim

import (
	"fmt"

	"github.com/san-kum/odelab/internal/dynamo"
)

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
}

func New(sys dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{sys: sys, integrator: integrator}
}

// Run integrates from (x0, s0) for cfg.Steps steps of size cfg.Step. The trace
// holds cfg.Steps+1 samples with x_n = x0 + n*h. Non-finite values are not
// trapped; they stay in the trace. A failing right-hand side stops the run
// with a *dynamo.StepError.
func (s *Simulator) Run(x0 float64, s0 dynamo.State, cfg dynamo.Config, names []string) (*dynamo.Trace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(s0) != s.sys.Dim() {
		return nil, fmt.Errorf("%w: state has %d values, system has %d", dynamo.ErrDimensionMismatch, len(s0), s.sys.Dim())
	}

	trace := &dynamo.Trace{
		Names:   names,
		Samples: make([]dynamo.Sample, 0, cfg.Steps+1),
	}
	x := x0
	state := s0.Clone()
	trace.Samples = append(trace.Samples, dynamo.Sample{X: x, State: state.Clone()})

	for i := 0; i < cfg.Steps; i++ {
		next, err := s.integrator.Step(s.sys, x, state, cfg.Step)
		if err != nil {
			return nil, &dynamo.StepError{Step: i, X: x, State: state.Clone(), Wrapped: err}
		}
		state = next
		x = x0 + float64(i+1)*cfg.Step
		trace.Samples = append(trace.Samples, dynamo.Sample{X: x, State: state.Clone()})
	}

	return trace, nil
}
