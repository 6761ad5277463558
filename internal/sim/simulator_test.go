package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/integrators"
)

type decay struct{}

func (decay) Derive(x float64, s dynamo.State) (dynamo.State, error) {
	return dynamo.State{-s[0]}, nil
}

func (decay) Dim() int { return 1 }

type reciprocal struct{}

var errPole = errors.New("pole")

func (reciprocal) Derive(x float64, s dynamo.State) (dynamo.State, error) {
	if x >= 0.25 {
		return nil, errPole
	}
	return dynamo.State{1}, nil
}

func (reciprocal) Dim() int { return 1 }

type blowup struct{}

func (blowup) Derive(x float64, s dynamo.State) (dynamo.State, error) {
	return dynamo.State{s[0] * s[0] * 1e200}, nil
}

func (blowup) Dim() int { return 1 }

func TestSimulatorRun(t *testing.T) {
	sim := New(decay{}, integrators.NewEuler())

	cfg := dynamo.Config{Step: 0.1, Steps: 10}
	trace, err := sim.Run(0, dynamo.State{1.0}, cfg, []string{"y"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if trace.Len() != 11 {
		t.Errorf("expected 11 samples, got %d", trace.Len())
	}

	for i, s := range trace.Samples {
		if want := float64(i) * 0.1; math.Abs(s.X-want) > 1e-12 {
			t.Errorf("sample %d: expected x=%g, got %g", i, want, s.X)
		}
	}

	if trace.Samples[0].State[0] != 1.0 {
		t.Errorf("expected initial state 1, got %v", trace.Samples[0].State[0])
	}

	finalState := trace.Samples[trace.Len()-1].State[0]
	expected := 1.0 * math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorOffsetStart(t *testing.T) {
	sim := New(decay{}, integrators.NewRK4())
	trace, err := sim.Run(2, dynamo.State{3}, dynamo.Config{Step: 0.5, Steps: 4}, []string{"y"})
	if err != nil {
		t.Fatal(err)
	}
	if got := trace.Samples[4].X; got != 4 {
		t.Errorf("expected final x 4, got %g", got)
	}
	want := 3 * math.Exp(-2)
	if got := trace.Samples[4].State[0]; math.Abs(got-want) > 1e-3 {
		t.Errorf("expected %.5f, got %.5f", want, got)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(decay{}, integrators.NewEuler())

	tests := []struct {
		name string
		cfg  dynamo.Config
	}{
		{"zero step", dynamo.Config{Step: 0, Steps: 10}},
		{"negative step", dynamo.Config{Step: -0.1, Steps: 10}},
		{"nan step", dynamo.Config{Step: math.NaN(), Steps: 10}},
		{"zero steps", dynamo.Config{Step: 0.1, Steps: 0}},
		{"negative steps", dynamo.Config{Step: 0.1, Steps: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(0, dynamo.State{1.0}, tt.cfg, nil)
			if !errors.Is(err, dynamo.ErrInvalidStep) {
				t.Errorf("expected ErrInvalidStep, got %v", err)
			}
		})
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(decay{}, integrators.NewEuler())
	_, err := sim.Run(0, dynamo.State{1, 2}, dynamo.DefaultConfig(), nil)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSimulatorStepError(t *testing.T) {
	sim := New(reciprocal{}, integrators.NewEuler())
	_, err := sim.Run(0, dynamo.State{0}, dynamo.Config{Step: 0.1, Steps: 10}, nil)

	var stepErr *dynamo.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != 3 {
		t.Errorf("expected failure at step 3, got %d", stepErr.Step)
	}
	if !errors.Is(err, errPole) {
		t.Errorf("expected wrapped pole error, got %v", err)
	}
}

func TestSimulatorKeepsNonFiniteValues(t *testing.T) {
	sim := New(blowup{}, integrators.NewEuler())
	trace, err := sim.Run(0, dynamo.State{1e100}, dynamo.Config{Step: 1, Steps: 3}, []string{"y"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if trace.Len() != 4 {
		t.Errorf("expected 4 samples, got %d", trace.Len())
	}
	if trace.IsFinite() {
		t.Error("expected non-finite values in trace")
	}
}
