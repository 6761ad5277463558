package dynamo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order right-hand side s' = Derive(x, s). Derive may fail
// with a numeric-domain error such as division by zero.
type System interface {
	Derive(x float64, s State) (State, error)
	Dim() int
}

// Integrator advances a System by one fixed step h.
type Integrator interface {
	Name() string
	Step(sys System, x float64, s State, h float64) (State, error)
}

// Config holds fixed-step parameters.
type Config struct {
	Step  float64 `json:"step" yaml:"step"`
	Steps int     `json:"steps" yaml:"steps"`
}

func DefaultConfig() Config {
	return Config{
		Step:  0.1,
		Steps: 50,
	}
}

// Validate rejects non-positive step sizes and step counts, including steps=0.
func (c Config) Validate() error {
	if !(c.Step > 0) || math.IsInf(c.Step, 0) {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidStep, c.Step)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidStep, c.Steps)
	}
	return nil
}

// Sample is one point of a trace.
type Sample struct {
	X     float64
	State State
}

// Trace is the ordered output of a run: Samples[0] is (x0, state0) and
// len(Samples) == steps+1. Names labels the state slots.
type Trace struct {
	Names   []string
	Samples []Sample
}

func (t *Trace) Len() int { return len(t.Samples) }

// IsFinite reports whether every sample is free of NaN and Inf.
func (t *Trace) IsFinite() bool {
	for _, s := range t.Samples {
		if !s.State.IsValid() || math.IsNaN(s.X) || math.IsInf(s.X, 0) {
			return false
		}
	}
	return true
}

// Column returns the values of one state slot across the trace.
func (t *Trace) Column(i int) []float64 {
	out := make([]float64, len(t.Samples))
	for k, s := range t.Samples {
		out[k] = s.State[i]
	}
	return out
}

// Xs returns the independent-variable values.
func (t *Trace) Xs() []float64 {
	out := make([]float64, len(t.Samples))
	for k, s := range t.Samples {
		out[k] = s.X
	}
	return out
}

// Records returns one record per sample for serialization.
func (t *Trace) Records() []Record {
	out := make([]Record, len(t.Samples))
	for k, s := range t.Samples {
		out[k] = Record{Names: t.Names, X: s.X, Values: s.State}
	}
	return out
}

// Record serializes as {"x": .., "<name>": ..} with keys in slot order.
// Non-finite values are written as the strings "NaN", "+Inf" and "-Inf".
type Record struct {
	Names  []string
	X      float64
	Values []float64
}

func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"x":`)
	b.WriteString(jsonNumber(r.X))
	for i, v := range r.Values {
		name, _ := json.Marshal(r.Names[i])
		b.WriteByte(',')
		b.Write(name)
		b.WriteByte(':')
		b.WriteString(jsonNumber(v))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func jsonNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return `"NaN"`
	case math.IsInf(v, 1):
		return `"+Inf"`
	case math.IsInf(v, -1):
		return `"-Inf"`
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
