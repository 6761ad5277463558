package solver

import (
	"fmt"

	"github.com/san-kum/odelab/internal/ics"
)

// Method selects between the closed-form engine and the fixed-step integrators.
type Method string

const (
	Symbolic     Method = "symbolic"
	NumericEuler Method = "numeric-euler"
	NumericRK4   Method = "numeric-rk4"
)

// Methods lists every accepted method.
var Methods = []Method{Symbolic, NumericEuler, NumericRK4}

// ParseMethod accepts a method name; "numeric:rk4" style is accepted too.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "symbolic":
		return Symbolic, nil
	case "numeric-euler", "numeric:euler", "euler":
		return NumericEuler, nil
	case "numeric-rk4", "numeric:rk4", "rk4":
		return NumericRK4, nil
	}
	return "", fmt.Errorf("unknown method %q", s)
}

// IsNumeric reports whether m runs an integrator.
func (m Method) IsNumeric() bool { return m == NumericEuler || m == NumericRK4 }

// integrator is the registry name of the integrator behind m.
func (m Method) integrator() string {
	if m == NumericEuler {
		return "euler"
	}
	return "rk4"
}

// InitialConditions are request-supplied values at x0: Y0 is y(x0), Y1 is
// y'(x0) and Y2 is y''(x0). System carries one value per unknown.
type InitialConditions struct {
	X0     float64   `json:"x0" yaml:"x0"`
	Y0     *float64  `json:"y0,omitempty" yaml:"y0,omitempty"`
	Y1     *float64  `json:"y1,omitempty" yaml:"y1,omitempty"`
	Y2     *float64  `json:"y2,omitempty" yaml:"y2,omitempty"`
	System []float64 `json:"system,omitempty" yaml:"system,omitempty"`
}

// binding turns scalar values into a binding for name. Orders must be
// contiguous from zero.
func (ic *InitialConditions) binding(name string) (*ics.Binding, error) {
	if ic == nil {
		return nil, nil
	}
	var values []float64
	gap := false
	for k, v := range []*float64{ic.Y0, ic.Y1, ic.Y2} {
		if v == nil {
			gap = true
			continue
		}
		if gap {
			return nil, fmt.Errorf("value for derivative order %d given without the lower orders", k)
		}
		values = append(values, *v)
	}
	return ics.FromValues(name, ic.X0, values), nil
}

// Request is one single-equation solve.
type Request struct {
	Equation          string             `json:"equation" yaml:"equation" validate:"required,max=2000"`
	Strategy          string             `json:"strategy,omitempty" yaml:"strategy,omitempty" validate:"omitempty,oneof=separable homogeneous exact integrating_factor linear bernoulli second_order_const reducible general"`
	Method            Method             `json:"method,omitempty" yaml:"method,omitempty" validate:"omitempty,oneof=symbolic numeric-euler numeric-rk4"`
	InitialConditions *InitialConditions `json:"initial_conditions,omitempty" yaml:"initial_conditions,omitempty"`
	Step              *float64           `json:"step,omitempty" yaml:"step,omitempty"`
	Steps             *int               `json:"steps,omitempty" yaml:"steps,omitempty"`
	Explain           bool               `json:"explain,omitempty" yaml:"explain,omitempty"`
}

// SystemRequest is a solve over coupled equations. Variables defaults to
// y1..yk.
type SystemRequest struct {
	Equations         []string           `json:"equations" yaml:"equations" validate:"required,min=1,dive,required"`
	Variables         []string           `json:"variables,omitempty" yaml:"variables,omitempty" validate:"omitempty,dive,required,alphanum"`
	Method            Method             `json:"method,omitempty" yaml:"method,omitempty" validate:"omitempty,oneof=symbolic numeric-euler numeric-rk4"`
	InitialConditions *InitialConditions `json:"initial_conditions,omitempty" yaml:"initial_conditions,omitempty"`
	Step              *float64           `json:"step,omitempty" yaml:"step,omitempty"`
	Steps             *int               `json:"steps,omitempty" yaml:"steps,omitempty"`
	Explain           bool               `json:"explain,omitempty" yaml:"explain,omitempty"`
}

// ValidateRequest asks the explainer to check a proposed solution.
type ValidateRequest struct {
	Equation         string `json:"equation" validate:"required"`
	ProposedSolution string `json:"proposed_solution" validate:"required"`
}
