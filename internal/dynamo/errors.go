package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration.
var (
	// ErrInvalidStep indicates a non-positive step size or step count.
	ErrInvalidStep = errors.New("dynamo: invalid step parameters")

	// ErrDimensionMismatch indicates a state whose length differs from the system.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrUnknownMethod indicates an integrator name with no registered method.
	ErrUnknownMethod = errors.New("dynamo: unknown integration method")
)

// StepError wraps a failure of the right-hand side with the step it happened on.
type StepError struct {
	Step    int
	X       float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (x=%g): %v", e.Step, e.X, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
