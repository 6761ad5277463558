package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/expr"
	"github.com/san-kum/odelab/internal/ics"
	"github.com/san-kum/odelab/internal/integrand"
	"github.com/san-kum/odelab/internal/notation"
)

// Category is the closed set of failure kinds a solve can report.
type Category string

const (
	EmptyInput                Category = "EmptyInput"
	MalformedEquation         Category = "MalformedEquation"
	MalformedInitialCondition Category = "MalformedInitialCondition"
	UnsupportedOrder          Category = "UnsupportedOrder"
	NotExplicitForm           Category = "NotExplicitForm"
	InvalidStepParameters     Category = "InvalidStepParameters"
	ExternalSolveFailure      Category = "ExternalSolveFailure"
	Precondition              Category = "Precondition"

	// Internal marks anything the pipeline could not classify.
	Internal Category = "Internal"
)

// NumericInstabilityWarning prefixes the warning attached to a numeric result
// whose trace holds NaN or Inf. It never fails the solve.
const NumericInstabilityWarning = "NumericInstabilityWarning"

// Error is the failure side of a solve. Fragment is the offending piece of
// input when one can be named.
type Error struct {
	Category Category
	Fragment string
	Err      error
}

func (e *Error) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("%s: %v (in %q)", e.Category, e.Err, e.Fragment)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(cat Category, fragment string, err error) *Error {
	return &Error{Category: cat, Fragment: fragment, Err: err}
}

func failf(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Err: fmt.Errorf(format, args...)}
}

// categorize maps an error from the pipeline packages to its category.
func categorize(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	out := &Error{Category: Internal, Err: err}

	var clause *ics.ClauseError
	if errors.As(err, &clause) {
		out.Fragment = clause.Clause
	}
	var syntax *expr.SyntaxError
	if out.Fragment == "" && errors.As(err, &syntax) {
		out.Fragment = syntax.Fragment
	}

	switch {
	case errors.Is(err, notation.ErrEmptyInput):
		out.Category = EmptyInput
	case errors.Is(err, notation.ErrMalformedEquation):
		out.Category = MalformedEquation
	case errors.Is(err, ics.ErrUnsupportedOrder):
		out.Category = UnsupportedOrder
	case errors.Is(err, ics.ErrMalformed), errors.Is(err, ics.ErrMissingBase):
		out.Category = MalformedInitialCondition
	case errors.Is(err, integrand.ErrNotExplicitForm):
		out.Category = NotExplicitForm
	case errors.Is(err, dynamo.ErrInvalidStep):
		out.Category = InvalidStepParameters
	case errors.Is(err, cas.ErrNoSolution),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		out.Category = ExternalSolveFailure
	case errors.Is(err, cas.ErrPrecondition),
		errors.Is(err, integrand.ErrNotEquality),
		errors.Is(err, expr.ErrUnbound),
		errors.Is(err, dynamo.ErrDimensionMismatch),
		errors.Is(err, dynamo.ErrUnknownMethod):
		out.Category = Precondition
	}
	var step *dynamo.StepError
	if errors.As(err, &step) {
		out.Category = Precondition
	}
	return out
}
