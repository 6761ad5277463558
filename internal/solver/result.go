package solver

import (
	"fmt"
	"strings"

	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/expr"
)

// Result is a successful solve. A failed solve returns *Error and no Result.
type Result struct {
	Original    string            `json:"original_equation"`
	Canonical   string            `json:"canonical_equation"`
	LaTeX       string            `json:"equation_latex"`
	Method      Method            `json:"method"`
	Strategy    classify.Tag      `json:"strategy,omitempty"`
	Solutions   []Solution        `json:"solutions,omitempty"`
	Steps       []Step            `json:"steps"`
	Records     []dynamo.Record   `json:"numeric_trace,omitempty"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Explanation string            `json:"explanation,omitempty"`

	// Trace is the numeric trace behind Records.
	Trace *dynamo.Trace `json:"-"`
}

// Solution is one closed form in three renderings.
type Solution struct {
	Text      string   `json:"text"`
	LaTeX     string   `json:"latex"`
	Canonical string   `json:"canonical"`
	Explicit  bool     `json:"explicit"`
	Constants []string `json:"constants,omitempty"`
}

// Step is one entry of the narrative.
type Step struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Equation    string `json:"equation,omitempty"`
}

func newSolution(s *cas.Solution) Solution {
	return Solution{
		Text:      s.Equation.Text(),
		LaTeX:     s.Equation.LaTeX(),
		Canonical: s.Equation.String(),
		Explicit:  s.Explicit,
		Constants: s.Constants,
	}
}

var methodDescriptions = map[classify.Tag]string{
	classify.Separable:         "Separate the variables and integrate both sides.",
	classify.Homogeneous:       "Substitute v = y/x and separate the resulting equation.",
	classify.Exact:             "Integrate M with respect to x and fix the remaining function of y from N.",
	classify.IntegratingFactor: "Multiply by an integrating factor to make the equation exact, then integrate.",
	classify.Linear:            "Multiply by the integrating factor exp(∫P dx) and integrate.",
	classify.Bernoulli:         "Substitute v = y^(1-n) to obtain a linear equation in v.",
	classify.SecondOrderConst:  "Solve the characteristic equation; find a particular solution by undetermined coefficients, or by variation of parameters when the forcing term is not a polynomial, exponential or sine/cosine product.",
	classify.Reducible:         "Reduce the order with p = y' and integrate the first-order result.",
	classify.General:           "Try each applicable strategy in turn.",
}

// symbolicSteps is the identification, resolution and result narrative.
func symbolicSteps(tag classify.Tag, eqLaTeX string, sols []Solution) []Step {
	label := string(tag)
	if label == "" {
		label = "differential"
	}
	var latex []string
	for _, s := range sols {
		latex = append(latex, s.LaTeX)
	}
	return []Step{
		{
			Title:       "Identification",
			Description: fmt.Sprintf("The equation is recognized as %s.", label),
			Equation:    eqLaTeX,
		},
		{
			Title:       "Resolution",
			Description: methodDescriptions[tag],
			Equation:    eqLaTeX,
		},
		{
			Title:       "Result",
			Description: resultDescription(sols),
			Equation:    strings.Join(latex, ", \\quad "),
		},
	}
}

func resultDescription(sols []Solution) string {
	free := 0
	for _, s := range sols {
		free += len(s.Constants)
	}
	switch free {
	case 0:
		return "Particular solution found."
	case 1:
		return "General solution found with one free constant."
	}
	return fmt.Sprintf("General solution found with %d free constants.", free)
}

// numericSteps describes a fixed-step run; there is no symbolic narrative.
func numericSteps(m Method, cfg dynamo.Config) []Step {
	name := "Runge-Kutta 4"
	if m == NumericEuler {
		name = "Euler"
	}
	return []Step{{
		Title:       name + " method",
		Description: fmt.Sprintf("Iterated %d steps with h=%g.", cfg.Steps, cfg.Step),
	}}
}

// instability returns the warning for a trace with non-finite values.
func instability(t *dynamo.Trace) (string, bool) {
	for _, s := range t.Samples {
		if !s.State.IsValid() {
			return fmt.Sprintf("%s: trace contains non-finite values from x=%g", NumericInstabilityWarning, s.X), true
		}
	}
	return "", false
}

func joinTags(tags []classify.Tag) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}

func equationLaTeX(eqs []*expr.Equation) string {
	out := make([]string, len(eqs))
	for i, eq := range eqs {
		out[i] = eq.LaTeX()
	}
	return strings.Join(out, ", \\quad ")
}

func equationCanonical(eqs []*expr.Equation) string {
	out := make([]string, len(eqs))
	for i, eq := range eqs {
		out[i] = eq.String()
	}
	return strings.Join(out, "; ")
}
