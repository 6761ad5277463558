package solver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/solver"
)

type fakeExplainer struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeExplainer) Explain(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func ptr[T any](v T) *T { return &v }

func categoryOf(err error) solver.Category {
	var se *solver.Error
	Expect(errors.As(err, &se)).To(BeTrue(), "expected *solver.Error, got %v", err)
	return se.Category
}

var _ = Describe("Service", func() {
	var (
		svc       *solver.Service
		explainer *fakeExplainer
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		explainer = &fakeExplainer{reply: "looks right"}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc = solver.NewService(logger, cas.New(), explainer, solver.DefaultOptions())
	})

	Describe("numeric solves", func() {
		It("returns steps+1 samples starting at the initial point", func() {
			res, err := svc.Solve(ctx, solver.Request{
				Equation:          "dy/dx = x*y",
				Method:            solver.NumericRK4,
				InitialConditions: &solver.InitialConditions{X0: 0, Y0: ptr(1.0)},
				Step:              ptr(0.1),
				Steps:             ptr(10),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trace.Len()).To(Equal(11))
			Expect(res.Records).To(HaveLen(11))
			Expect(res.Trace.Samples[0].X).To(Equal(0.0))
			Expect(res.Trace.Samples[0].State[0]).To(Equal(1.0))
			for i, s := range res.Trace.Samples {
				Expect(s.X).To(BeNumerically("~", 0.1*float64(i), 1e-12))
			}
			Expect(res.Trace.Samples[10].State[0]).To(BeNumerically("~", math.Exp(0.5), 1e-5))
			Expect(res.Steps).To(HaveLen(1))
			Expect(res.Steps[0].Title).To(Equal("Runge-Kutta 4 method"))
			Expect(res.Solutions).To(BeEmpty())
		})

		It("uses the default step and steps", func() {
			res, err := svc.Solve(ctx, solver.Request{
				Equation: "y' = -y; y(0)=1",
				Method:   solver.NumericEuler,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trace.Len()).To(Equal(51))
			Expect(res.Steps[0].Description).To(Equal("Iterated 50 steps with h=0.1."))
		})

		It("prefers request initial conditions over text clauses", func() {
			res, err := svc.Solve(ctx, solver.Request{
				Equation:          "y' = 0; y(0)=5",
				Method:            solver.NumericEuler,
				InitialConditions: &solver.InitialConditions{X0: 0, Y0: ptr(2.0)},
				Steps:             ptr(3),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trace.Samples[3].State[0]).To(Equal(2.0))
		})

		It("reduces second-order equations and names both slots", func() {
			res, err := svc.Solve(ctx, solver.Request{
				Equation: "y'' + y = 0; y(0)=1; y'(0)=0",
				Method:   solver.NumericRK4,
				Step:     ptr(0.01),
				Steps:    ptr(100),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Trace.Names).To(Equal([]string{"y", "y'"}))
			Expect(res.Trace.Samples[100].State[0]).To(BeNumerically("~", math.Cos(1), 1e-8))
		})

		It("warns instead of failing on non-finite values", func() {
			res, err := svc.Solve(ctx, solver.Request{
				Equation: "y' = y^2; y(0)=1",
				Method:   solver.NumericEuler,
				Step:     ptr(0.5),
				Steps:    ptr(20),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Warnings).To(HaveLen(1))
			Expect(res.Warnings[0]).To(HavePrefix(solver.NumericInstabilityWarning))
		})

		DescribeTable("rejects bad step parameters",
			func(step float64, steps int) {
				_, err := svc.Solve(ctx, solver.Request{
					Equation: "y' = y; y(0)=1",
					Method:   solver.NumericRK4,
					Step:     ptr(step),
					Steps:    ptr(steps),
				})
				Expect(categoryOf(err)).To(Equal(solver.InvalidStepParameters))
			},
			Entry("zero steps", 0.1, 0),
			Entry("negative steps", 0.1, -1),
			Entry("zero step", 0.0, 10),
			Entry("negative step", -0.1, 10),
			Entry("above the workload limit", 0.1, 2_000_000),
		)

		It("requires initial conditions", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = y", Method: solver.NumericRK4})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
		})

		It("requires an equality", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' + y; y(0)=1", Method: solver.NumericRK4})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
		})

		It("reports equations it cannot make explicit", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "sin(y') = x; y(0)=1", Method: solver.NumericRK4})
			Expect(categoryOf(err)).To(Equal(solver.NotExplicitForm))
		})
	})

	Describe("symbolic solves", func() {
		It("solves a linear equation with one free constant", func() {
			res, err := svc.Solve(ctx, solver.Request{Equation: "y' + 2*y = 4*x", Strategy: "linear"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Method).To(Equal(solver.Symbolic))
			Expect(res.Strategy).To(Equal(classify.Linear))
			Expect(res.Solutions).To(HaveLen(1))
			Expect(res.Solutions[0].Constants).To(Equal([]string{"C1"}))
			Expect(res.Solutions[0].LaTeX).To(ContainSubstring("C_{1}"))
			Expect(res.Diagnostics).To(HaveKeyWithValue("requested", "true"))
			Expect(res.Records).To(BeEmpty())
		})

		It("composes a three step narrative", func() {
			res, err := svc.Solve(ctx, solver.Request{Equation: "y' = x*y; y(0)=1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(HaveLen(3))
			Expect(res.Steps[0].Title).To(Equal("Identification"))
			Expect(res.Steps[2].Description).To(Equal("Particular solution found."))
			Expect(res.Diagnostics).To(HaveKey("hints"))
		})

		It("names undetermined coefficients for trigonometric forcing", func() {
			res, err := svc.Solve(ctx, solver.Request{Equation: "y'' + y = sin(2*x)"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Strategy).To(Equal(classify.SecondOrderConst))
			Expect(res.Steps[1].Description).To(ContainSubstring("undetermined coefficients"))
			Expect(res.Diagnostics).To(HaveKeyWithValue("particular_solution", "undetermined_coefficients"))
		})

		It("reports exactness for exact-form input", func() {
			res, err := svc.Solve(ctx, solver.Request{Equation: "(2*x+y)dx+(x+2*y)dy=0", Strategy: "exact"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Strategy).To(Equal(classify.Exact))
			Expect(res.Diagnostics).To(HaveKeyWithValue("is_exact", "true"))
		})

		It("rejects exact without exact-form input", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = x*y", Strategy: "exact"})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
		})

		It("reports engine failures as external solve failures", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = sin(x*y)"})
			Expect(categoryOf(err)).To(Equal(solver.ExternalSolveFailure))
		})

		It("attaches an explanation when asked", func() {
			res, err := svc.Solve(ctx, solver.Request{Equation: "y' = y", Explain: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Explanation).To(Equal("looks right"))
			Expect(explainer.prompts).To(HaveLen(1))
			Expect(explainer.prompts[0]).To(HavePrefix("Validate or improve the solution"))
		})

		It("keeps the solution when the explainer fails", func() {
			explainer.err = errors.New("quota exceeded")
			res, err := svc.Solve(ctx, solver.Request{Equation: "y' = y", Explain: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Solutions).To(HaveLen(1))
			Expect(res.Explanation).To(BeEmpty())
			Expect(res.Diagnostics).To(HaveKeyWithValue("explain_error", "quota exceeded"))
		})
	})

	Describe("input errors", func() {
		It("rejects empty input", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "   "})
			Expect(categoryOf(err)).To(Equal(solver.EmptyInput))
		})

		It("rejects malformed equations", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = x +"})
			Expect(categoryOf(err)).To(Equal(solver.MalformedEquation))
		})

		It("names the malformed initial condition", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = y; y(0)=1; y'(0)"})
			var se *solver.Error
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Category).To(Equal(solver.MalformedInitialCondition))
			Expect(se.Fragment).To(Equal("y'(0)"))
		})

		It("rejects unknown strategies and methods", func() {
			_, err := svc.Solve(ctx, solver.Request{Equation: "y' = y", Strategy: "magic"})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
			_, err = svc.Solve(ctx, solver.Request{Equation: "y' = y", Method: "numeric-magic"})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
		})
	})

	Describe("systems", func() {
		It("integrates a coupled system with default variable names", func() {
			res, err := svc.SolveSystem(ctx, solver.SystemRequest{
				Equations:         []string{"y1' = y2", "y2' = -y1"},
				InitialConditions: &solver.InitialConditions{X0: 0, System: []float64{0, 1}},
				Step:              ptr(0.01),
				Steps:             ptr(100),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Method).To(Equal(solver.NumericRK4))
			Expect(res.Trace.Names).To(Equal([]string{"y1", "y2"}))
			last := res.Trace.Samples[100].State
			Expect(last[0]).To(BeNumerically("~", math.Sin(1), 1e-8))
			Expect(last[1]).To(BeNumerically("~", math.Cos(1), 1e-8))
		})

		It("requires one initial value per equation", func() {
			_, err := svc.SolveSystem(ctx, solver.SystemRequest{
				Equations:         []string{"y1' = y2", "y2' = -y1"},
				InitialConditions: &solver.InitialConditions{System: []float64{1}},
			})
			Expect(categoryOf(err)).To(Equal(solver.Precondition))
		})

		It("solves decoupled systems symbolically", func() {
			res, err := svc.SolveSystem(ctx, solver.SystemRequest{
				Equations: []string{"u' = u", "v' = 2*v"},
				Variables: []string{"u", "v"},
				Method:    solver.Symbolic,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Solutions).To(HaveLen(2))
			Expect(res.Solutions[1].Constants).To(Equal([]string{"C2"}))
		})

		DescribeTable("rejects unusable variable names",
			func(vars []string) {
				_, err := svc.SolveSystem(ctx, solver.SystemRequest{
					Equations:         []string{"u' = 1", "v' = 2"},
					Variables:         vars,
					InitialConditions: &solver.InitialConditions{System: []float64{0, 0}},
				})
				Expect(categoryOf(err)).To(Equal(solver.Precondition))
			},
			Entry("duplicate", []string{"u", "u"}),
			Entry("independent variable", []string{"x", "y"}),
			Entry("constant", []string{"u", "pi"}),
			Entry("function", []string{"sin", "v"}),
			Entry("empty", []string{"u", ""}),
		)

		It("fails symbolically on coupled systems", func() {
			_, err := svc.SolveSystem(ctx, solver.SystemRequest{
				Equations: []string{"y1' = y2", "y2' = -y1"},
				Method:    solver.Symbolic,
			})
			Expect(categoryOf(err)).To(Equal(solver.ExternalSolveFailure))
		})
	})

	Describe("validation", func() {
		It("returns the explainer's feedback", func() {
			text, err := svc.Validate(ctx, solver.ValidateRequest{Equation: "y' = y", ProposedSolution: "y = C1*exp(x)"})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("looks right"))
			Expect(explainer.prompts[0]).To(ContainSubstring("y = C1*exp(x)"))
		})

		It("surfaces explainer failure", func() {
			explainer.err = errors.New("timeout")
			_, err := svc.Validate(ctx, solver.ValidateRequest{Equation: "y' = y", ProposedSolution: "y = 1"})
			Expect(categoryOf(err)).To(Equal(solver.ExternalSolveFailure))
		})
	})

	Describe("batches", func() {
		It("keeps input order", func() {
			reqs := []solver.Request{
				{Equation: "y' = y; y(0)=1", Method: solver.NumericRK4, Steps: ptr(5)},
				{Equation: ""},
				{Equation: "y' = 2; y(1)=0", Method: solver.NumericEuler, Steps: ptr(7)},
			}
			items := svc.SolveBatch(ctx, reqs)
			Expect(items).To(HaveLen(3))
			Expect(items[0].Err).NotTo(HaveOccurred())
			Expect(items[0].Result.Trace.Len()).To(Equal(6))
			Expect(categoryOf(items[1].Err)).To(Equal(solver.EmptyInput))
			Expect(items[2].Result.Trace.Samples[0].X).To(Equal(1.0))
			Expect(items[2].Result.Trace.Len()).To(Equal(8))
		})
	})

	It("parses method aliases", func() {
		for in, want := range map[string]solver.Method{
			"":              solver.Symbolic,
			"numeric:rk4":   solver.NumericRK4,
			"numeric-euler": solver.NumericEuler,
		} {
			got, err := solver.ParseMethod(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		}
		_, err := solver.ParseMethod("implicit")
		Expect(err).To(HaveOccurred())
		Expect(strings.Contains(err.Error(), "implicit")).To(BeTrue())
	})
})
