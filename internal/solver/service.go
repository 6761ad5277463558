// Package solver runs the solve pipeline: normalize, resolve initial
// conditions, classify, then either the closed-form engine or a fixed-step
// integrator, and composes the result.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/odelab/internal/cas"
	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/expr"
	"github.com/san-kum/odelab/internal/ics"
	"github.com/san-kum/odelab/internal/integrand"
	"github.com/san-kum/odelab/internal/integrators"
	"github.com/san-kum/odelab/internal/notation"
	"github.com/san-kum/odelab/internal/sim"
)

// ClosedFormSolver is the symbolic engine capability.
type ClosedFormSolver interface {
	SolveClosedForm(ctx context.Context, p cas.Problem) (*cas.Solution, error)
	SolveSystem(ctx context.Context, eqs []*expr.Equation, ec expr.Context, names []string, b *ics.Binding) ([]*cas.Solution, error)
}

// Explainer turns a prompt into explanatory text.
type Explainer interface {
	Explain(ctx context.Context, prompt string) (string, error)
}

// Options tunes a Service.
type Options struct {
	// Defaults fill in a request's missing step and steps.
	Defaults dynamo.Config
	// MaxWorkload caps steps per numeric solve.
	MaxWorkload int
	// SolveTimeout bounds the closed-form call; zero means no bound.
	SolveTimeout time.Duration
	// Workers bounds batch concurrency; zero uses GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Defaults:     dynamo.DefaultConfig(),
		MaxWorkload:  1_000_000,
		SolveTimeout: 10 * time.Second,
	}
}

// Service is safe for concurrent use: every request builds its own context,
// binding and integrand.
type Service struct {
	logger    *slog.Logger
	engine    ClosedFormSolver
	explainer Explainer
	opts      Options
}

func NewService(logger *slog.Logger, engine ClosedFormSolver, explainer Explainer, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, engine: engine, explainer: explainer, opts: opts}
}

// Solve runs one single-equation request.
func (s *Service) Solve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.solve(ctx, req)
	if err != nil {
		se := categorize(err)
		s.logger.InfoContext(ctx, "solve failed",
			"category", se.Category,
			"fragment", se.Fragment,
			"error", se.Err)
		return nil, se
	}
	s.logger.InfoContext(ctx, "solve succeeded",
		"method", res.Method,
		"strategy", res.Strategy,
		"duration", time.Since(start))
	if req.Explain {
		s.explain(ctx, res, req.Equation)
	}
	return res, nil
}

func (s *Service) solve(ctx context.Context, req Request) (*Result, error) {
	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return nil, fail(Precondition, string(req.Method), err)
	}
	tag, err := classify.ParseTag(req.Strategy)
	if err != nil {
		return nil, fail(Precondition, req.Strategy, err)
	}

	ec := expr.DefaultContext()
	n, err := notation.Normalize(req.Equation, ec)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "normalized", "canonical", n.Canonical, "clauses", len(n.Clauses))

	text, err := ics.Resolve(n.Clauses, ec)
	if err != nil {
		return nil, err
	}
	fromRequest, err := req.InitialConditions.binding(ec.Primary())
	if err != nil {
		return nil, fail(MalformedInitialCondition, "", err)
	}
	binding := ics.Merge(fromRequest, text)

	res := &Result{
		Original:    req.Equation,
		Canonical:   n.Canonical,
		LaTeX:       n.Equation.LaTeX(),
		Method:      method,
		Diagnostics: map[string]string{},
	}
	if len(binding.Overwritten) > 0 {
		res.Diagnostics["overwritten_conditions"] = keyList(binding.Overwritten)
	}

	if method.IsNumeric() {
		return s.numeric(res, []*expr.Equation{n.Equation}, ec, nil, binding, req.Step, req.Steps)
	}

	class := classify.Classify(n.Equation, ec, classify.Options{Requested: tag, Exact: n.Exact})
	s.logger.DebugContext(ctx, "classified", "strategy", class.Tag, "hints", joinTags(class.Hints))

	sctx, cancel := s.bounded(ctx)
	defer cancel()
	sol, err := s.engine.SolveClosedForm(sctx, cas.Problem{
		Equation: n.Equation,
		Context:  ec,
		Exact:    n.Exact,
		ICs:      binding,
		Class:    class,
	})
	if err != nil {
		return nil, err
	}

	res.Strategy = class.Tag
	res.Solutions = []Solution{newSolution(sol)}
	res.Steps = symbolicSteps(class.Tag, res.LaTeX, res.Solutions)
	for k, v := range sol.Diagnostics {
		res.Diagnostics[k] = v
	}
	if len(class.Hints) > 0 {
		res.Diagnostics["hints"] = joinTags(class.Hints)
	}
	if class.Requested {
		res.Diagnostics["requested"] = "true"
	}
	return res, nil
}

// SolveSystem runs a request over several equations. Symbolic solving works
// only for decoupled systems.
func (s *Service) SolveSystem(ctx context.Context, req SystemRequest) (*Result, error) {
	start := time.Now()
	res, err := s.solveSystem(ctx, req)
	if err != nil {
		se := categorize(err)
		s.logger.InfoContext(ctx, "system solve failed",
			"category", se.Category,
			"fragment", se.Fragment,
			"error", se.Err)
		return nil, se
	}
	s.logger.InfoContext(ctx, "system solve succeeded",
		"method", res.Method,
		"equations", len(req.Equations),
		"duration", time.Since(start))
	if req.Explain {
		s.explain(ctx, res, strings.Join(req.Equations, "; "))
	}
	return res, nil
}

func (s *Service) solveSystem(ctx context.Context, req SystemRequest) (*Result, error) {
	m := req.Method
	if m == "" {
		m = NumericRK4
	}
	method, err := ParseMethod(string(m))
	if err != nil {
		return nil, fail(Precondition, string(req.Method), err)
	}
	if len(req.Equations) == 0 {
		return nil, fail(EmptyInput, "", errors.New("no equations"))
	}
	names := req.Variables
	if len(names) == 0 {
		names = make([]string, len(req.Equations))
		for i := range names {
			names[i] = "y" + strconv.Itoa(i+1)
		}
	}
	if len(names) != len(req.Equations) {
		return nil, failf(Precondition, "%d variables for %d equations", len(names), len(req.Equations))
	}
	if err := checkVariables(names); err != nil {
		return nil, err
	}

	ec := expr.SystemContext(names...)
	eqs := make([]*expr.Equation, len(req.Equations))
	var clauses []string
	for i, raw := range req.Equations {
		n, err := notation.Normalize(raw, ec)
		if err != nil {
			return nil, err
		}
		eqs[i] = n.Equation
		clauses = append(clauses, n.Clauses...)
	}
	text, err := ics.Resolve(clauses, ec)
	if err != nil {
		return nil, err
	}
	var fromRequest *ics.Binding
	if ic := req.InitialConditions; ic != nil && len(ic.System) > 0 {
		if len(ic.System) != len(eqs) {
			return nil, failf(Precondition, "initial condition vector has %d values for %d equations", len(ic.System), len(eqs))
		}
		fromRequest = ics.FromVector(names, ic.X0, ic.System)
	}
	binding := ics.Merge(fromRequest, text)

	res := &Result{
		Original:    strings.Join(req.Equations, "; "),
		Canonical:   equationCanonical(eqs),
		LaTeX:       equationLaTeX(eqs),
		Method:      method,
		Diagnostics: map[string]string{"variables": strings.Join(names, ", ")},
	}
	if len(binding.Overwritten) > 0 {
		res.Diagnostics["overwritten_conditions"] = keyList(binding.Overwritten)
	}

	if method.IsNumeric() {
		return s.numeric(res, eqs, ec, names, binding, req.Step, req.Steps)
	}

	sctx, cancel := s.bounded(ctx)
	defer cancel()
	sols, err := s.engine.SolveSystem(sctx, eqs, ec, names, binding)
	if err != nil {
		return nil, err
	}
	for _, sol := range sols {
		res.Solutions = append(res.Solutions, newSolution(sol))
	}
	res.Strategy = classify.General
	res.Steps = symbolicSteps(classify.General, res.LaTeX, res.Solutions)
	res.Diagnostics["decoupled"] = "true"
	return res, nil
}

// checkVariables rejects dependent names that are repeated or that the parser
// would read as the independent variable, a constant or a function.
func checkVariables(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		switch {
		case n == "":
			return failf(Precondition, "empty variable name")
		case seen[n]:
			return failf(Precondition, "variable %q declared twice", n)
		case n == "x":
			return failf(Precondition, "variable %q is the independent variable", n)
		case expr.IsConstant(n), expr.IsFunction(n):
			return failf(Precondition, "variable %q is a reserved name", n)
		}
		seen[n] = true
	}
	return nil
}

// numeric builds the integrand, seeds the state from the binding and runs the
// integrator. names is nil for a single equation.
func (s *Service) numeric(res *Result, eqs []*expr.Equation, ec expr.Context, names []string, b *ics.Binding, step *float64, steps *int) (*Result, error) {
	if b.Len() == 0 {
		return nil, failf(Precondition, "numeric methods need initial conditions")
	}
	for _, eq := range eqs {
		if !eq.IsEquality() {
			return nil, fail(Precondition, eq.String(), errors.New("numeric methods need an explicit equality"))
		}
	}

	cfg := s.opts.Defaults
	if step != nil {
		cfg.Step = *step
	}
	if steps != nil {
		cfg.Steps = *steps
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.opts.MaxWorkload > 0 && cfg.Steps > s.opts.MaxWorkload {
		return nil, failf(InvalidStepParameters, "steps %d exceed the limit of %d", cfg.Steps, s.opts.MaxWorkload)
	}

	var in *integrand.Integrand
	var err error
	if names == nil {
		in, err = integrand.BuildScalar(eqs[0], ec, ec.Primary())
	} else {
		in, err = integrand.BuildSystem(eqs, ec, names)
	}
	if err != nil {
		return nil, err
	}

	x0, s0, err := seed(in, b)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(res.Method.integrator())
	if err != nil {
		return nil, err
	}
	trace, err := sim.New(in, integ).Run(x0, s0, cfg, in.Names())
	if err != nil {
		return nil, err
	}

	res.Trace = trace
	res.Records = trace.Records()
	res.Steps = numericSteps(res.Method, cfg)
	res.Diagnostics["step"] = strconv.FormatFloat(cfg.Step, 'g', -1, 64)
	res.Diagnostics["steps"] = strconv.Itoa(cfg.Steps)
	if w, ok := instability(trace); ok {
		res.Warnings = append(res.Warnings, w)
	}
	return res, nil
}

// seed reads the starting state for every slot of in. All values must share
// one base point.
func seed(in *integrand.Integrand, b *ics.Binding) (float64, dynamo.State, error) {
	s0 := make(dynamo.State, in.Dim())
	x0 := math.NaN()
	for i, slot := range in.Names() {
		name, order := splitKey(slot)
		v, ok := b.Get(name, order)
		if !ok {
			return 0, nil, failf(Precondition, "numeric methods need %s(x0)", slot)
		}
		if i == 0 {
			x0 = v.X0
		} else if v.X0 != x0 {
			return 0, nil, failf(Precondition, "initial conditions use different base points %g and %g", x0, v.X0)
		}
		s0[i] = v.Value
	}
	return x0, s0, nil
}

func splitKey(key string) (string, int) {
	name := strings.TrimRight(key, "'")
	return name, len(key) - len(name)
}

func keyList(keys []ics.Key) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return strings.Join(out, ", ")
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.SolveTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.SolveTimeout)
	}
	return context.WithCancel(ctx)
}

// explain attaches the explainer's view of a successful result. A failing
// explainer is logged and reported as a diagnostic; the solve stands.
func (s *Service) explain(ctx context.Context, res *Result, equation string) {
	if s.explainer == nil {
		return
	}
	var prompt string
	if len(res.Solutions) > 0 {
		latex := make([]string, len(res.Solutions))
		for i, sol := range res.Solutions {
			latex[i] = sol.LaTeX
		}
		prompt = fmt.Sprintf("Validate or improve the solution %s for the equation: %s", strings.Join(latex, ", "), equation)
	} else {
		prompt = fmt.Sprintf("Explain the %s numeric solution of the equation %s with %s.", res.Method, equation, res.Steps[0].Description)
	}
	text, err := s.explainer.Explain(ctx, prompt)
	if err != nil {
		s.logger.WarnContext(ctx, "explanation failed", "error", err)
		res.Diagnostics["explain_error"] = err.Error()
		return
	}
	res.Explanation = text
}

// Validate asks the explainer whether proposed solves equation.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (string, error) {
	if strings.TrimSpace(req.Equation) == "" {
		return "", fail(EmptyInput, "", notation.ErrEmptyInput)
	}
	if s.explainer == nil {
		return "", failf(ExternalSolveFailure, "no explanation service configured")
	}
	prompt := fmt.Sprintf("Validate the proposed solution %s for the equation %s", req.ProposedSolution, req.Equation)
	text, err := s.explainer.Explain(ctx, prompt)
	if err != nil {
		s.logger.WarnContext(ctx, "validation failed", "error", err)
		return "", fail(ExternalSolveFailure, "", err)
	}
	return text, nil
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Result *Result
	Err    error
}

// SolveBatch solves independent requests concurrently. Items come back in
// input order.
func (s *Service) SolveBatch(ctx context.Context, reqs []Request) []BatchItem {
	out := make([]BatchItem, len(reqs))
	dynamo.ParallelFor(len(reqs), s.opts.Workers, func(i int) {
		res, err := s.Solve(ctx, reqs[i])
		out[i] = BatchItem{Result: res, Err: err}
	})
	return out
}
