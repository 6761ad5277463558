package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/classify"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/expr"
	"github.com/san-kum/odelab/internal/notation"
	"github.com/san-kum/odelab/internal/solver"
	"github.com/san-kum/odelab/internal/storage"
	"github.com/san-kum/odelab/internal/viz"
)

var (
	method     string
	strategy   string
	x0         float64
	y0, y1, y2 float64
	icVector   []float64
	variables  []string
	step       float64
	steps      int
	withExpl   bool
	saveRun    bool
	plotTrace  bool
	asJSON     bool
	preset     string
)

func addNumericFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&method, "method", "", "symbolic, numeric-euler or numeric-rk4")
	cmd.Flags().Float64Var(&x0, "x0", 0, "base point of the initial conditions")
	cmd.Flags().Float64Var(&step, "step", config.DefaultStep, "step size")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().BoolVar(&withExpl, "explain", false, "ask the explanation service about the result")
	cmd.Flags().BoolVar(&saveRun, "save", false, "save numeric runs to the run store")
	cmd.Flags().BoolVar(&plotTrace, "plot", false, "plot numeric traces")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
}

func solveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [equation]",
		Short: "solve one equation",
		Example: `  odelab solve "dy/dx + 2*y = 4*x"
  odelab solve "y'' + y = 0; y(0)=1; y'(0)=0" --method numeric-rk4 --steps 100
  odelab solve --preset exact`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSolve,
	}
	addNumericFlags(cmd)
	cmd.Flags().StringVar(&strategy, "strategy", "", "force a strategy ("+strings.Join(tagNames(), ", ")+")")
	cmd.Flags().Float64Var(&y0, "y0", 0, "y(x0)")
	cmd.Flags().Float64Var(&y1, "y1", 0, "y'(x0)")
	cmd.Flags().Float64Var(&y2, "y2", 0, "y''(x0)")
	cmd.Flags().StringVar(&preset, "preset", "", "solve a preset exercise")
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	req := solver.Request{Method: solver.Method(method), Strategy: strategy, Explain: withExpl}
	switch {
	case preset != "":
		p := config.GetPreset(preset)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		req.Equation = p.Equation
		if req.Strategy == "" {
			req.Strategy = p.Strategy
		}
	case len(args) == 1:
		req.Equation = args[0]
	default:
		return fmt.Errorf("an equation or --preset is required")
	}

	flags := cmd.Flags()
	if flags.Changed("y0") || flags.Changed("y1") || flags.Changed("y2") {
		ic := &solver.InitialConditions{X0: x0}
		if flags.Changed("y0") {
			ic.Y0 = &y0
		}
		if flags.Changed("y1") {
			ic.Y1 = &y1
		}
		if flags.Changed("y2") {
			ic.Y2 = &y2
		}
		req.InitialConditions = ic
	}
	if flags.Changed("step") {
		req.Step = &step
	}
	if flags.Changed("steps") {
		req.Steps = &steps
	}

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	res, err := svc.Solve(cmd.Context(), req)
	if err != nil {
		return err
	}
	return report(res)
}

func systemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system [equation]...",
		Short: "solve a system of first-order equations",
		Example: `  odelab system "y1' = y2" "y2' = -y1" --ic 0,1 --steps 200 --plot
  odelab system "u' = u" "v' = 2*v" --vars u,v --method symbolic`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSystem,
	}
	addNumericFlags(cmd)
	cmd.Flags().StringSliceVar(&variables, "vars", nil, "unknown names (default y1..yk)")
	cmd.Flags().Float64SliceVar(&icVector, "ic", nil, "initial values, one per equation")
	return cmd
}

func runSystem(cmd *cobra.Command, args []string) error {
	req := solver.SystemRequest{
		Equations: args,
		Variables: variables,
		Method:    solver.Method(method),
		Explain:   withExpl,
	}
	if req.Method == "" {
		req.Method = solver.Method(cfg.Numeric.Method)
	}
	if len(icVector) > 0 {
		req.InitialConditions = &solver.InitialConditions{X0: x0, System: icVector}
	}
	if cmd.Flags().Changed("step") {
		req.Step = &step
	}
	if cmd.Flags().Changed("steps") {
		req.Steps = &steps
	}

	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	res, err := svc.SolveSystem(cmd.Context(), req)
	if err != nil {
		return err
	}
	return report(res)
}

// report prints a result and handles --save and --plot.
func report(res *solver.Result) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Println(viz.RenderResult(styles(), res))
	}

	if res.Trace == nil {
		return nil
	}
	if plotTrace {
		fmt.Println(viz.PlotTrace(res.Trace, 80, 10))
	}
	if saveRun {
		st := storage.New(cfg.Storage.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", runID)
	}
	return nil
}

func classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [equation]",
		Short: "show the strategy an equation would be solved with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ec := expr.DefaultContext()
			n, err := notation.Normalize(args[0], ec)
			if err != nil {
				return err
			}
			r := classify.Classify(n.Equation, ec, classify.Options{Exact: n.Exact})
			s := styles()
			fmt.Println(s.Label.Render("strategy  ") + s.Value.Render(string(r.Tag)))
			hints := make([]string, len(r.Hints))
			for i, h := range r.Hints {
				hints[i] = string(h)
			}
			fmt.Println(s.Label.Render("hints     ") + s.Value.Render(strings.Join(hints, ", ")))
			if r.Special != nil {
				fmt.Println(s.Label.Render("special   ") + s.Value.Render(r.Special.Name))
			}
			return nil
		},
	}
}

func normalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [equation]",
		Short: "print the canonical and LaTeX forms of an equation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ec := expr.DefaultContext()
			n, err := notation.Normalize(args[0], ec)
			if err != nil {
				return err
			}
			s := styles()
			fmt.Println(s.Label.Render("canonical  ") + s.Value.Render(n.Canonical))
			fmt.Println(s.Label.Render("display    ") + s.Value.Render(n.Equation.Text()))
			fmt.Println(s.Label.Render("latex      ") + s.Value.Render(n.Equation.LaTeX()))
			if n.Exact != nil {
				fmt.Println(s.Label.Render("M          ") + s.Value.Render(expr.Text(n.Exact.M)))
				fmt.Println(s.Label.Render("N          ") + s.Value.Render(expr.Text(n.Exact.N)))
			}
			for _, c := range n.Clauses {
				fmt.Println(s.Label.Render("condition  ") + s.Value.Render(c))
			}
			return nil
		},
	}
}

func tagNames() []string {
	out := make([]string, len(classify.Tags))
	for i, t := range classify.Tags {
		out[i] = string(t)
	}
	return out
}
