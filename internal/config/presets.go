package config

import "sort"

// Preset is a worked exercise that can be loaded by name.
type Preset struct {
	Title       string `json:"title" yaml:"title"`
	Equation    string `json:"equation" yaml:"equation"`
	Strategy    string `json:"strategy" yaml:"strategy"`
	Difficulty  string `json:"difficulty" yaml:"difficulty"`
	Description string `json:"description" yaml:"description"`
}

var Presets = map[string]*Preset{
	"exponential": {
		Title: "Exponential growth", Equation: "dy/dx = y", Strategy: "separable",
		Difficulty: "basic", Description: "Classic exponential growth model",
	},
	"separable_product": {
		Title: "Separable product", Equation: "dy/dx = x*y", Strategy: "separable",
		Difficulty: "basic", Description: "Separable equation with a product of variables",
	},
	"separable_trig": {
		Title: "Separable with trigonometric factor", Equation: "dy/dx = y^2*sin(x)", Strategy: "separable",
		Difficulty: "intermediate", Description: "Trigonometric factor and a power of y",
	},
	"linear_simple": {
		Title: "Simple first-order linear", Equation: "dy/dx + 2*y = 4*x", Strategy: "linear",
		Difficulty: "basic", Description: "Linear equation with constant coefficients",
	},
	"linear_exp": {
		Title: "Linear with exponential forcing", Equation: "dy/dx - y = exp(x)", Strategy: "linear",
		Difficulty: "intermediate", Description: "Non-homogeneous exponential term",
	},
	"linear_variable": {
		Title: "Linear with variable coefficient", Equation: "dy/dx + y/x = x^2", Strategy: "linear",
		Difficulty: "intermediate", Description: "Variable P(x) and polynomial Q(x)",
	},
	"homogeneous": {
		Title: "Basic homogeneous", Equation: "dy/dx = (x+y)/x", Strategy: "homogeneous",
		Difficulty: "basic", Description: "Homogeneous equation of degree one",
	},
	"homogeneous_squares": {
		Title: "Homogeneous with sum of squares", Equation: "dy/dx = (x^2+y^2)/(x*y)", Strategy: "homogeneous",
		Difficulty: "intermediate", Description: "Homogeneous equation with quadratic terms",
	},
	"exact": {
		Title: "Simple exact", Equation: "(2*x+y)dx + (x+2*y)dy = 0", Strategy: "exact",
		Difficulty: "basic", Description: "Exact equation with linear terms",
	},
	"bernoulli_quadratic": {
		Title: "Quadratic Bernoulli", Equation: "dy/dx + y = y^2*x", Strategy: "bernoulli",
		Difficulty: "intermediate", Description: "Bernoulli equation with n=2",
	},
	"bernoulli_cubic": {
		Title: "Cubic Bernoulli", Equation: "dy/dx - 2*y/x = x^2*y^3", Strategy: "bernoulli",
		Difficulty: "advanced", Description: "Bernoulli equation with n=3 and variable coefficients",
	},
	"rc_circuit": {
		Title: "RC circuit", Equation: "dy/dx + 3*y = sin(x)", Strategy: "linear",
		Difficulty: "intermediate", Description: "RC circuit driven by a sinusoidal input",
	},
	"harmonic": {
		Title: "Harmonic oscillator", Equation: "y'' + y = 0; y(0)=1; y'(0)=0", Strategy: "second_order_const",
		Difficulty: "basic", Description: "Undamped oscillator with constant coefficients",
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

// ListPresets returns preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
