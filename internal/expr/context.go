package expr

// Context is the per-request parsing context: the independent variable and the
// dependent function names that bare identifiers resolve to. It is a plain value,
// built once per request and passed to every parse.
type Context struct {
	Var   string
	Funcs []string
}

// The zero Context parses closed constants: every identifier that is not a
// known function or constant becomes a free symbol.

// DefaultContext is the single-equation context: y as a function of x.
func DefaultContext() Context {
	return Context{Var: "x", Funcs: []string{"y"}}
}

// SystemContext declares one dependent function per name.
func SystemContext(names ...string) Context {
	funcs := make([]string, len(names))
	copy(funcs, names)
	return Context{Var: "x", Funcs: funcs}
}

// IsFunc reports whether name is a declared dependent function.
func (c Context) IsFunc(name string) bool {
	for _, f := range c.Funcs {
		if f == name {
			return true
		}
	}
	return false
}

// Primary returns the first declared dependent function.
func (c Context) Primary() string {
	if len(c.Funcs) == 0 {
		return "y"
	}
	return c.Funcs[0]
}

// Dep returns the applied form of name differentiated order times.
func (c Context) Dep(name string, order int) *Dep {
	return &Dep{Name: name, Var: c.Var, Order: order}
}

var elementary = map[string]string{
	"sin":  "sin",
	"cos":  "cos",
	"tan":  "tan",
	"exp":  "exp",
	"log":  "log",
	"ln":   "log",
	"sqrt": "sqrt",
	"asin": "asin",
	"acos": "acos",
	"atan": "atan",
	"sec":  "sec",
	"csc":  "csc",
	"cot":  "cot",
	"sinh": "sinh",
	"cosh": "cosh",
	"tanh": "tanh",
	"abs":  "abs",
}

var constants = map[string]string{
	"pi": "pi",
	"PI": "pi",
	"E":  "E",
	"e":  "E",
}

// IsFunction reports whether name is an accepted elementary function.
func IsFunction(name string) bool {
	_, ok := elementary[name]
	return ok
}

// IsConstant reports whether name parses as a named constant.
func IsConstant(name string) bool {
	_, ok := constants[name]
	return ok
}
