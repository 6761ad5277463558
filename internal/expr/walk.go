package expr

// Walk visits e and its children depth-first, stopping a branch when fn returns false.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Call:
		Walk(n.Arg, fn)
	case *Neg:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.L, fn)
		Walk(n.R, fn)
	}
}

// Map rebuilds e bottom-up, replacing each node with fn's result.
func Map(e Expr, fn func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Call:
		e = &Call{Fn: n.Fn, Arg: Map(n.Arg, fn)}
	case *Neg:
		e = &Neg{X: Map(n.X, fn)}
	case *Binary:
		e = &Binary{Op: n.Op, L: Map(n.L, fn), R: Map(n.R, fn)}
	}
	return fn(e)
}

// Contains reports whether a symbol or dependent function called name occurs in e.
func Contains(e Expr, name string) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch n := n.(type) {
		case *Sym:
			found = found || n.Name == name
		case *Dep:
			found = found || n.Name == name
		}
		return !found
	})
	return found
}

// DependsOn reports whether e varies with v: v itself or a function of v.
func DependsOn(e Expr, v string) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch n := n.(type) {
		case *Sym:
			found = found || n.Name == v
		case *Dep:
			found = found || n.Var == v || n.Name == v
		}
		return !found
	})
	return found
}

// MaxOrder returns the highest derivative order of name in e, or -1 if absent.
func MaxOrder(e Expr, name string) int {
	best := -1
	Walk(e, func(n Expr) bool {
		if d, ok := n.(*Dep); ok && d.Name == name && d.Order > best {
			best = d.Order
		}
		return true
	})
	return best
}

// Deps lists the dependent function names in e in first-seen order.
func Deps(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	Walk(e, func(n Expr) bool {
		if d, ok := n.(*Dep); ok && !seen[d.Name] {
			seen[d.Name] = true
			out = append(out, d.Name)
		}
		return true
	})
	return out
}

// Syms lists free symbol names in e in first-seen order.
func Syms(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	Walk(e, func(n Expr) bool {
		if s, ok := n.(*Sym); ok && !seen[s.Name] {
			seen[s.Name] = true
			out = append(out, s.Name)
		}
		return true
	})
	return out
}

// Replace substitutes every symbol called name with with.
func Replace(e Expr, name string, with Expr) Expr {
	return Map(e, func(n Expr) Expr {
		if s, ok := n.(*Sym); ok && s.Name == name {
			return with
		}
		return n
	})
}

// ReplaceDep substitutes every occurrence of the given dependent derivative.
func ReplaceDep(e Expr, name string, order int, with Expr) Expr {
	return Map(e, func(n Expr) Expr {
		if d, ok := n.(*Dep); ok && d.Name == name && d.Order == order {
			return with
		}
		return n
	})
}

// Freeze turns each applied function y(x) into the plain symbol y, and each
// derivative into a symbol named by Key, so partial derivatives can treat them
// as independent variables.
func Freeze(e Expr) Expr {
	return Map(e, func(n Expr) Expr {
		if d, ok := n.(*Dep); ok {
			return &Sym{Name: Key(d.Name, d.Order)}
		}
		return n
	})
}

// Thaw reverses Freeze for the functions declared in ctx.
func Thaw(e Expr, ctx Context) Expr {
	return Map(e, func(n Expr) Expr {
		s, ok := n.(*Sym)
		if !ok {
			return n
		}
		for _, f := range ctx.Funcs {
			for k := 0; k <= maxOrder; k++ {
				if s.Name == Key(f, k) {
					return ctx.Dep(f, k)
				}
			}
		}
		return n
	})
}
