// Package ics resolves initial-condition clauses such as y'(0)=1 into an
// immutable binding keyed by function name and derivative order.
package ics

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/san-kum/odelab/internal/expr"
)

var (
	// ErrMalformed marks a clause that is not name'(x0)=value.
	ErrMalformed = errors.New("ics: malformed initial condition")

	// ErrUnsupportedOrder marks a clause with more than three prime marks.
	ErrUnsupportedOrder = errors.New("ics: derivative order above 3 not supported")

	// ErrMissingBase marks a function whose base point cannot be resolved.
	ErrMissingBase = errors.New("ics: no base point for function")
)

// MaxOrder is the highest derivative order a clause may bind.
const MaxOrder = 3

// ClauseError names the clause that failed to resolve.
type ClauseError struct {
	Clause string
	Err    error
}

func (e *ClauseError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Clause)
}

func (e *ClauseError) Unwrap() error { return e.Err }

// Key identifies one binding.
type Key struct {
	Name  string
	Order int
}

func (k Key) String() string { return k.Name + strings.Repeat("'", k.Order) }

// Value is a bound base point and value, kept both exact and as floats.
type Value struct {
	X0, Value         float64
	X0Expr, ValueExpr expr.Expr
}

// Binding maps (name, order) to a value. It is never mutated after construction.
type Binding struct {
	keys   []Key
	values map[Key]Value

	// Overwritten lists keys that appeared more than once; the last clause won.
	Overwritten []Key
}

func newBinding() *Binding {
	return &Binding{values: map[Key]Value{}}
}

func (b *Binding) set(k Key, v Value) bool {
	_, dup := b.values[k]
	if !dup {
		b.keys = append(b.keys, k)
	}
	b.values[k] = v
	return dup
}

// Resolve parses clauses in order. Duplicate keys resolve last-write-wins and
// are reported in Overwritten.
func Resolve(clauses []string, ctx expr.Context) (*Binding, error) {
	b := newBinding()
	for _, clause := range clauses {
		k, v, err := parseClause(clause, ctx)
		if err != nil {
			return nil, &ClauseError{Clause: clause, Err: err}
		}
		if b.set(k, v) {
			b.Overwritten = append(b.Overwritten, k)
		}
	}
	return b, nil
}

func parseClause(clause string, ctx expr.Context) (Key, Value, error) {
	rs := []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, clause))

	i := 0
	for i < len(rs) && (unicode.IsLetter(rs[i]) || rs[i] == '_' || (i > 0 && unicode.IsDigit(rs[i]))) {
		i++
	}
	name := string(rs[:i])
	if name == "" {
		return Key{}, Value{}, fmt.Errorf("%w: missing function name", ErrMalformed)
	}
	order := 0
	for i < len(rs) && (rs[i] == '\'' || rs[i] == '’' || rs[i] == '′') {
		order++
		i++
	}
	if i == len(rs) || rs[i] != '(' {
		return Key{}, Value{}, fmt.Errorf("%w: expected %s(x0)=value", ErrMalformed, name)
	}
	open := i
	depth := 0
	for ; i < len(rs); i++ {
		if rs[i] == '(' {
			depth++
		} else if rs[i] == ')' {
			depth--
			if depth == 0 {
				break
			}
		}
	}
	if i == len(rs) {
		return Key{}, Value{}, fmt.Errorf("%w: unbalanced parentheses", ErrMalformed)
	}
	x0Text := string(rs[open+1 : i])
	rest := string(rs[i+1:])
	if !strings.HasPrefix(rest, "=") || len(rest) == 1 || x0Text == "" {
		return Key{}, Value{}, fmt.Errorf("%w: expected %s(x0)=value", ErrMalformed, name)
	}
	if order > MaxOrder {
		return Key{}, Value{}, fmt.Errorf("%w: order %d", ErrUnsupportedOrder, order)
	}
	if !ctx.IsFunc(name) {
		return Key{}, Value{}, fmt.Errorf("%w: unknown function %s", ErrMalformed, name)
	}
	x0, x0Expr, err := constant(x0Text)
	if err != nil {
		return Key{}, Value{}, err
	}
	val, valExpr, err := constant(rest[1:])
	if err != nil {
		return Key{}, Value{}, err
	}
	return Key{Name: name, Order: order}, Value{X0: x0, Value: val, X0Expr: x0Expr, ValueExpr: valExpr}, nil
}

// constant parses and evaluates a closed constant such as pi/2 or exp(1).
func constant(text string) (float64, expr.Expr, error) {
	e, err := expr.ParseExpr(text, expr.Context{})
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	e = expr.Simplify(e)
	v, err := expr.Eval(e, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %q is not a constant: %w", ErrMalformed, text, err)
	}
	return v, e, nil
}

// FromValues binds successive derivatives of name at x0: values[k] is the k-th derivative.
func FromValues(name string, x0 float64, values []float64) *Binding {
	b := newBinding()
	for k, v := range values {
		b.set(Key{Name: name, Order: k}, number(x0, v))
	}
	return b
}

// FromVector binds one order-0 value per name at a shared x0.
func FromVector(names []string, x0 float64, values []float64) *Binding {
	b := newBinding()
	for i, v := range values {
		if i < len(names) {
			b.set(Key{Name: names[i]}, number(x0, v))
		}
	}
	return b
}

func number(x0, v float64) Value {
	return Value{X0: x0, Value: v, X0Expr: floatExpr(x0), ValueExpr: floatExpr(v)}
}

func floatExpr(v float64) expr.Expr {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return &expr.Sym{Name: text}
	}
	return &expr.Num{V: r}
}

// Merge returns a binding holding every key of primary and the keys of
// secondary that primary lacks. Either argument may be nil.
func Merge(primary, secondary *Binding) *Binding {
	out := newBinding()
	for _, src := range []*Binding{primary, secondary} {
		if src == nil {
			continue
		}
		for _, k := range src.keys {
			if _, ok := out.values[k]; !ok {
				out.set(k, src.values[k])
			}
		}
		out.Overwritten = append(out.Overwritten, src.Overwritten...)
	}
	return out
}

// Len is the number of bound keys.
func (b *Binding) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Keys returns the bound keys in resolution order.
func (b *Binding) Keys() []Key {
	if b == nil {
		return nil
	}
	return append([]Key(nil), b.keys...)
}

// Get looks up one binding.
func (b *Binding) Get(name string, order int) (Value, bool) {
	if b == nil {
		return Value{}, false
	}
	v, ok := b.values[Key{Name: name, Order: order}]
	return v, ok
}

// Orders lists the bound derivative orders of name, ascending.
func (b *Binding) Orders(name string) []int {
	var out []int
	for _, k := range b.Keys() {
		if k.Name == name {
			out = append(out, k.Order)
		}
	}
	sort.Ints(out)
	return out
}

// X0 returns the base point of name, taken from its lowest bound order.
func (b *Binding) X0(name string) (float64, error) {
	orders := b.Orders(name)
	if len(orders) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrMissingBase, name)
	}
	v, _ := b.Get(name, orders[0])
	return v.X0, nil
}

// Clauses renders the binding back to clause text, one per key.
func (b *Binding) Clauses() []string {
	var out []string
	for _, k := range b.Keys() {
		v := b.values[k]
		out = append(out, fmt.Sprintf("%s(%s)=%s", k, expr.String(v.X0Expr), expr.String(v.ValueExpr)))
	}
	return out
}
