package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks text that does not parse into an expression.
	ErrSyntax = errors.New("expr: syntax error")

	// ErrDivisionByZero is returned by evaluation when a denominator is exactly zero.
	ErrDivisionByZero = errors.New("expr: division by zero")

	// ErrDomain is returned by evaluation outside a function's real domain.
	ErrDomain = errors.New("expr: argument outside function domain")

	// ErrUnbound marks a symbol or function with no value at evaluation time.
	ErrUnbound = errors.New("expr: unbound symbol")

	// ErrNotIsolable marks an equation that cannot be solved for the requested term.
	ErrNotIsolable = errors.New("expr: term cannot be isolated")
)

// SyntaxError locates a parse failure in the source text.
type SyntaxError struct {
	Pos      int
	Fragment string
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %d near %q", e.Msg, e.Pos, e.Fragment)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }
