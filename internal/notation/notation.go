// Package notation turns free-form ODE text into the canonical equation grammar
// and splits off the initial-condition clauses that follow it.
package notation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/san-kum/odelab/internal/expr"
)

var (
	// ErrEmptyInput means no equation segment remained after trimming.
	ErrEmptyInput = errors.New("notation: empty input")

	// ErrMalformedEquation means the equation segment does not parse.
	ErrMalformedEquation = errors.New("notation: malformed equation")
)

// exactShape matches M dx + N dy = 0 on whitespace-stripped text.
var exactShape = regexp.MustCompile(`(?i)^(.*?)dx\+(.*?)dy=0$`)

// ExactForm keeps the differential coefficients of M dx + N dy = 0.
type ExactForm struct {
	M, N expr.Expr
}

// Normalized is the result of normalizing one raw problem.
type Normalized struct {
	Canonical string
	Equation  *expr.Equation
	Clauses   []string
	Exact     *ExactForm
}

// Normalize canonicalizes the first segment of raw and returns the remaining
// segments, in order, as initial-condition clauses. Normalizing a canonical
// equation returns it unchanged.
func Normalize(raw string, ctx expr.Context) (*Normalized, error) {
	segments := Split(raw)
	if len(segments) == 0 {
		return nil, ErrEmptyInput
	}
	text := stripSpace(segments[0])
	out := &Normalized{Clauses: segments[1:]}

	if m := exactShape.FindStringSubmatch(text); m != nil {
		form, err := parseExact(m[1], m[2], ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedEquation, segments[0], err)
		}
		out.Exact = form
		out.Equation = &expr.Equation{
			LHS: ctx.Dep(ctx.Primary(), 1),
			RHS: expr.Div(expr.Negate(form.M), form.N),
		}
	} else {
		eq, err := expr.ParseEquation(text, ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedEquation, segments[0], err)
		}
		out.Equation = eq
	}
	out.Canonical = out.Equation.String()
	return out, nil
}

func parseExact(m, n string, ctx expr.Context) (*ExactForm, error) {
	m = strings.TrimSuffix(m, "*")
	n = strings.TrimSuffix(n, "*")
	if m == "" || n == "" {
		return nil, errors.New("missing differential coefficient")
	}
	me, err := expr.ParseExpr(m, ctx)
	if err != nil {
		return nil, err
	}
	ne, err := expr.ParseExpr(n, ctx)
	if err != nil {
		return nil, err
	}
	return &ExactForm{M: me, N: ne}, nil
}

// Split cuts raw text into trimmed, non-empty segments. Separators are ';',
// newlines, and top-level commas followed by an identifier and then '(' or '\''.
func Split(raw string) []string {
	rs := []rune(raw)
	var out []string
	start, depth := 0, 0
	cut := func(end int) {
		if s := strings.TrimSpace(string(rs[start:end])); s != "" {
			out = append(out, s)
		}
		start = end + 1
	}
	for i, r := range rs {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';', '\n':
			cut(i)
		case ',':
			if depth == 0 && clauseAhead(rs[i+1:]) {
				cut(i)
			}
		}
	}
	cut(len(rs))
	return out
}

// clauseAhead reports whether rs starts with optional spaces, an identifier,
// optional spaces and then '(' or a prime mark.
func clauseAhead(rs []rune) bool {
	i := 0
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	if i == len(rs) || !unicode.IsLetter(rs[i]) {
		return false
	}
	for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
		i++
	}
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return i < len(rs) && (rs[i] == '(' || rs[i] == '\'' || rs[i] == '’' || rs[i] == '′')
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
