package viz

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/solver"
)

// TraceRows caps the rows shown at each end of a numeric trace.
const TraceRows = 5

// RenderResult formats a result for the terminal.
func RenderResult(s Styles, res *solver.Result) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(res.Original) + "\n")
	b.WriteString(s.Label.Render("canonical  ") + s.Value.Render(res.Canonical) + "\n")
	b.WriteString(s.Label.Render("method     ") + s.Value.Render(string(res.Method)) + "\n")
	if res.Strategy != "" {
		b.WriteString(s.Label.Render("strategy   ") + s.Value.Render(string(res.Strategy)) + "\n")
	}
	b.WriteString("\n")

	for i, step := range res.Steps {
		b.WriteString(s.KeyHint.Render(fmt.Sprintf("%d. %s", i+1, step.Title)) + "\n")
		b.WriteString("   " + step.Description + "\n")
		if step.Equation != "" {
			b.WriteString("   " + s.Subtle.Render(step.Equation) + "\n")
		}
	}

	if len(res.Solutions) > 0 {
		lines := make([]string, len(res.Solutions))
		for i, sol := range res.Solutions {
			lines[i] = sol.Text
			if !sol.Explicit {
				lines[i] += s.Subtle.Render("  (implicit)")
			}
		}
		b.WriteString("\n" + s.Box.Render(strings.Join(lines, "\n")) + "\n")
	}

	if res.Trace != nil && res.Trace.Len() > 0 {
		b.WriteString("\n" + renderTrace(s, res.Trace) + "\n")
	}

	if len(res.Diagnostics) > 0 {
		keys := make([]string, 0, len(res.Diagnostics))
		for k := range res.Diagnostics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			b.WriteString(s.Label.Render(fmt.Sprintf("%-22s", k)) + s.Value.Render(res.Diagnostics[k]) + "\n")
		}
	}

	for _, w := range res.Warnings {
		b.WriteString("\n" + s.Warn.Render("⚠ "+w) + "\n")
	}
	if res.Explanation != "" {
		b.WriteString("\n" + s.Title.Render("Explanation") + "\n" + res.Explanation + "\n")
	}
	return b.String()
}

// renderTrace shows the first and last TraceRows samples as a table.
func renderTrace(s Styles, t *dynamo.Trace) string {
	header := append([]string{"x"}, t.Names...)
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = fmt.Sprintf("%14s", h)
	}

	var rows []string
	rows = append(rows, s.Label.Render(strings.Join(cols, "")))
	row := func(sm dynamo.Sample) string {
		cells := []string{fmt.Sprintf("%14s", formatValue(sm.X))}
		for _, v := range sm.State {
			cells = append(cells, fmt.Sprintf("%14s", formatValue(v)))
		}
		return strings.Join(cells, "")
	}
	n := t.Len()
	if n <= 2*TraceRows {
		for _, sm := range t.Samples {
			rows = append(rows, row(sm))
		}
	} else {
		for _, sm := range t.Samples[:TraceRows] {
			rows = append(rows, row(sm))
		}
		rows = append(rows, s.Subtle.Render(fmt.Sprintf("%14s", fmt.Sprintf("… %d more", n-2*TraceRows))))
		for _, sm := range t.Samples[n-TraceRows:] {
			rows = append(rows, row(sm))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// RenderError formats a failed solve, naming the category and fragment when
// the error carries them.
func RenderError(s Styles, err error) string {
	var se *solver.Error
	if !errors.As(err, &se) {
		return s.Err.Render("error: ") + err.Error()
	}
	out := s.Err.Render(string(se.Category)+": ") + se.Err.Error()
	if se.Fragment != "" {
		out += "\n" + s.Label.Render("  at ") + s.Value.Render(se.Fragment)
	}
	return out
}
