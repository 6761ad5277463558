package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/solver"
)

// Solver is the solve capability the interactive app drives.
type Solver interface {
	Solve(ctx context.Context, req solver.Request) (*solver.Result, error)
}

const (
	stateEdit = iota
	statePresets
	stateResult
)

type solvedMsg struct {
	res *solver.Result
	err error
}

type model struct {
	svc     Solver
	state   int
	input   string
	method  int
	presets []string
	cursor  int
	solving bool
	result  *solver.Result
	err     error
	theme   int
	styles  Styles
	width   int
}

func NewInteractiveApp(svc Solver, theme string) *model {
	m := &model{
		svc:     svc,
		presets: config.ListPresets(),
		width:   80,
	}
	for i, t := range Themes {
		if t.Name == theme {
			m.theme = i
		}
	}
	m.styles = NewStyles(Themes[m.theme])
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case solvedMsg:
		m.solving = false
		m.result, m.err = msg.res, msg.err
		m.state = stateResult
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.state {
	case stateEdit:
		return m.editKey(msg)
	case statePresets:
		return m.presetKey(msg)
	case stateResult:
		return m.resultKey(msg)
	}
	return m, nil
}

func (m model) editKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab":
		m.method = (m.method + 1) % len(solver.Methods)
	case "ctrl+p":
		m.state = statePresets
	case "enter":
		if strings.TrimSpace(m.input) == "" || m.solving {
			return m, nil
		}
		m.solving = true
		return m, m.solve()
	}
	return m, nil
}

func (m model) presetKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.state = stateEdit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if p := config.GetPreset(m.presets[m.cursor]); p != nil {
			m.input = p.Equation
		}
		m.state = stateEdit
	}
	return m, nil
}

func (m model) resultKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "enter":
		m.state = stateEdit
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = NewStyles(Themes[m.theme])
	}
	return m, nil
}

func (m model) solve() tea.Cmd {
	svc := m.svc
	req := solver.Request{Equation: m.input, Method: solver.Methods[m.method]}
	return func() tea.Msg {
		res, err := svc.Solve(context.Background(), req)
		return solvedMsg{res: res, err: err}
	}
}

func (m model) View() string {
	switch m.state {
	case statePresets:
		return m.viewPresets()
	case stateResult:
		return m.viewResult()
	}
	return m.viewEdit()
}

func (m model) header(sub string) string {
	s := m.styles
	return "\n  " + s.Title.Render("ODELAB") + "\n  " + s.Subtle.Render(sub) + "\n  " + s.Separator(40) + "\n\n"
}

func (m model) hints(pairs ...string) string {
	var b strings.Builder
	b.WriteString("\n  ")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(m.styles.KeyHint.Render(pairs[i]) + m.styles.Subtle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String() + "\n"
}

func (m model) viewEdit() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(m.header("differential equation solver"))
	b.WriteString("  " + s.Label.Render("equation ") + s.Value.Render(m.input+"_") + "\n")
	b.WriteString("  " + s.Label.Render("method   ") + s.Value.Render(string(solver.Methods[m.method])) + "\n")
	if m.solving {
		b.WriteString("\n  " + s.OK.Render("solving…") + "\n")
	}
	b.WriteString(m.hints("enter", "solve", "tab", "method", "ctrl+p", "presets", "esc", "quit"))
	return b.String()
}

func (m model) viewPresets() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(m.header("presets"))
	for i, name := range m.presets {
		p := config.GetPreset(name)
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", s.KeyHint.Render("▸"), s.Title.Render(fmt.Sprintf("%-20s", name)), s.Value.Render(p.Equation)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", s.Subtle.Render(fmt.Sprintf("%-20s", name)), s.Subtle.Render(p.Equation)))
		}
	}
	b.WriteString(m.hints("j/k", "navigate", "enter", "load", "esc", "back"))
	return b.String()
}

func (m model) viewResult() string {
	var b strings.Builder
	b.WriteString(m.header(m.input))
	if m.err != nil {
		b.WriteString(RenderError(m.styles, m.err) + "\n")
	} else if m.result != nil {
		b.WriteString(RenderResult(m.styles, m.result))
		if t := m.result.Trace; t != nil && t.Len() > 1 {
			for i, name := range t.Names {
				b.WriteString("\n" + m.styles.Label.Render(fmt.Sprintf("%-6s", name)) + Sparkline(t.Column(i), min(m.width-10, 60)))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(m.hints("esc", "edit", "t", "theme", "q", "quit"))
	return b.String()
}

func RunInteractive(svc Solver, theme string) error {
	_, err := tea.NewProgram(NewInteractiveApp(svc, theme), tea.WithAltScreen()).Run()
	return err
}
