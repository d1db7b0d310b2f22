package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/object"
	"github.com/wippyai/objbridge/platform"
)

type interactiveModel struct {
	err      error
	platform *platform.Platform
	result   string
	held     []objbridge.Handle
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
	stateHandles
)

func newInteractiveModel(rt *objbridge.Runtime) *interactiveModel {
	return &interactiveModel{
		platform: platform.New(rt),
		state:    stateSelectFunc,
	}
}

type callResultMsg struct {
	err    error
	result string
	handle objbridge.Handle
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				m.releaseHeld()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(samples)-1 {
				m.selected++
			}

		case "h":
			if m.state == stateSelectFunc {
				m.state = stateHandles
			}

		case "r":
			if m.state == stateSelectFunc || m.state == stateHandles {
				m.releaseHeld()
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult, stateHandles:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult, stateHandles:
				m.reset()
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		if !msg.handle.IsNull() {
			m.held = append(m.held, msg.handle)
		}
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.result = ""
	m.err = nil
	m.inputs = nil
}

// releaseHeld drops the owner references of every result kept so far.
func (m *interactiveModel) releaseHeld() {
	rt := m.platform.Runtime()
	for _, h := range m.held {
		rt.ReleaseForeign(h)
	}
	m.held = nil
}

func (m *interactiveModel) prepareInputs() {
	s := samples[m.selected]
	m.inputs = make([]textinput.Model, len(s.params))
	for i, p := range s.params {
		ti := textinput.New()
		ti.Placeholder = object.TypeString(p.typ)
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i < len(s.example) {
			ti.SetValue(s.example[i])
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callFunction runs the selected sample. The result stays alive, listed in
// the handle view, until released with r or on quit.
func (m *interactiveModel) callFunction() tea.Msg {
	s := samples[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	rt := m.platform.Runtime()
	h, err := s.invoke(context.Background(), m.platform, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	if h.IsNull() {
		return callResultMsg{result: "null"}
	}

	v, err := rt.Export(h)
	if err != nil {
		return callResultMsg{err: err, handle: h}
	}
	return callResultMsg{
		result: fmt.Sprintf("%s = %s", h, formatValue(v)),
		handle: h,
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Inspector"))
	fmt.Fprintf(&b, " %d live objects, %d held\n\n", m.platform.Runtime().Stats().Objects, len(m.held))

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, s := range samples {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + s.name))
				b.WriteString(" " + m.formatSample(s))
			} else {
				b.WriteString("  " + funcStyle.Render(s.name) + " " + m.formatSample(s))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • h handles • r release held • q quit"))

	case stateInputArgs:
		s := samples[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(s.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(object.TypeString(s.params[i].typ)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		s := samples[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(s.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateHandles:
		b.WriteString(newReport(m.platform.Runtime(), 0).render())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r release held • enter back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatSample(s sample) string {
	var params []string
	for _, p := range s.params {
		params = append(params, p.name+": "+typeStyle.Render(object.TypeString(p.typ)))
	}
	return "(" + strings.Join(params, ", ") + ") -> " + typeStyle.Render(s.result)
}

func runInteractive(rt *objbridge.Runtime) error {
	m := newInteractiveModel(rt)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.releaseHeld()
	return err
}
