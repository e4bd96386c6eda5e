package ui

import (
	"fmt"
	"strings"
	"time"

	"automata/internal/activities"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	refreshMsg struct{}
	tickMsg    time.Time
)

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is the monitor's bubbletea model. Rows come from the Monitor;
// user actions run as commands so activity callbacks never execute on the
// event loop.
type model struct {
	mon     *Monitor
	styles  Styles
	keys    keyMap
	help    help.Model
	input   textinput.Model
	entries []entry
	cursor  int

	// answering is the instance id the input is bound to.
	answering string

	status string
	width  int
	now    func() time.Time
}

func newModel(mon *Monitor) model {
	ti := textinput.New()
	ti.Placeholder = "type your answer"
	ti.CharLimit = 512

	return model{
		mon:     mon,
		styles:  mon.styles,
		keys:    defaultKeys(),
		help:    help.New(),
		input:   ti,
		entries: mon.snapshot(),
		now:     time.Now,
	}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.refresh()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.answering != "" {
			return m.updateAnswer(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *model) refresh() {
	m.entries = m.mon.snapshot()
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.answering != "" && m.find(m.answering) < 0 {
		m.stopAnswering()
		m.status = "instance closed before the answer was sent"
	}
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		ctrl := m.mon.controller()
		return m, tea.Batch(func() tea.Msg {
			if ctrl != nil {
				ctrl.Quit()
			}
			return nil
		}, tea.Quit)

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Dismiss):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.status = fmt.Sprintf("dismiss %s/%s", e.p.Kind, shortID(e.p.InstanceID))
		ev := e.ev
		return m, func() tea.Msg {
			ev.DismissRequested()
			return nil
		}

	case key.Matches(msg, m.keys.Answer):
		e, ok := m.selected()
		if !ok || !e.p.Input {
			return m, nil
		}
		m.answering = e.p.InstanceID
		m.input.Reset()
		if e.p.Secret {
			m.input.EchoMode = textinput.EchoPassword
		} else {
			m.input.EchoMode = textinput.EchoNormal
		}
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Launch):
		m.status = "launch requested"
		return m, m.control(func(c Controller) { c.Launch("") })

	case key.Matches(msg, m.keys.Panic):
		m.status = "panic requested"
		return m, m.control(func(c Controller) { c.Panic() })

	case key.Matches(msg, m.keys.Reload):
		m.status = "reload requested"
		return m, m.control(func(c Controller) { c.Reload() })

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m model) updateAnswer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopAnswering()
		return m, nil

	case key.Matches(msg, m.keys.Answer):
		idx := m.find(m.answering)
		if idx >= 0 && m.entries[idx].p.Track {
			// Tracked prompts submit themselves on an exact match.
			return m, nil
		}
		answer := m.input.Value()
		m.stopAnswering()
		if idx < 0 {
			return m, nil
		}
		return m, m.complete(m.entries[idx].ev, answer)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	idx := m.find(m.answering)
	if idx < 0 || !m.entries[idx].p.Track {
		return m, cmd
	}
	e := m.entries[idx]
	switch activities.CheckTyped(e.p.Text, m.input.Value()) {
	case activities.TypedWrong:
		m.input.Reset()
		m.status = "wrong key, start over"
	case activities.TypedExact:
		answer := m.input.Value()
		m.stopAnswering()
		return m, tea.Batch(cmd, m.complete(e.ev, answer))
	}
	return m, cmd
}

func (m model) complete(ev activities.Events, answer string) tea.Cmd {
	return func() tea.Msg {
		ev.Completed(answer)
		return nil
	}
}

func (m *model) stopAnswering() {
	m.answering = ""
	m.input.Blur()
	m.input.Reset()
}

func (m model) control(fn func(Controller)) tea.Cmd {
	ctrl := m.mon.controller()
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		fn(ctrl)
		return nil
	}
}

func (m model) selected() (entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m model) find(id string) int {
	for i, e := range m.entries {
		if e.p.InstanceID == id {
			return i
		}
	}
	return -1
}

// -----------------------------------------------------------------------------
// View
// -----------------------------------------------------------------------------

func (m model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render("automata"))
	sb.WriteString(" ")
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d live", len(m.entries))))
	sb.WriteString("\n\n")

	if len(m.entries) == 0 {
		sb.WriteString(m.styles.Muted.Render("  nothing on screen"))
		sb.WriteString("\n")
	}
	now := m.now()
	for i, e := range m.entries {
		sb.WriteString(m.renderRow(e, i == m.cursor, now))
		sb.WriteString("\n")
	}

	if m.answering != "" {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Prompt.Render("> "))
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(m.styles.Footer.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m model) renderRow(e entry, selected bool, now time.Time) string {
	cursor := "  "
	kind := m.styles.Bold.Render(fmt.Sprintf("%-13s", e.p.Kind))
	if selected {
		cursor = m.styles.Selected.Render("▸ ")
		kind = m.styles.Selected.Render(fmt.Sprintf("%-13s", e.p.Kind))
	}

	parts := []string{cursor + kind, m.styles.Muted.Render(shortID(e.p.InstanceID))}
	if e.p.Text != "" {
		parts = append(parts, fmt.Sprintf("%q", truncate(e.p.Text, 40)))
	}
	if e.p.Content != "" {
		parts = append(parts, truncate(e.p.Content, 48))
	}
	if e.p.Censor {
		parts = append(parts, m.styles.Warning.Render("censored"))
	}
	if e.p.Input {
		parts = append(parts, m.styles.Info.Render("input"))
	}
	parts = append(parts, m.styles.Muted.Render(remaining(e.p.Deadline, now)))
	return strings.Join(parts, "  ")
}

func remaining(deadline, now time.Time) string {
	if deadline.IsZero() {
		return "no timeout"
	}
	left := deadline.Sub(now)
	if left < 0 {
		left = 0
	}
	return left.Round(time.Second).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
