package ui

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"automata/internal/activities"
	"automata/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// Controller receives the monitor's global commands.
type Controller interface {
	// Launch starts kind, or a weighted random kind when kind is empty.
	Launch(kind string)
	Panic()
	Reload()
	Quit()
}

// Monitor is the interactive Display: every presentation becomes a row in
// a bubbletea program where the user can dismiss or answer it.
type Monitor struct {
	ctrl   Controller
	styles Styles

	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	program *tea.Program
}

type entry struct {
	p     activities.Presentation
	ev    activities.Events
	shown time.Time
	seq   uint64
}

// NewMonitor creates a monitor that forwards global keys to ctrl.
func NewMonitor(ctrl Controller) *Monitor {
	return &Monitor{
		ctrl:    ctrl,
		styles:  DefaultStyles(),
		entries: make(map[string]*entry),
	}
}

// Present implements activities.Display.
func (m *Monitor) Present(p activities.Presentation, ev activities.Events) (activities.Handle, error) {
	m.mu.Lock()
	m.seq++
	m.entries[p.InstanceID] = &entry{p: p, ev: ev, shown: time.Now(), seq: m.seq}
	m.mu.Unlock()

	logging.Get(logging.CategoryUI).Debug("present %s/%s", p.Kind, p.InstanceID)
	m.notify()
	return &monitorHandle{mon: m, id: p.InstanceID}, nil
}

// SetController replaces the receiver of the global keys.
func (m *Monitor) SetController(ctrl Controller) {
	m.mu.Lock()
	m.ctrl = ctrl
	m.mu.Unlock()
}

func (m *Monitor) controller() Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl
}

// Len returns the number of rows on screen.
func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Monitor) remove(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	m.notify()
}

// snapshot returns the rows in presentation order.
func (m *Monitor) snapshot() []entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// notify wakes the program without blocking the presenting goroutine.
func (m *Monitor) notify() {
	m.mu.Lock()
	p := m.program
	m.mu.Unlock()
	if p != nil {
		go p.Send(refreshMsg{})
	}
}

// Run shows the monitor until the user quits or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(newModel(m), opts...)

	m.mu.Lock()
	m.program = p
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.program = nil
		m.mu.Unlock()
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type monitorHandle struct {
	mon  *Monitor
	id   string
	once sync.Once
}

func (h *monitorHandle) Close() error {
	h.once.Do(func() { h.mon.remove(h.id) })
	return nil
}

