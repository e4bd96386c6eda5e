package activities

import (
	"sync"
	"time"

	"automata/internal/logging"
)

// Presentation is what an instance asks the display to show.
type Presentation struct {
	InstanceID string
	Kind       string

	// Content is the chosen reference: a file path or URL.
	Content string

	// Text is the prompt to retype or the instruction shown to the user.
	Text string

	Censor bool
	Alpha  int    // opacity percentage
	Button string // close button label, empty for none

	// Input asks the display for a typed answer; Secret masks it.
	Input  bool
	Secret bool

	// Track asks the display to check the input against Text on every
	// keystroke with CheckTyped, and to submit only an exact match.
	Track bool

	Deadline time.Time
}

// Events is how a display reports user interaction back to an instance.
type Events interface {
	// DismissRequested is the user trying to close the instance.
	DismissRequested()

	// Completed is the user submitting an answer.
	Completed(answer string)
}

// Handle removes a presentation from the display.
type Handle interface {
	Close() error
}

// Display renders presentations. Implementations must be safe for
// concurrent use; every instance presents from its own goroutine.
type Display interface {
	Present(p Presentation, ev Events) (Handle, error)
}

// LogDisplay is the headless display: it logs presentations and never
// reports interaction, so instances end by timeout or shutdown.
type LogDisplay struct{}

func (LogDisplay) Present(p Presentation, _ Events) (Handle, error) {
	logging.Activity("present %s/%s content=%q text=%q censor=%v alpha=%d",
		p.Kind, shortID(p.InstanceID), p.Content, p.Text, p.Censor, p.Alpha)
	return &logHandle{id: p.InstanceID, kind: p.Kind}, nil
}

type logHandle struct {
	id, kind string
	once     sync.Once
}

func (h *logHandle) Close() error {
	h.once.Do(func() {
		logging.ActivityDebug("closed %s/%s", h.kind, shortID(h.id))
	})
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
