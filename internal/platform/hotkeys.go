package platform

import "automata/internal/logging"

// Hotkeys registers global key chords.
type Hotkeys interface {
	Register(chord string, fn func()) error
	Close()
}

// signalHotkeys is the portable fallback: no OS chord is grabbed and the
// panic trigger is delivered through SIGUSR2 or the terminal monitor.
type signalHotkeys struct{}

// NewHotkeys returns the platform hotkey registry.
func NewHotkeys() Hotkeys {
	return signalHotkeys{}
}

func (signalHotkeys) Register(chord string, _ func()) error {
	logging.PlatformWarn("global hotkey %q not supported here; use SIGUSR2 or the monitor's panic key", chord)
	return nil
}

func (signalHotkeys) Close() {}
