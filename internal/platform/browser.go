package platform

import (
	"errors"
	"sync"

	"automata/internal/logging"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrNoBrowser is returned when a private window is requested and no
// browser binary can be found.
var ErrNoBrowser = errors.New("no browser found")

// Session is an opened page. Closing a private session kills the browser
// process that was started for it.
type Session interface {
	Close() error
}

// Browser opens URLs.
type Browser interface {
	Open(url string, private bool) (Session, error)
}

// RodBrowser opens URLs through go-rod's launcher: the default browser for
// normal pages, a dedicated incognito process for private ones.
type RodBrowser struct {
	// Bin overrides browser discovery.
	Bin string
}

// NewBrowser returns a RodBrowser using the system browser.
func NewBrowser() *RodBrowser {
	return &RodBrowser{}
}

func (b *RodBrowser) Open(url string, private bool) (Session, error) {
	if !private {
		launcher.Open(url)
		logging.Platform("opened %s in the default browser", url)
		return noSession{}, nil
	}

	bin := b.Bin
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return nil, ErrNoBrowser
		}
		bin = found
	}

	l := launcher.New().
		Bin(bin).
		Headless(false).
		Leakless(false).
		Set("incognito").
		StartURL(url)
	if _, err := l.Launch(); err != nil {
		l.Kill()
		return nil, err
	}
	logging.Platform("opened %s in a private window (pid=%d)", url, l.PID())
	return &privateSession{l: l}, nil
}

type noSession struct{}

func (noSession) Close() error { return nil }

type privateSession struct {
	l    *launcher.Launcher
	once sync.Once
}

func (s *privateSession) Close() error {
	s.once.Do(func() {
		s.l.Kill()
		s.l.Cleanup()
	})
	return nil
}
