// Package activities implements the concrete activity kinds and builds the
// registry the scheduler launches from.
package activities

import (
	"errors"
	"fmt"
	"sync"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/pack"
	"automata/internal/platform"
)

// ErrNoContent is a construction failure: the pack has nothing to show.
var ErrNoContent = errors.New("no content available")

// Deps are the collaborators the activity kinds need.
type Deps struct {
	Config     *config.Config
	ConfigPath string

	Display   Display
	Guardian  *platform.Guardian
	Wallpaper platform.Wallpaper
	Browser   platform.Browser
}

func (d *Deps) fill() {
	if d.Display == nil {
		d.Display = LogDisplay{}
	}
	if d.Guardian == nil {
		d.Guardian = platform.NewGuardian(d.Config.Panic.PasswordHash)
	}
	if d.Wallpaper == nil {
		d.Wallpaper = platform.NewWallpaper()
	}
	if d.Browser == nil {
		d.Browser = platform.NewBrowser()
	}
}

// entry binds a kind name to its content category and factory builder.
type entry struct {
	name    string
	content string
	factory func(deps Deps, ac config.ActivityConfig) core.Factory
}

// kinds is the registration table, in launch-evaluation order.
var kinds = []entry{
	{"image", pack.Images, popupFactory(pack.Images)},
	{"gif", pack.Gifs, popupFactory(pack.Gifs)},
	{"prompt", pack.Prompts, promptFactory},
	{"wallpaper", pack.Wallpapers, wallpaperFactory},
	{"web", pack.Webs, webFactory},
	{"configuration", "", configurationFactory},
}

// Build registers every kind configured in deps.Config, plus the panic
// kind, against content.
func Build(content core.Content, deps Deps) (*core.Registry, error) {
	if deps.Config == nil {
		return nil, errors.New("activities: nil config")
	}
	deps.fill()

	reg := core.NewRegistry(content)
	for _, e := range kinds {
		ac, ok := deps.Config.Activities.Get(e.name)
		if !ok {
			return nil, fmt.Errorf("activities: no configuration for %s", e.name)
		}
		kind := core.ActivityKind{
			Name:        e.name,
			Factory:     e.factory(deps, ac),
			Exclusive:   ac.Exclusive,
			Gate:        ac.ActiveGate(),
			Content:     e.content,
			Concurrency: ac.Concurrency,
			Timeout:     ac.TimeoutRange(),
			Replication: ac.Replication(),
			Denial:      ac.DenialGate(),
		}
		if err := reg.Register(kind); err != nil {
			return nil, err
		}
	}

	if err := reg.Register(core.ActivityKind{
		Name:      core.PanicKind,
		Factory:   panicFactory(deps),
		Exclusive: true,
		Timeout:   deps.Config.Panic.TimeoutRange(),
	}); err != nil {
		return nil, err
	}
	return reg, nil
}

// Names lists every kind Build registers.
func Names() []string {
	names := make([]string, 0, len(kinds)+1)
	for _, e := range kinds {
		names = append(names, e.name)
	}
	return append(names, core.PanicKind)
}

// instanceEvents routes display events to the lifecycle of inst.
type instanceEvents struct {
	inst      *core.Instance
	onAnswer  func(answer string)
	onDismiss func()
}

func (e instanceEvents) DismissRequested() {
	if e.onDismiss != nil {
		e.onDismiss()
		return
	}
	e.inst.RequestDismiss()
}

func (e instanceEvents) Completed(answer string) {
	if e.onAnswer != nil {
		e.onAnswer(answer)
		return
	}
	e.inst.Complete()
}

// presented is embedded by kinds that show something on the display. A
// Teardown that races Start closes the handle as soon as it exists.
type presented struct {
	display Display

	mu     sync.Mutex
	handle Handle
	torn   bool
}

func (p *presented) present(pr Presentation, ev Events) error {
	h, err := p.display.Present(pr, ev)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.torn {
		return h.Close()
	}
	p.handle = h
	return nil
}

func (p *presented) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.torn = true
	if p.handle == nil {
		return nil
	}
	return p.handle.Close()
}
