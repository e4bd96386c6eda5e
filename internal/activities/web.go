package activities

import (
	"context"
	"fmt"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/pack"
	"automata/internal/platform"
)

// web opens a pack URL, in a private window when the private gate fires.
type web struct {
	browser platform.Browser
	url     string
	private bool
	session platform.Session
}

func webFactory(deps Deps, ac config.ActivityConfig) core.Factory {
	return func(env core.Env, inst *core.Instance) (core.Activity, error) {
		content := env.Content()
		if content == nil {
			return nil, ErrNoContent
		}
		url, ok := content.Choose(pack.Webs, env.Rand())
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, pack.Webs)
		}
		return &web{
			browser: deps.Browser,
			url:     url,
			private: privateGate(ac).Fires(env.Rand()),
		}, nil
	}
}

func (w *web) Start(context.Context) error {
	s, err := w.browser.Open(w.url, w.private)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.url, err)
	}
	w.session = s
	return nil
}

func (w *web) Teardown() error {
	if w.session == nil {
		return nil
	}
	return w.session.Close()
}
