package activities

import (
	"context"
	"fmt"
	"sync"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/logging"
	"automata/internal/pack"
	"automata/internal/platform"
)

// wallpaper swaps the desktop wallpaper and puts the previous one back on
// stop or, if the process exits first, from an on-exit callback.
type wallpaper struct {
	env    core.Env
	wp     platform.Wallpaper
	target string

	previous   string
	unregister func()
	restore    sync.Once
	restoreErr error
}

func wallpaperFactory(deps Deps, _ config.ActivityConfig) core.Factory {
	return func(env core.Env, inst *core.Instance) (core.Activity, error) {
		content := env.Content()
		if content == nil {
			return nil, ErrNoContent
		}
		target, ok := content.Choose(pack.Wallpapers, env.Rand())
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, pack.Wallpapers)
		}
		return &wallpaper{env: env, wp: deps.Wallpaper, target: target}, nil
	}
}

func (w *wallpaper) Start(context.Context) error {
	prev, err := w.wp.Get()
	if err != nil {
		return fmt.Errorf("read current wallpaper: %w", err)
	}
	w.previous = prev

	w.unregister = w.env.OnExit("wallpaper restore", w.restoreOnce)
	if err := w.wp.Set(w.target); err != nil {
		return fmt.Errorf("set wallpaper: %w", err)
	}
	logging.Activity("wallpaper set to %s (was %q)", w.target, prev)
	return nil
}

func (w *wallpaper) Teardown() error {
	if w.unregister != nil {
		w.unregister()
	}
	return w.restoreOnce()
}

func (w *wallpaper) restoreOnce() error {
	w.restore.Do(func() {
		if w.previous == "" {
			return
		}
		w.restoreErr = w.wp.Set(w.previous)
		if w.restoreErr == nil {
			logging.Activity("wallpaper restored to %s", w.previous)
		}
	})
	return w.restoreErr
}
