// Package system wires every automata component together. It is the only
// place that knows how config, pack, registry, guard, strategy, scheduler
// and journal fit; the CLI, the monitor and tests all boot through it.
package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"automata/internal/activities"
	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/hibernate"
	"automata/internal/logging"
	"automata/internal/pack"
	"automata/internal/platform"
	"automata/internal/store"
	"automata/internal/types"

	"go.uber.org/multierr"
)

// Version is the application version packs are checked against.
const Version = "1.4.0"

// Options configures Boot.
type Options struct {
	// ConfigPath is the YAML file; empty means config.DefaultPath().
	ConfigPath string

	// Config skips loading ConfigPath. Reload still reads ConfigPath.
	Config *config.Config

	Display   activities.Display
	Wallpaper platform.Wallpaper
	Browser   platform.Browser

	// ManageLogging lets Boot and Reload reinitialize the global logger from
	// the config's logging section. Verbose forces debug level on top.
	ManageLogging bool
	Verbose       bool
}

// App is a booted automata process.
type App struct {
	configPath string
	opts       Options
	rnd        *types.Rand

	mu   sync.RWMutex
	cfg  *config.Config
	pack *pack.Pack

	scheduler *core.Scheduler
	journal   *store.Journal
	recorder  *journalRecorder

	reloadMu sync.Mutex

	shutdownOnce sync.Once
	done         chan struct{}
	closeOnce    sync.Once
}

// Boot builds config, logging, pack, registry, guard, strategy, journal and
// scheduler, in that order. Nothing runs until the caller starts the
// scheduler.
func Boot(opts Options) (*App, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "Boot")
	defer timer.Stop()

	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", opts.ConfigPath, err)
	}

	if opts.ManageLogging {
		if err := logging.Initialize(opts.loggingOptions(cfg)); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	app := &App{
		configPath: opts.ConfigPath,
		opts:       opts,
		rnd:        types.NewRand(cfg.Scheduler.Seed),
		cfg:        cfg,
		done:       make(chan struct{}),
	}

	pk, reg, strategy, err := app.build(cfg)
	if err != nil {
		return nil, err
	}
	app.pack = pk

	var recorder core.Recorder
	if cfg.Journal.Enabled {
		// The journal is optional: a locked or unwritable database only
		// costs history.
		if j, err := store.Open(cfg.Journal.Path); err != nil {
			logging.BootWarn("journal disabled: %v", err)
		} else {
			app.journal = j
			app.recorder = newJournalRecorder(j)
			recorder = app.recorder
		}
	}

	app.scheduler = core.NewScheduler(core.Options{
		Registry:      reg,
		Guard:         core.NewGuard(reg.PoolSizes()),
		Strategy:      strategy,
		Rand:          app.rnd,
		Recorder:      recorder,
		LaunchJitter:  cfg.GetLaunchJitter(),
		ShutdownGrace: cfg.GetShutdownGrace(),
	})
	app.scheduler.SetHooks(core.Hooks{
		Reload:   app.Reload,
		Shutdown: app.RequestShutdown,
	})

	logging.Boot("booted: pack=%s (%s) kinds=%v launchable=%v strategy=%s",
		pk.Manifest.Name, pk.Summary(), reg.Names(), reg.Launchable(), strategy.Name())
	return app, nil
}

// build loads the pack and derives the registry and strategy from cfg.
func (a *App) build(cfg *config.Config) (*pack.Pack, *core.Registry, hibernate.Strategy, error) {
	pk, err := pack.LoadNamed(cfg.PacksDir, cfg.Pack, Version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load pack: %w", err)
	}

	reg, err := activities.Build(pk, activities.Deps{
		Config:     cfg,
		ConfigPath: a.configPath,
		Display:    a.opts.Display,
		Wallpaper:  a.opts.Wallpaper,
		Browser:    a.opts.Browser,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build registry: %w", err)
	}

	strategy, err := hibernate.New(cfg.Hibernate, a.rnd)
	if err != nil {
		return nil, nil, nil, err
	}
	return pk, reg, strategy, nil
}

// LoggingOptions converts the config's logging section.
func LoggingOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		DebugMode:  cfg.Logging.DebugMode || cfg.Debug,
		Categories: cfg.Logging.Categories,
	}
}

func (o Options) loggingOptions(cfg *config.Config) logging.Options {
	lo := LoggingOptions(cfg)
	lo.DebugMode = lo.DebugMode || o.Verbose
	return lo
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

func (a *App) Scheduler() *core.Scheduler { return a.scheduler }
func (a *App) Journal() *store.Journal    { return a.journal }
func (a *App) ConfigPath() string         { return a.configPath }

// Config returns the active configuration. Callers must not modify it.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Pack returns the active content pack.
func (a *App) Pack() *pack.Pack {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pack
}

// RuntimeLimit samples the auto-stop runtime. Zero means no limit.
func (a *App) RuntimeLimit() time.Duration {
	r, err := a.Config().Runtime.Range()
	if err != nil || r.IsZero() {
		return 0
	}
	return r.Seconds(a.rnd)
}

// -----------------------------------------------------------------------------
// Reload
// -----------------------------------------------------------------------------

// ReloadConfig re-reads the config file and swaps in a new pack, registry
// and strategy. An invalid file leaves the running configuration untouched.
func (a *App) ReloadConfig() error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	timer := logging.StartTimer(logging.CategoryConfig, "ReloadConfig")
	defer timer.Stop()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.configPath, err)
	}

	if a.opts.ManageLogging {
		if err := logging.Initialize(a.opts.loggingOptions(cfg)); err != nil {
			logging.ConfigWarn("keeping previous logger: %v", err)
		}
	}

	pk, reg, strategy, err := a.build(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.cfg = cfg
	a.pack = pk
	a.mu.Unlock()

	a.scheduler.Reload(reg, strategy, cfg.GetLaunchJitter())
	logging.Config("configuration reloaded from %s", a.configPath)
	return nil
}

// Reload is ReloadConfig for callers that cannot handle an error: the
// configuration activity, SIGHUP and the monitor.
func (a *App) Reload() {
	if err := a.ReloadConfig(); err != nil {
		logging.ConfigError("reload failed: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Controls
// -----------------------------------------------------------------------------

// Launch dispatches kind, or a weighted random kind when kind is empty.
func (a *App) Launch(kind string) {
	a.scheduler.Dispatch(kind, types.SourceManual)
}

// Panic dispatches the panic activity.
func (a *App) Panic() {
	a.scheduler.Dispatch(core.PanicKind, types.SourceHotkey)
}

// Quit asks the process to shut down.
func (a *App) Quit() {
	a.RequestShutdown()
}

// RequestShutdown closes Done once. The owner of the process reacts by
// calling Shutdown.
func (a *App) RequestShutdown() {
	a.shutdownOnce.Do(func() {
		logging.Boot("shutdown requested")
		close(a.done)
	})
}

// Done is closed when something inside the process requested shutdown.
func (a *App) Done() <-chan struct{} { return a.done }

// Shutdown stops the scheduler and every live instance, then closes the
// journal.
func (a *App) Shutdown(ctx context.Context) error {
	a.RequestShutdown()
	err := a.scheduler.Shutdown(ctx)
	return multierr.Append(err, a.Close())
}

// Close releases the journal. Safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.recorder != nil {
			a.recorder.Close()
		}
		if a.journal != nil {
			err = a.journal.Close()
		}
		logging.Sync()
	})
	return err
}
