package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"automata/internal/hibernate"
	"automata/internal/logging"
	"automata/internal/types"
)

// =============================================================================
// SCHEDULER
// =============================================================================
//
// The scheduler alternates between two states:
//
//	Ticking     roll every launchable kind's gate under the tick-lock and
//	            dispatch the kinds that fire
//	Hibernating wait for the strategy's delay, tick-lock released
//
// Launches run as independent goroutines; a slow activity never stalls the
// loop.

// Options configures a Scheduler.
type Options struct {
	Registry *Registry
	Guard    *Guard
	Strategy hibernate.Strategy
	Rand     *types.Rand
	Recorder Recorder

	// LaunchJitter delays each dispatched launch by a random fraction of it.
	LaunchJitter time.Duration

	// ShutdownGrace bounds how long Shutdown waits for instances to stop.
	ShutdownGrace time.Duration
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Ticks    int64
	Launched int64
	Skipped  int64
	Failed   int64
	Live     int
	Strategy string
	Guard    GuardStats
}

// Scheduler drives the tick loop and owns every live instance.
type Scheduler struct {
	mu       sync.RWMutex
	registry *Registry
	strategy hibernate.Strategy
	jitter   time.Duration
	grace    time.Duration
	hooks    Hooks
	closed   bool
	onExit   []*exitHook
	exitSeq  int

	guard    *Guard
	rnd      *types.Rand
	recorder Recorder

	liveMu sync.Mutex
	live   map[string]*Instance

	// base is cancelled on shutdown; every dispatch and instance derives
	// from it.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shuttingDown atomic.Bool

	ticks    atomic.Int64
	launched atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

type exitHook struct {
	id   int
	name string
	fn   func() error
}

// NewScheduler creates a scheduler. Missing options get working defaults.
func NewScheduler(opts Options) *Scheduler {
	if opts.Rand == nil {
		opts.Rand = types.NewRand(0)
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(nil)
	}
	if opts.Guard == nil {
		opts.Guard = NewGuard(opts.Registry.PoolSizes())
	}
	if opts.Strategy == nil {
		opts.Strategy = hibernate.NewUniform(types.MustRange(30, 60), types.Range{}, opts.Rand)
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}

	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry: opts.Registry,
		strategy: opts.Strategy,
		jitter:   opts.LaunchJitter,
		grace:    opts.ShutdownGrace,
		guard:    opts.Guard,
		rnd:      opts.Rand,
		recorder: opts.Recorder,
		live:     make(map[string]*Instance),
		base:     base,
		cancel:   cancel,
	}
}

// SetHooks installs the process-level reload and shutdown actions.
func (s *Scheduler) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// Registry returns the current registry.
func (s *Scheduler) Registry() *Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Strategy returns the current hibernation strategy.
func (s *Scheduler) Strategy() hibernate.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

// Guard returns the concurrency guard.
func (s *Scheduler) Guard() *Guard { return s.guard }

// -----------------------------------------------------------------------------
// Tick loop
// -----------------------------------------------------------------------------

// Run ticks and hibernates until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	logging.Scheduler("scheduler started (strategy=%s)", s.Strategy().Name())
	defer logging.Scheduler("scheduler stopped after %d ticks", s.ticks.Load())

	for {
		if _, err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.SchedulerWarn("tick failed: %v", err)
		}
		if err := s.Strategy().WaitForNextTick(ctx); err != nil {
			return nil
		}
	}
}

// Tick rolls every launchable kind's gate in registry order while holding
// the tick-lock, dispatches the kinds that fire and returns their names.
// It blocks while an exclusive instance is alive.
func (s *Scheduler) Tick(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, ErrShutdown
	}
	if err := s.guard.AcquireExclusive(ctx); err != nil {
		return nil, err
	}

	reg := s.Registry()
	var fired []string
	for _, name := range reg.Launchable() {
		kind, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		if kind.Gate.Fires(s.rnd) {
			fired = append(fired, name)
		}
	}
	// Released before dispatching so queued launches can proceed.
	s.guard.ReleaseExclusive()

	for _, name := range fired {
		s.Dispatch(name, types.SourceTick)
	}

	n := s.ticks.Add(1)
	if len(fired) > 0 {
		logging.SchedulerDebug("tick %d fired %v", n, fired)
	}
	return fired, nil
}

// -----------------------------------------------------------------------------
// Reload
// -----------------------------------------------------------------------------

// Reload swaps in a rebuilt registry and strategy and resizes the permit
// pools. Live instances keep running under their old descriptors.
func (s *Scheduler) Reload(reg *Registry, strategy hibernate.Strategy, jitter time.Duration) {
	s.guard.Resize(reg.PoolSizes())

	s.mu.Lock()
	s.registry = reg
	if strategy != nil {
		s.strategy = strategy
	}
	s.jitter = jitter
	s.mu.Unlock()

	logging.Scheduler("reloaded: %d kinds, launchable=%v, strategy=%s",
		len(reg.Names()), reg.Launchable(), s.Strategy().Name())
}

// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

// Live returns a snapshot of live instances.
func (s *Scheduler) Live() []Info {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	out := make([]Info, 0, len(s.live))
	for _, inst := range s.live {
		out = append(out, inst.Info())
	}
	return out
}

// Instance returns a live instance by id.
func (s *Scheduler) Instance(id string) (*Instance, bool) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	inst, ok := s.live[id]
	return inst, ok
}

// LiveCount returns the number of live instances of kind, or of all kinds
// when kind is empty.
func (s *Scheduler) LiveCount(kind string) int {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if kind == "" {
		return len(s.live)
	}
	n := 0
	for _, inst := range s.live {
		if inst.kind.Name == kind {
			n++
		}
	}
	return n
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Launched: s.launched.Load(),
		Skipped:  s.skipped.Load(),
		Failed:   s.failed.Load(),
		Live:     s.LiveCount(""),
		Strategy: s.Strategy().Name(),
		Guard:    s.guard.Stats(),
	}
}

// -----------------------------------------------------------------------------
// Env
// -----------------------------------------------------------------------------

func (s *Scheduler) Rand() *types.Rand { return s.rnd }

func (s *Scheduler) Content() Content { return s.Registry().Content() }

// OnExit registers fn to run at shutdown.
func (s *Scheduler) OnExit(name string, fn func() error) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exitSeq++
	h := &exitHook{id: s.exitSeq, name: name, fn: fn}
	s.onExit = append(s.onExit, h)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for n, e := range s.onExit {
			if e.id == h.id {
				s.onExit = append(s.onExit[:n], s.onExit[n+1:]...)
				return
			}
		}
	}
}

// RequestReload runs the reload hook asynchronously.
func (s *Scheduler) RequestReload() {
	s.mu.RLock()
	fn := s.hooks.Reload
	s.mu.RUnlock()
	if fn == nil {
		logging.SchedulerWarn("reload requested but no reload hook is installed")
		return
	}
	go fn()
}

// RequestShutdown runs the shutdown hook asynchronously.
func (s *Scheduler) RequestShutdown() {
	s.mu.RLock()
	fn := s.hooks.Shutdown
	s.mu.RUnlock()
	if fn == nil {
		logging.SchedulerWarn("shutdown requested but no shutdown hook is installed")
		return
	}
	go fn()
}

func (s *Scheduler) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
