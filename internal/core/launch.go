package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"automata/internal/logging"
	"automata/internal/types"
)

// =============================================================================
// LAUNCH
// =============================================================================

// Launch starts one instance of name, or of a weighted random launchable
// kind when name is empty.
//
// Exclusive kinds take the exclusive lock before construction and hold it
// until the instance stops; Launch blocks until the lock is free. Other
// kinds take a permit first and then hold the lock only while constructing
// and starting. A full pool is back-pressure: Launch returns (nil, nil).
func (s *Scheduler) Launch(ctx context.Context, name string, source types.LaunchSource) (*Instance, error) {
	if s.isClosed() {
		return nil, ErrShutdown
	}

	reg := s.Registry()
	if name == "" {
		chosen, err := s.choose(reg)
		if err != nil {
			logging.SchedulerDebug("random launch: %v", err)
			return nil, err
		}
		name = chosen
	}

	kind, err := reg.Resolve(name)
	if err != nil {
		logging.SchedulerWarn("launch ignored: %v", err)
		return nil, err
	}

	if kind.Exclusive {
		return s.launchExclusive(ctx, kind, source)
	}
	return s.launchBounded(ctx, kind, source)
}

func (s *Scheduler) launchExclusive(ctx context.Context, kind ActivityKind, source types.LaunchSource) (*Instance, error) {
	if err := s.guard.AcquireExclusive(ctx); err != nil {
		return nil, err
	}
	if s.isClosed() {
		s.guard.ReleaseExclusive()
		return nil, ErrShutdown
	}

	inst, err := s.construct(kind, source, func() error {
		s.guard.ReleaseExclusive()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *Scheduler) launchBounded(ctx context.Context, kind ActivityKind, source types.LaunchSource) (*Instance, error) {
	permit, err := s.guard.TryAcquirePermit(kind.Name)
	if err != nil {
		s.skipped.Add(1)
		logging.SchedulerDebug("launch skipped: %v", err)
		s.recorder.Record(Event{At: time.Now(), Type: EventSkipped, Kind: kind.Name, Source: source, Detail: err.Error()})
		return nil, nil
	}

	if err := s.guard.AcquireExclusive(ctx); err != nil {
		permit.Release()
		return nil, err
	}
	defer s.guard.ReleaseExclusive()

	if s.isClosed() {
		permit.Release()
		return nil, ErrShutdown
	}

	return s.construct(kind, source, func() error {
		permit.Release()
		return nil
	})
}

// construct builds and starts an instance. release is the first entry of
// its teardown stack, so it runs after the behavior's own teardown.
func (s *Scheduler) construct(kind ActivityKind, source types.LaunchSource, release func() error) (*Instance, error) {
	inst := newInstance(s.base, kind, source, s)
	inst.Defer(release)
	inst.onStop = s.stopped
	inst.journal = s.recorder

	behavior, err := s.build(kind, inst)
	if err != nil {
		inst.abandon()
		return nil, s.constructionFailed(kind, source, err)
	}
	inst.Defer(behavior.Teardown)

	s.liveMu.Lock()
	s.live[inst.id] = inst
	s.liveMu.Unlock()

	// Shutdown cancels base before it snapshots the live set; anything added
	// after that snapshot stops itself here.
	if s.base.Err() != nil {
		inst.Stop(types.StopShutdown)
		return nil, ErrShutdown
	}

	if err := inst.start(behavior); err != nil {
		return nil, s.constructionFailed(kind, source, err)
	}

	s.launched.Add(1)
	s.recorder.Record(Event{At: time.Now(), Type: EventLaunched, Kind: kind.Name, InstanceID: inst.id, Source: source})
	logging.Activity("launched %s/%s (source=%s)", kind.Name, inst.short(), source)
	return inst, nil
}

func (s *Scheduler) build(kind ActivityKind, inst *Instance) (behavior Activity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	behavior, err = kind.Factory(s, inst)
	if err == nil && behavior == nil {
		err = errors.New("factory returned no behavior")
	}
	return behavior, err
}

func (s *Scheduler) constructionFailed(kind ActivityKind, source types.LaunchSource, cause error) error {
	s.failed.Add(1)
	err := fmt.Errorf("%w: %s: %v", ErrConstruction, kind.Name, cause)
	logging.ActivityWarn("%v", err)
	s.recorder.Record(Event{At: time.Now(), Type: EventFailed, Kind: kind.Name, Source: source, Detail: cause.Error()})
	return err
}

// stopped is every instance's onStop callback.
func (s *Scheduler) stopped(inst *Instance, reason types.StopReason) {
	s.liveMu.Lock()
	delete(s.live, inst.id)
	s.liveMu.Unlock()

	s.recorder.Record(Event{At: time.Now(), Type: EventStopped, Kind: inst.kind.Name, InstanceID: inst.id, Source: inst.source, Reason: reason})
	logging.Activity("stopped %s/%s (%s after %v)", inst.kind.Name, inst.short(), reason, time.Since(inst.startedAt).Round(time.Millisecond))
}

// choose picks a launchable kind with probability proportional to its
// weight.
func (s *Scheduler) choose(reg *Registry) (string, error) {
	names := reg.Launchable()
	weights := make([]float64, len(names))
	for n, name := range names {
		if kind, err := reg.Resolve(name); err == nil {
			weights[n] = kind.Weight()
		}
	}
	idx := s.rnd.Weighted(weights)
	if idx < 0 {
		return "", ErrNoLaunchable
	}
	return names[idx], nil
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

// Dispatch launches name in the background after a random share of the
// launch jitter. Errors are logged, never returned.
func (s *Scheduler) Dispatch(name string, source types.LaunchSource) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	jitter := s.jitter
	s.wg.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.SchedulerError("dispatch of %q panicked: %v", name, r)
			}
		}()

		if jitter > 0 {
			delay := time.Duration(s.rnd.Float64() * float64(jitter))
			t := time.NewTimer(delay)
			select {
			case <-s.base.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}

		if _, err := s.Launch(s.base, name, source); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrShutdown) {
				return
			}
			logging.SchedulerDebug("dispatch %q (%s): %v", name, source, err)
		}
	}()
}
