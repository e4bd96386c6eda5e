package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"automata/internal/logging"
	"automata/internal/types"

	"go.uber.org/multierr"
)

// Shutdown tears the process core down:
//  1. every on-exit callback runs, whatever the others do
//  2. pending dispatches and instance timers are cancelled
//  3. every live instance is stopped with reason shutdown
//
// Steps 2 and 3 are bounded by the shutdown grace period and by ctx. The
// combined callback errors are returned, plus a timeout error when the
// grace period ran out. Later calls return nil.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	hooks := append([]*exitHook(nil), s.onExit...)
	s.onExit = nil
	grace := s.grace
	s.mu.Unlock()

	logging.Scheduler("shutting down (%d exit callbacks, %d live instances)", len(hooks), s.LiveCount(""))

	var errs error
	for _, h := range hooks {
		errs = multierr.Append(errs, runExitHook(h))
	}

	s.cancel()

	s.liveMu.Lock()
	live := make([]*Instance, 0, len(s.live))
	for _, inst := range s.live {
		live = append(live, inst)
	}
	s.liveMu.Unlock()

	var stops sync.WaitGroup
	for _, inst := range live {
		stops.Add(1)
		go func(inst *Instance) {
			defer stops.Done()
			inst.Stop(types.StopShutdown)
		}(inst)
	}

	done := make(chan struct{})
	go func() {
		stops.Wait()
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		logging.Scheduler("shutdown complete")
	case <-timer.C:
		errs = multierr.Append(errs, fmt.Errorf("shutdown grace period %v exceeded", grace))
		logging.SchedulerError("shutdown grace period %v exceeded; abandoning %d instances", grace, s.LiveCount(""))
	case <-ctx.Done():
		errs = multierr.Append(errs, ctx.Err())
	}
	return errs
}

func runExitHook(h *exitHook) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("on-exit %s panicked: %v", h.name, r)
		}
	}()
	if err := h.fn(); err != nil {
		logging.SchedulerWarn("on-exit %s: %v", h.name, err)
		return fmt.Errorf("on-exit %s: %w", h.name, err)
	}
	return nil
}

// Closed reports whether Shutdown has begun.
func (s *Scheduler) Closed() bool {
	return s.isClosed()
}
