package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"automata/internal/logging"
	"automata/internal/types"

	"github.com/google/uuid"
)

// =============================================================================
// ACTIVITY INSTANCE
// =============================================================================

// DismissOutcome reports what a dismiss request did.
type DismissOutcome int

const (
	// DismissIgnored: the instance had already stopped.
	DismissIgnored DismissOutcome = iota

	// DismissDenied: the denial gate fired; the instance keeps running.
	DismissDenied

	// DismissAccepted: the instance stopped, possibly after replicating.
	DismissAccepted
)

func (o DismissOutcome) String() string {
	switch o {
	case DismissDenied:
		return "denied"
	case DismissAccepted:
		return "accepted"
	default:
		return "ignored"
	}
}

// Instance is a live occurrence of an activity kind. It is created by a
// launch, mutated only by itself, and torn down exactly once on Stop.
type Instance struct {
	id        string
	kind      ActivityKind
	source    types.LaunchSource
	env       Env
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32

	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
	teardown []func() error
	reason   types.StopReason

	onStop  func(*Instance, types.StopReason)
	journal Recorder
	done    chan struct{}
}

func newInstance(parent context.Context, kind ActivityKind, source types.LaunchSource, env Env) *Instance {
	ctx, cancel := context.WithCancel(parent)
	return &Instance{
		id:        uuid.NewString(),
		kind:      kind,
		source:    source,
		env:       env,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (i *Instance) ID() string                 { return i.id }
func (i *Instance) Kind() ActivityKind         { return i.kind }
func (i *Instance) Source() types.LaunchSource { return i.source }
func (i *Instance) StartedAt() time.Time       { return i.startedAt }

// Context is cancelled when the instance stops.
func (i *Instance) Context() context.Context { return i.ctx }

// Done is closed once teardown has finished.
func (i *Instance) Done() <-chan struct{} { return i.done }

// State returns the lifecycle state.
func (i *Instance) State() types.InstanceState {
	return types.InstanceState(i.state.Load())
}

// Running reports whether the instance has not stopped yet.
func (i *Instance) Running() bool {
	return i.State() == types.StateRunning
}

// Deadline returns the forced stop time, or zero if no timeout is armed.
func (i *Instance) Deadline() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deadline
}

// Reason returns why the instance stopped. Empty while running.
func (i *Instance) Reason() types.StopReason {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reason
}

// Defer pushes fn onto the teardown stack. Teardown runs last-in first-out.
// On a stopped instance fn runs immediately.
func (i *Instance) Defer(fn func() error) {
	i.mu.Lock()
	if i.Running() {
		i.teardown = append(i.teardown, fn)
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()
	i.runTeardown(fn)
}

// start runs the behavior, then arms the timeout when the sampled duration
// is positive. The timer never fires while Start is still running. Deadline
// is provisional during Start and restamped once the timer is armed.
func (i *Instance) start(behavior Activity) error {
	var d time.Duration
	if !i.kind.Timeout.IsZero() {
		d = i.kind.Timeout.Seconds(i.env.Rand())
	}
	if d > 0 {
		i.mu.Lock()
		i.deadline = time.Now().Add(d)
		i.mu.Unlock()
	}

	if err := i.safeStart(behavior); err != nil {
		i.Stop(types.StopFailed)
		return err
	}

	if d > 0 {
		i.mu.Lock()
		if i.Running() {
			i.deadline = time.Now().Add(d)
			i.timer = time.AfterFunc(d, func() {
				i.Stop(types.StopTimeout)
			})
		}
		i.mu.Unlock()
	}
	return nil
}

func (i *Instance) safeStart(behavior Activity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start panicked: %v", r)
		}
	}()
	return behavior.Start(i.ctx)
}

// Stop transitions running to stopped. Only the first caller tears down;
// later calls return false and do nothing.
func (i *Instance) Stop(reason types.StopReason) bool {
	if !i.state.CompareAndSwap(int32(types.StateRunning), int32(types.StateStopped)) {
		return false
	}

	i.mu.Lock()
	i.reason = reason
	if i.timer != nil {
		i.timer.Stop()
	}
	stack := i.teardown
	i.teardown = nil
	i.mu.Unlock()

	i.cancel()
	for n := len(stack) - 1; n >= 0; n-- {
		i.runTeardown(stack[n])
	}

	if i.onStop != nil {
		i.onStop(i, reason)
	}
	close(i.done)
	return true
}

// abandon tears down an instance that never started without reporting a stop.
func (i *Instance) abandon() {
	onStop := i.onStop
	i.onStop = nil
	i.Stop(types.StopFailed)
	i.onStop = onStop
}

func (i *Instance) runTeardown(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logging.ActivityError("%s/%s: teardown panicked: %v", i.kind.Name, i.short(), r)
		}
	}()
	if err := fn(); err != nil {
		logging.ActivityWarn("%s/%s: teardown: %v", i.kind.Name, i.short(), err)
	}
}

// RequestDismiss handles a user's attempt to close the instance. The denial
// gate is rolled first and, when it fires, the request is ignored outright.
// Otherwise the replication policy may enqueue copies, then the instance
// stops.
func (i *Instance) RequestDismiss() DismissOutcome {
	if !i.Running() {
		return DismissIgnored
	}
	if i.kind.Denial.Fires(i.env.Rand()) {
		logging.ActivityDebug("%s/%s: dismiss denied", i.kind.Name, i.short())
		i.record(EventDenied, "")
		return DismissDenied
	}
	i.Replicate()
	if !i.Stop(types.StopDismissed) {
		return DismissIgnored
	}
	return DismissAccepted
}

// Replicate rolls the replication policy and enqueues that many launches of
// the same kind. It never blocks and returns the count enqueued.
func (i *Instance) Replicate() int {
	n := i.kind.Replication.Decide(i.env.Rand())
	if n > 0 {
		logging.Activity("%s/%s: mitosis into %d", i.kind.Name, i.short(), n)
		i.record(EventReplicated, fmt.Sprintf("copies=%d", n))
	}
	for k := 0; k < n; k++ {
		i.env.Dispatch(i.kind.Name, types.SourceReplication)
	}
	return n
}

// Complete stops the instance because its goal was met.
func (i *Instance) Complete() bool {
	return i.Stop(types.StopCompleted)
}

func (i *Instance) record(typ EventType, detail string) {
	if i.journal == nil {
		return
	}
	i.journal.Record(Event{
		At:         time.Now(),
		Type:       typ,
		Kind:       i.kind.Name,
		InstanceID: i.id,
		Source:     i.source,
		Detail:     detail,
	})
}

func (i *Instance) short() string {
	if len(i.id) > 8 {
		return i.id[:8]
	}
	return i.id
}

// Info is a read-only snapshot of an instance.
type Info struct {
	ID        string
	Kind      string
	Source    types.LaunchSource
	StartedAt time.Time
	Deadline  time.Time
}

// Info returns a snapshot of the instance.
func (i *Instance) Info() Info {
	return Info{
		ID:        i.id,
		Kind:      i.kind.Name,
		Source:    i.source,
		StartedAt: i.startedAt,
		Deadline:  i.Deadline(),
	}
}
