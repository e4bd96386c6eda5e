package core

import (
	"context"
	"time"

	"automata/internal/types"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// Content supplies the references activities draw from. An empty supply
// makes the kinds that need it unlaunchable.
type Content interface {
	List(category string) []string
	Choose(category string, rnd *types.Rand) (string, bool)
}

// Activity is the behavior behind a running instance.
type Activity interface {
	// Start begins the behavior. ctx is cancelled when the instance stops.
	Start(ctx context.Context) error

	// Teardown releases whatever Start acquired. Called exactly once.
	Teardown() error
}

// Factory constructs the behavior of a new instance. Failing here is a
// construction failure: no instance is created.
type Factory func(env Env, inst *Instance) (Activity, error)

// Env is the shared application context handed to factories. It is the only
// way an instance reaches outside itself.
type Env interface {
	Rand() *types.Rand
	Content() Content

	// Dispatch enqueues a fire-and-forget launch.
	Dispatch(name string, source types.LaunchSource)

	// OnExit registers a callback run at process shutdown. The returned
	// func unregisters it.
	OnExit(name string, fn func() error) (cancel func())

	RequestReload()
	RequestShutdown()
}

// Hooks are the process-level actions an instance may trigger.
type Hooks struct {
	Reload   func()
	Shutdown func()
}

// -----------------------------------------------------------------------------
// Launch journal
// -----------------------------------------------------------------------------

// EventType classifies a journal event.
type EventType string

const (
	EventLaunched   EventType = "launched"
	EventSkipped    EventType = "skipped"
	EventFailed     EventType = "failed"
	EventStopped    EventType = "stopped"
	EventDenied     EventType = "denied"
	EventReplicated EventType = "replicated"
)

// Event is one launch journal entry.
type Event struct {
	At         time.Time
	Type       EventType
	Kind       string
	InstanceID string
	Source     types.LaunchSource
	Reason     types.StopReason
	Detail     string
}

// Recorder receives launch events. Implementations must not block for long;
// they are called from launch and stop paths.
type Recorder interface {
	Record(ev Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}
