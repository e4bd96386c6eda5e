package types

// =============================================================================
// ACTIVITY LIFECYCLE TYPES AND CONSTANTS
// =============================================================================

// InstanceState is the lifecycle state of a running activity instance.
type InstanceState int32

const (
	StateRunning InstanceState = iota
	StateStopped
)

func (s InstanceState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why an instance stopped.
type StopReason string

const (
	StopTimeout   StopReason = "timeout"   // Deadline timer fired
	StopDismissed StopReason = "dismissed" // User closed it and was not denied
	StopCompleted StopReason = "completed" // Prompt solved, password accepted
	StopCancelled StopReason = "cancelled" // Escape / explicit cancel
	StopShutdown  StopReason = "shutdown"  // Process teardown
	StopFailed    StopReason = "failed"    // Behavior failed after construction
)

// LaunchSource identifies who asked for a launch.
type LaunchSource int

const (
	// SourceTick is a probability roll inside the scheduler tick.
	SourceTick LaunchSource = iota

	// SourceReplication is a mitosis request from a live instance.
	SourceReplication

	// SourceManual is an on-demand request (CLI, TUI, signal).
	SourceManual

	// SourceHotkey is the privileged panic trigger.
	SourceHotkey
)

// String returns the source name.
func (s LaunchSource) String() string {
	switch s {
	case SourceTick:
		return "tick"
	case SourceReplication:
		return "replication"
	case SourceManual:
		return "manual"
	case SourceHotkey:
		return "hotkey"
	default:
		return "unknown"
	}
}
