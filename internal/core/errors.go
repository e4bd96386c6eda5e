package core

import "errors"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrUnknownKind is returned when a launch names an unregistered kind.
	ErrUnknownKind = errors.New("unknown activity kind")

	// ErrDuplicateKind is returned when a kind name is registered twice.
	ErrDuplicateKind = errors.New("duplicate activity kind")

	// ErrPermitExhausted signals back-pressure: the kind's pool is full.
	// Launch treats it as a silent skip.
	ErrPermitExhausted = errors.New("activity permit pool exhausted")

	// ErrConstruction wraps a failure to build or start an instance.
	ErrConstruction = errors.New("activity construction failed")

	// ErrLockTimeout is returned by bounded exclusive acquisitions.
	ErrLockTimeout = errors.New("timed out waiting for exclusive lock")

	// ErrShutdown is returned once the scheduler has begun shutting down.
	ErrShutdown = errors.New("scheduler is shut down")

	// ErrNoLaunchable is returned by a random launch when no kind has weight.
	ErrNoLaunchable = errors.New("no launchable activity")
)
