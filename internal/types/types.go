// Package types provides shared value types used across automata packages.
// This package exists to break import cycles between config, core,
// hibernate and activities. Types in this package should be foundational
// data structures with no complex dependencies.
package types

import "errors"

// ErrConfiguration marks an invalid bound or probability. Values failing
// validation at load time are fatal: the process must not start with them.
var ErrConfiguration = errors.New("invalid configuration")
