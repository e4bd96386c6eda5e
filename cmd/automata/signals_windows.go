//go:build windows

package main

import (
	"os"
	"syscall"
)

// Windows only delivers interrupt and terminate; reload, launch and panic
// come from the monitor keys or the config watcher.
func runSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

func signalAction(os.Signal) action {
	return actionShutdown
}
