//go:build !windows

package main

import (
	"os"
	"syscall"
)

func runSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2}
}

// signalAction maps a signal to what run does with it.
func signalAction(sig os.Signal) action {
	switch sig {
	case syscall.SIGHUP:
		return actionReload
	case syscall.SIGUSR1:
		return actionLaunch
	case syscall.SIGUSR2:
		return actionPanic
	default:
		return actionShutdown
	}
}
