//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals are the signals that stop long-running commands.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
