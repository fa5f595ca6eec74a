//go:build !windows

package mcp

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals relays shutdown signals to ch.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
