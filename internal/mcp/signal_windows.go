//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals relays shutdown signals to ch. Windows has no SIGTERM, so
// only Ctrl+C is caught.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
