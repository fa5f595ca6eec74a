//go:build windows

package main

import "os"

// shutdownSignals are the signals that stop long-running commands. Windows
// only delivers Ctrl+C.
var shutdownSignals = []os.Signal{os.Interrupt}
