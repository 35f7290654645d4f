//go:build windows

package util

import (
	"os"
)

// ShutdownSignals returns the signals to listen for graceful shutdown.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal attempts graceful process termination.
// On Windows SIGINT is not deliverable; FFmpeg is stopped by closing its
// stdin instead, so shutdown errors are not added here.
func GracefulSignal(p *os.Process) error {
	return nil
}
