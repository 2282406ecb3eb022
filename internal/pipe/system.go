package pipe

import "time"

// SystemProber probes the OS pipe namespace. The Windows implementation uses
// WaitNamedPipe, which tests for a listening instance without opening one.
type SystemProber struct{}

// SystemDialer opens pipe connections, bounding each attempt by Timeout so a
// pipe that turns busy between probe and connect cannot stall the run.
type SystemDialer struct {
	Timeout time.Duration
}

// defaultDialTimeout applies when SystemDialer.Timeout is unset.
const defaultDialTimeout = 5 * time.Second
