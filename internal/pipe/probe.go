package pipe

import (
	"context"
	"net"
)

// ProbeResult is the outcome of a non-consuming availability check.
type ProbeResult int

const (
	// Ready means the endpoint exists and an instance will accept a connect.
	Ready ProbeResult = iota
	// NotReady means no such pipe exists yet.
	NotReady
	// Busy means the pipe exists but every instance is claimed.
	Busy
)

func (r ProbeResult) String() string {
	switch r {
	case Ready:
		return "ready"
	case NotReady:
		return "not ready"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Prober checks pipe availability without consuming buffered data.
// Non-retriable failures (permission, unexpected OS errors) come back as a
// classified error instead of a result.
type Prober interface {
	Probe(ctx context.Context, addr Address) (ProbeResult, error)
}

// Dialer opens a read-only connection to the pipe.
type Dialer interface {
	Dial(ctx context.Context, addr Address) (net.Conn, error)
}
