//go:build !windows

package pipe

import (
	"context"
	"net"

	"pipetap/internal/status"
)

// Named pipes are Windows-only. These stubs keep the portable wait, read and
// fan-out logic compiling and testable elsewhere; the CLI refuses to run.

func (SystemProber) Probe(context.Context, Address) (ProbeResult, error) {
	return NotReady, status.Errorf(status.KindInternal, "probe pipe", "named pipes are only supported on windows")
}

func (SystemDialer) Dial(context.Context, Address) (net.Conn, error) {
	return nil, status.Errorf(status.KindInternal, "connect pipe", "named pipes are only supported on windows")
}
