//go:build windows

package pipe

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"unsafe"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"pipetap/internal/status"
)

var (
	modkernel32        = windows.NewLazySystemDLL("kernel32.dll")
	procWaitNamedPipeW = modkernel32.NewProc("WaitNamedPipeW")
)

// probeWaitMillis is how long WaitNamedPipe may block per probe. Kept short
// so the wait loop's backoff, not the OS, paces retries.
const probeWaitMillis = 10

func waitNamedPipe(name *uint16, timeout uint32) error {
	r1, _, e1 := procWaitNamedPipeW.Call(uintptr(unsafe.Pointer(name)), uintptr(timeout))
	if r1 == 0 {
		return e1
	}
	return nil
}

func (SystemProber) Probe(_ context.Context, addr Address) (ProbeResult, error) {
	const op = "probe pipe"
	name, err := windows.UTF16PtrFromString(addr.String())
	if err != nil {
		return NotReady, status.Wrap(status.KindInvalidPath, op, err)
	}
	err = waitNamedPipe(name, probeWaitMillis)
	if err == nil {
		return Ready, nil
	}
	errno, ok := underlyingErrno(err)
	if !ok {
		return NotReady, status.Wrap(status.KindInternal, op, err)
	}
	switch errno {
	case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
		return NotReady, nil
	case windows.ERROR_SEM_TIMEOUT, windows.ERROR_PIPE_BUSY:
		// A listening pipe exists but every instance is claimed.
		return Busy, nil
	case windows.ERROR_ACCESS_DENIED:
		return NotReady, status.Wrap(status.KindPermission, op, err)
	case windows.ERROR_INVALID_NAME, windows.ERROR_BAD_PATHNAME:
		return NotReady, status.Wrap(status.KindInvalidPath, op, err)
	}
	return NotReady, status.Wrap(status.KindInternal, op, err)
}

func (d SystemDialer) Dial(ctx context.Context, addr Address) (net.Conn, error) {
	const op = "connect pipe"
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := winio.DialPipeAccess(dctx, addr.String(), uint32(windows.GENERIC_READ))
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, status.Wrap(status.KindTimedOut, op, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		// Ran out the connect budget while every instance stayed claimed.
		return nil, status.Wrap(status.KindBusy, op, err)
	}
	if errno, ok := underlyingErrno(err); ok {
		switch errno {
		case windows.ERROR_FILE_NOT_FOUND, windows.ERROR_PATH_NOT_FOUND:
			// The pipe vanished between readiness and connect.
			return nil, status.Wrap(status.KindNotReady, op, err)
		case windows.ERROR_PIPE_BUSY, windows.ERROR_SEM_TIMEOUT:
			return nil, status.Wrap(status.KindBusy, op, err)
		case windows.ERROR_ACCESS_DENIED:
			return nil, status.Wrap(status.KindPermission, op, err)
		}
	}
	return nil, status.Wrap(status.KindInternal, op, err)
}

// underlyingErrno digs the Win32 error code out of wrapped os errors.
func underlyingErrno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
