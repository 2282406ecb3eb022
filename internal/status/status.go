// Package status defines the failure taxonomy shared by the pipe, sink and
// run packages, and the mapping from failures to process exit codes.
package status

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidPath
	KindNotReady
	KindBusy
	KindPermission
	KindTimedOut
	KindConnectionLost
	KindRedirectWrite
	KindStdoutWrite
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPath:
		return "invalid path"
	case KindNotReady:
		return "pipe not ready"
	case KindBusy:
		return "pipe busy"
	case KindPermission:
		return "permission denied"
	case KindTimedOut:
		return "timed out"
	case KindConnectionLost:
		return "connection lost"
	case KindRedirectWrite:
		return "redirect write failure"
	case KindStdoutWrite:
		return "stdout write failure"
	default:
		return "internal error"
	}
}

// Error is a classified failure. Op names the operation that failed, Err may
// be nil when the kind alone carries the meaning.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf constructs a classified error with a formatted cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an underlying error. A nil err yields a kind-only error so
// callers never lose the classification.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from an error chain, KindInternal when unclassified.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Exit codes, one per failure kind. Zero is reserved for success.
const (
	ExitOK             = 0
	ExitInternal       = 1
	ExitInvalidPath    = 2
	ExitNotReady       = 3
	ExitBusy           = 4
	ExitPermission     = 5
	ExitTimedOut       = 6
	ExitConnectionLost = 7
	ExitRedirectWrite  = 8
	ExitStdoutWrite    = 9
)

// ExitCode maps a run outcome to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindInvalidPath:
		return ExitInvalidPath
	case KindNotReady:
		return ExitNotReady
	case KindBusy:
		return ExitBusy
	case KindPermission:
		return ExitPermission
	case KindTimedOut:
		return ExitTimedOut
	case KindConnectionLost:
		return ExitConnectionLost
	case KindRedirectWrite:
		return ExitRedirectWrite
	case KindStdoutWrite:
		return ExitStdoutWrite
	default:
		return ExitInternal
	}
}
