package pipe

import (
	"strings"

	"pipetap/internal/status"
)

// Address is a validated named-pipe namespace path. Immutable after parsing.
type Address struct {
	raw    string
	server string
	name   string
}

// ParseAddress validates a pipe namespace path of the form
// \\<server>\pipe\<name>. Forward slashes are accepted and normalized, so
// //./pipe/foo and \\.\pipe\foo name the same endpoint. No OS call is made.
func ParseAddress(raw string) (Address, error) {
	norm := strings.ReplaceAll(raw, "/", `\`)
	if !strings.HasPrefix(norm, `\\`) {
		return Address{}, status.Errorf(status.KindInvalidPath, "parse pipe path", "%q is not a pipe namespace path", raw)
	}
	rest := norm[2:]
	server, rest, ok := strings.Cut(rest, `\`)
	if !ok || server == "" {
		return Address{}, status.Errorf(status.KindInvalidPath, "parse pipe path", "%q is missing a server component", raw)
	}
	ns, name, ok := strings.Cut(rest, `\`)
	if !ok || !strings.EqualFold(ns, "pipe") {
		return Address{}, status.Errorf(status.KindInvalidPath, "parse pipe path", "%q is not under the pipe namespace", raw)
	}
	if name == "" {
		return Address{}, status.Errorf(status.KindInvalidPath, "parse pipe path", "%q has an empty pipe name", raw)
	}
	for _, r := range name {
		if r < 0x20 {
			return Address{}, status.Errorf(status.KindInvalidPath, "parse pipe path", "%q contains control characters", raw)
		}
	}
	return Address{raw: `\\` + server + `\pipe\` + name, server: server, name: name}, nil
}

// String returns the normalized path, suitable for CreateFile/WaitNamedPipe.
func (a Address) String() string { return a.raw }

// Server returns the server component ("." for the local machine).
func (a Address) Server() string { return a.server }

// Name returns the pipe name without the namespace prefix.
func (a Address) Name() string { return a.name }

// IsZero reports whether the address was never parsed.
func (a Address) IsZero() bool { return a.raw == "" }
