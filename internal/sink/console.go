package sink

import (
	"io"

	"pipetap/internal/status"
)

// Console writes chunks to the primary output stream. A failure here is
// fatal for the run, it means the consumer has gone away.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

func (c *Console) Name() string { return "stdout" }

func (c *Console) Write(p []byte) error {
	if _, err := c.w.Write(p); err != nil {
		return status.Wrap(status.KindStdoutWrite, "write stdout", err)
	}
	return nil
}

// Close is a no-op; the process owns its stdout handle.
func (c *Console) Close() error { return nil }
