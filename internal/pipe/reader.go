package pipe

import (
	"errors"
	"io"

	"pipetap/internal/status"
)

// DefaultChunkSize bounds a single read from the pipe.
const DefaultChunkSize = 32 * 1024

// Reader turns a pipe connection into a bounded-chunk byte sequence. The
// connection is read-only from this side; the Reader owns it until Close.
type Reader struct {
	conn io.ReadCloser
	buf  []byte
}

// NewReader wraps an open pipe connection. chunkSize <= 0 selects
// DefaultChunkSize.
func NewReader(conn io.ReadCloser, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{conn: conn, buf: make([]byte, chunkSize)}
}

// Next returns the next chunk of pipe data. The slice is valid only until
// the following call. io.EOF means the remote writer closed its end cleanly;
// any other failure is a lost connection.
func (r *Reader) Next() ([]byte, error) {
	for {
		n, err := r.conn.Read(r.buf)
		if n > 0 {
			// An error alongside data resurfaces on the next read.
			return r.buf[:n], nil
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, status.Wrap(status.KindConnectionLost, "read pipe", err)
	}
}

// Close releases the connection. Safe to call after Next has failed.
func (r *Reader) Close() error { return r.conn.Close() }
