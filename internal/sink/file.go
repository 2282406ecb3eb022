package sink

import (
	"os"

	"github.com/gofrs/flock"

	"pipetap/internal/status"
)

// FileOptions controls how the redirect file is opened.
type FileOptions struct {
	// Truncate discards existing contents instead of appending.
	Truncate bool
	// Lock guards the file with a sidecar lock so two runs cannot
	// interleave writes into the same redirect target.
	Lock bool
}

// File streams pipe data into a redirect file, unbuffered so every chunk is
// on disk before the next read.
type File struct {
	path string
	f    *os.File
	lock *flock.Flock
}

// OpenFile opens (creating if needed) the redirect file before the first
// chunk. Append is the default; see FileOptions.
func OpenFile(path string, opts FileOptions) (*File, error) {
	const op = "open redirect file"

	var lk *flock.Flock
	if opts.Lock {
		lk = flock.New(path + ".lock")
		held, err := lk.TryLock()
		if err != nil {
			return nil, status.Wrap(status.KindRedirectWrite, op, err)
		}
		if !held {
			return nil, status.Errorf(status.KindRedirectWrite, op, "%s is locked by another run", path)
		}
	}

	mode := os.O_CREATE | os.O_WRONLY
	if opts.Truncate {
		mode |= os.O_TRUNC
	} else {
		mode |= os.O_APPEND
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		if lk != nil {
			_ = lk.Unlock()
		}
		return nil, status.Wrap(status.KindRedirectWrite, op, err)
	}
	return &File{path: path, f: f, lock: lk}, nil
}

func (t *File) Name() string { return t.path }

func (t *File) Write(p []byte) error {
	if _, err := t.f.Write(p); err != nil {
		return status.Wrap(status.KindRedirectWrite, "write redirect file", err)
	}
	return nil
}

// Close flushes the file to disk and releases the lock.
func (t *File) Close() error {
	var first error
	if err := t.f.Sync(); err != nil {
		first = status.Wrap(status.KindRedirectWrite, "sync redirect file", err)
	}
	if err := t.f.Close(); err != nil && first == nil {
		first = status.Wrap(status.KindRedirectWrite, "close redirect file", err)
	}
	if t.lock != nil {
		if err := t.lock.Unlock(); err != nil && first == nil {
			first = status.Wrap(status.KindRedirectWrite, "unlock redirect file", err)
		}
	}
	return first
}
