// Package sink fans received pipe data out to the configured destinations.
package sink

// Target is one output destination. Write must not retain p.
type Target interface {
	Name() string
	Write(p []byte) error
	Close() error
}

// Fanout delivers each chunk to every target in declared order. The target
// set is fixed before streaming begins.
type Fanout struct {
	targets []Target
}

func New(targets ...Target) *Fanout { return &Fanout{targets: targets} }

// Write hands the chunk to every target, attempting all of them even after
// one fails so a dying redirect file cannot swallow stdout output. The first
// failure in declared order is returned.
func (f *Fanout) Write(p []byte) error {
	var first error
	for _, t := range f.targets {
		if err := t.Write(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close releases every target in reverse declared order, keeping the first
// failure.
func (f *Fanout) Close() error {
	var first error
	for i := len(f.targets) - 1; i >= 0; i-- {
		if err := f.targets[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
