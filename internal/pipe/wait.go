package pipe

import (
	"context"
	"time"

	"pipetap/internal/status"
)

// WaitPolicy controls the readiness wait loop.
type WaitPolicy struct {
	// Enabled selects between the retry loop and a single probe.
	Enabled bool
	// Initial is the delay before the second attempt; it doubles per retry.
	Initial time.Duration
	// Max caps the backoff delay.
	Max time.Duration
	// Timeout bounds the whole wait. Zero waits until cancelled.
	Timeout time.Duration
	// BusyLimit is how many Busy outcomes are tolerated before the wait
	// fails. NotReady retries are unbounded within the timeout.
	BusyLimit int
}

// backoff is the explicit retry state threaded between loop iterations.
type backoff struct {
	delay time.Duration
	max   time.Duration
}

func newBackoff(initial, max time.Duration) backoff {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return backoff{delay: initial, max: max}
}

// next returns the delay to sleep before the following attempt along with
// the advanced state.
func (b backoff) next() (time.Duration, backoff) {
	d := b.delay
	doubled := b.delay * 2
	if doubled > b.max {
		doubled = b.max
	}
	return d, backoff{delay: doubled, max: b.max}
}

// WaitUntilReady probes until the pipe accepts a connection attempt, the
// policy gives up, or ctx is cancelled. It returns the number of probes
// made. With the policy disabled exactly one probe is made and NotReady or
// Busy become terminal failures.
func WaitUntilReady(ctx context.Context, prober Prober, addr Address, pol WaitPolicy) (int, error) {
	const op = "wait for pipe"

	if !pol.Enabled {
		res, err := prober.Probe(ctx, addr)
		if err != nil {
			return 1, err
		}
		switch res {
		case Ready:
			return 1, nil
		case Busy:
			return 1, status.Errorf(status.KindBusy, op, "%s has no free instances", addr)
		default:
			return 1, status.Errorf(status.KindNotReady, op, "%s does not exist", addr)
		}
	}

	var deadline time.Time
	if pol.Timeout > 0 {
		deadline = time.Now().Add(pol.Timeout)
	}
	bo := newBackoff(pol.Initial, pol.Max)
	busy := 0

	for attempts := 1; ; attempts++ {
		if err := ctx.Err(); err != nil {
			return attempts - 1, status.Wrap(status.KindTimedOut, op, err)
		}
		res, err := prober.Probe(ctx, addr)
		if err != nil {
			return attempts, err
		}
		switch res {
		case Ready:
			return attempts, nil
		case Busy:
			busy++
			if pol.BusyLimit > 0 && busy >= pol.BusyLimit {
				return attempts, status.Errorf(status.KindBusy, op, "%s still has no free instances after %d busy probes", addr, busy)
			}
		}

		var delay time.Duration
		delay, bo = bo.next()
		if !deadline.IsZero() && time.Now().Add(delay).After(deadline) {
			return attempts, status.Errorf(status.KindTimedOut, op, "%s not ready within %s", addr, pol.Timeout)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempts, status.Wrap(status.KindTimedOut, op, err)
		}
	}
}

// sleep waits for the delay or for cancellation, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
