// Package run drives a single observation of a named pipe from readiness
// wait through stream completion.
package run

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"pipetap/internal/config"
	"pipetap/internal/pipe"
	"pipetap/internal/sink"
	"pipetap/internal/status"
)

// State is the orchestrator's position in its lifecycle.
type State int

const (
	StateStart State = iota
	StateWaiting
	StateConnecting
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateWaiting:
		return "waiting"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options selects the behavior of one run.
type Options struct {
	// Path is the pipe namespace path to observe.
	Path string
	// Wait polls until the pipe exists instead of failing immediately.
	Wait bool
	// WaitTimeout overrides the configured wait bound when positive.
	WaitTimeout time.Duration
	// RedirectPath enables the file sink when non-empty.
	RedirectPath string
}

// Runner wires probe, dial, read and fan-out together. Collaborators are
// injected so the lifecycle can be driven against fakes.
type Runner struct {
	prober pipe.Prober
	dialer pipe.Dialer
	stdout io.Writer
	cfg    config.Config
	logger *slog.Logger

	state State
}

func New(prober pipe.Prober, dialer pipe.Dialer, stdout io.Writer, cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{prober: prober, dialer: dialer, stdout: stdout, cfg: cfg, logger: logger}
}

// Run executes Start → (Waiting)? → Connecting → Streaming and settles in
// Done or Failed. It returns nil only from Done; map failures to exit codes
// with status.ExitCode.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	err := r.run(ctx, opts)
	if err != nil {
		r.state = StateFailed
		r.logger.Error("run failed",
			slog.String("kind", status.KindOf(err).String()),
			slog.Any("error", err))
		return err
	}
	r.state = StateDone
	return nil
}

// State reports the current (after Run, the terminal) state.
func (r *Runner) State() State { return r.state }

func (r *Runner) run(ctx context.Context, opts Options) error {
	r.state = StateStart
	addr, err := pipe.ParseAddress(opts.Path)
	if err != nil {
		return err
	}

	pol := pipe.WaitPolicy{
		Enabled:   opts.Wait,
		Initial:   r.cfg.Wait.InitialInterval(),
		Max:       r.cfg.Wait.MaxInterval(),
		Timeout:   r.cfg.Wait.Timeout(),
		BusyLimit: r.cfg.Wait.BusyLimit,
	}
	if opts.WaitTimeout > 0 {
		pol.Timeout = opts.WaitTimeout
	}

	if opts.Wait {
		r.state = StateWaiting
		r.logger.Info("waiting for pipe", slog.String("path", addr.String()))
	}
	probes, err := pipe.WaitUntilReady(ctx, r.prober, addr, pol)
	if err != nil {
		return err
	}
	r.logger.Debug("pipe ready", slog.String("path", addr.String()), slog.Int("probes", probes))

	r.state = StateConnecting
	conn, err := r.dialer.Dial(ctx, addr)
	if err != nil {
		return err
	}
	r.logger.Info("pipe connected", slog.String("path", addr.String()))

	// A blocking pipe read is interrupted by closing the handle; this is
	// what makes Ctrl-C effective mid-stream.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	fan, err := r.openSinks(opts)
	if err != nil {
		_ = conn.Close()
		return err
	}

	r.state = StateStreaming
	reader := pipe.NewReader(conn, r.cfg.Stream.ChunkSize)
	streamErr := r.stream(ctx, reader, fan)
	closeErr := fan.Close()
	_ = reader.Close()
	if streamErr != nil {
		return streamErr
	}
	return closeErr
}

// stream copies chunks from the reader into the sinks until end of stream.
// Every chunk is fanned out before the next read so a failure cannot lose
// already-received bytes.
func (r *Runner) stream(ctx context.Context, reader *pipe.Reader, fan *sink.Fanout) error {
	var total int64
	for {
		chunk, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Info("stream ended", slog.Int64("bytes", total))
				return nil
			}
			if ctx.Err() != nil {
				return status.Wrap(status.KindTimedOut, "read pipe", ctx.Err())
			}
			return err
		}
		if err := fan.Write(chunk); err != nil {
			return err
		}
		total += int64(len(chunk))
	}
}

func (r *Runner) openSinks(opts Options) (*sink.Fanout, error) {
	targets := []sink.Target{sink.NewConsole(r.stdout)}
	if opts.RedirectPath != "" {
		f, err := sink.OpenFile(opts.RedirectPath, sink.FileOptions{
			Truncate: r.cfg.Redirect.Truncate,
			Lock:     r.cfg.Redirect.Lock,
		})
		if err != nil {
			return nil, err
		}
		r.logger.Debug("redirect file opened", slog.String("path", f.Name()), slog.Bool("truncate", r.cfg.Redirect.Truncate))
		targets = append(targets, f)
	}
	return sink.New(targets...), nil
}
