package run_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pipetap/internal/config"
	"pipetap/internal/pipe"
	"pipetap/internal/run"
	"pipetap/internal/status"
)

type fakeProber struct {
	results []pipe.ProbeResult
	calls   int
}

func (p *fakeProber) Probe(context.Context, pipe.Address) (pipe.ProbeResult, error) {
	p.calls++
	i := p.calls - 1
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	return p.results[i], nil
}

type readStep struct {
	data []byte
	err  error
}

// fakeConn satisfies net.Conn through the embedded nil interface; only Read
// and Close are ever used by the runner.
type fakeConn struct {
	net.Conn
	steps  []readStep
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, errors.New("read from closed pipe")
	}
	if len(c.steps) == 0 {
		return 0, io.EOF
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	if step.err != nil {
		return 0, step.err
	}
	return copy(p, step.data), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	calls int
}

func (d *fakeDialer) Dial(context.Context, pipe.Address) (net.Conn, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("consumer gone") }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Wait.InitialIntervalMS = 1
	cfg.Wait.MaxIntervalMS = 2
	return cfg
}

const testPath = `\\.\pipe\run-test`

func TestInvalidPathFailsWithoutOSCalls(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	dialer := &fakeDialer{conn: &fakeConn{}}
	var out bytes.Buffer

	r := run.New(prober, dialer, &out, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: "not-a-pipe"})
	if kind := status.KindOf(err); kind != status.KindInvalidPath {
		t.Fatalf("kind: got %v want %v", kind, status.KindInvalidPath)
	}
	if prober.calls != 0 || dialer.calls != 0 {
		t.Fatalf("expected no OS calls, got %d probes and %d dials", prober.calls, dialer.calls)
	}
	if r.State() != run.StateFailed {
		t.Fatalf("state: got %v want %v", r.State(), run.StateFailed)
	}
	if got := status.ExitCode(err); got != status.ExitInvalidPath {
		t.Fatalf("exit code: got %d want %d", got, status.ExitInvalidPath)
	}
}

func TestMissingPipeWithoutWaitFailsAfterOneProbe(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.NotReady}}
	dialer := &fakeDialer{conn: &fakeConn{}}
	var out bytes.Buffer

	r := run.New(prober, dialer, &out, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath})
	if kind := status.KindOf(err); kind != status.KindNotReady {
		t.Fatalf("kind: got %v want %v", kind, status.KindNotReady)
	}
	if prober.calls != 1 {
		t.Fatalf("probe count: got %d want 1", prober.calls)
	}
	if dialer.calls != 0 {
		t.Fatalf("dial count: got %d want 0", dialer.calls)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout output, got %q", out.String())
	}
	if got := status.ExitCode(err); got != status.ExitNotReady {
		t.Fatalf("exit code: got %d want %d", got, status.ExitNotReady)
	}
}

func TestBusyPipeWithoutWaitFails(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Busy}}
	dialer := &fakeDialer{conn: &fakeConn{}}

	r := run.New(prober, dialer, io.Discard, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath})
	if got := status.ExitCode(err); got != status.ExitBusy {
		t.Fatalf("exit code: got %d want %d", got, status.ExitBusy)
	}
}

func TestWaitThenStreamToStdout(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.NotReady, pipe.NotReady, pipe.NotReady, pipe.Ready}}
	dialer := &fakeDialer{conn: &fakeConn{steps: []readStep{{data: []byte("hello")}}}}
	var out bytes.Buffer

	r := run.New(prober, dialer, &out, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath, Wait: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if r.State() != run.StateDone {
		t.Fatalf("state: got %v want %v", r.State(), run.StateDone)
	}
	if prober.calls != 4 {
		t.Fatalf("probe count: got %d want 4", prober.calls)
	}
	if dialer.calls != 1 {
		t.Fatalf("dial count: got %d want 1", dialer.calls)
	}
	if out.String() != "hello" {
		t.Fatalf("stdout: got %q want %q", out.String(), "hello")
	}
	if got := status.ExitCode(err); got != status.ExitOK {
		t.Fatalf("exit code: got %d want 0", got)
	}
}

func TestRedirectFileReceivesExactBytes(t *testing.T) {
	payload := []readStep{
		{data: []byte("hel")},
		{data: []byte("lo")},
	}
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	dialer := &fakeDialer{conn: &fakeConn{steps: payload}}
	var out bytes.Buffer
	redir := filepath.Join(t.TempDir(), "redir.bin")

	r := run.New(prober, dialer, &out, testConfig(), nil)
	if err := r.Run(context.Background(), run.Options{Path: testPath, RedirectPath: redir}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got, err := os.ReadFile(redir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("redirect contents: got %q want %q", got, "hello")
	}
	if out.String() != "hello" {
		t.Fatalf("stdout: got %q want %q", out.String(), "hello")
	}
}

func TestMidStreamDisconnectKeepsReceivedBytes(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	dialer := &fakeDialer{conn: &fakeConn{steps: []readStep{
		{data: []byte("par")},
		{err: errors.New("pipe has been ended")},
	}}}
	var out bytes.Buffer
	redir := filepath.Join(t.TempDir(), "redir.bin")

	r := run.New(prober, dialer, &out, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath, RedirectPath: redir})
	if kind := status.KindOf(err); kind != status.KindConnectionLost {
		t.Fatalf("kind: got %v want %v", kind, status.KindConnectionLost)
	}
	if out.String() != "par" {
		t.Fatalf("stdout: got %q want %q", out.String(), "par")
	}
	got, rerr := os.ReadFile(redir)
	if rerr != nil {
		t.Fatalf("ReadFile: %v", rerr)
	}
	if string(got) != "par" {
		t.Fatalf("redirect contents: got %q want %q", got, "par")
	}
	if got := status.ExitCode(err); got != status.ExitConnectionLost {
		t.Fatalf("exit code: got %d want %d", got, status.ExitConnectionLost)
	}
}

func TestStdoutFailureIsFatal(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	dialer := &fakeDialer{conn: &fakeConn{steps: []readStep{{data: []byte("x")}}}}

	r := run.New(prober, dialer, failWriter{}, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath})
	if kind := status.KindOf(err); kind != status.KindStdoutWrite {
		t.Fatalf("kind: got %v want %v", kind, status.KindStdoutWrite)
	}
	if got := status.ExitCode(err); got != status.ExitStdoutWrite {
		t.Fatalf("exit code: got %d want %d", got, status.ExitStdoutWrite)
	}
}

func TestCancellationDuringWaitTimesOutPromptly(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.NotReady}}
	dialer := &fakeDialer{conn: &fakeConn{}}
	cfg := testConfig()
	cfg.Wait.InitialIntervalMS = 3600000
	cfg.Wait.MaxIntervalMS = 3600000

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	r := run.New(prober, dialer, io.Discard, cfg, nil)
	start := time.Now()
	err := r.Run(ctx, run.Options{Path: testPath, Wait: true})
	if kind := status.KindOf(err); kind != status.KindTimedOut {
		t.Fatalf("kind: got %v want %v", kind, status.KindTimedOut)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation took %v", elapsed)
	}
	if dialer.calls != 0 {
		t.Fatalf("dial count: got %d want 0", dialer.calls)
	}
	if r.State() != run.StateFailed {
		t.Fatalf("state: got %v want %v", r.State(), run.StateFailed)
	}
}

func TestDialFailureIsSurfacedNotRetried(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	dialer := &fakeDialer{err: status.Errorf(status.KindNotReady, "connect pipe", "pipe vanished")}

	r := run.New(prober, dialer, io.Discard, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath, Wait: true})
	if kind := status.KindOf(err); kind != status.KindNotReady {
		t.Fatalf("kind: got %v want %v", kind, status.KindNotReady)
	}
	if dialer.calls != 1 {
		t.Fatalf("dial count: got %d want 1", dialer.calls)
	}
}

func TestRedirectOpenFailureClosesConnection(t *testing.T) {
	prober := &fakeProber{results: []pipe.ProbeResult{pipe.Ready}}
	conn := &fakeConn{steps: []readStep{{data: []byte("x")}}}
	dialer := &fakeDialer{conn: conn}
	redir := filepath.Join(t.TempDir(), "missing", "redir.bin")

	r := run.New(prober, dialer, io.Discard, testConfig(), nil)
	err := r.Run(context.Background(), run.Options{Path: testPath, RedirectPath: redir})
	if kind := status.KindOf(err); kind != status.KindRedirectWrite {
		t.Fatalf("kind: got %v want %v", kind, status.KindRedirectWrite)
	}
	if !conn.closed {
		t.Fatal("connection left open after sink setup failure")
	}
}
