package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"pipetap/internal/config"
	"pipetap/internal/logging"
	"pipetap/internal/pipe"
	"pipetap/internal/run"
	"pipetap/internal/status"
)

// Overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	pipePath    = flag.StringP("path", "p", "", `pipe namespace path to observe, e.g. \\.\pipe\example`)
	wait        = flag.BoolP("wait", "w", false, "poll until the pipe exists instead of failing immediately")
	waitTimeout = flag.Duration("wait-timeout", 0, "give up waiting after this long (0 waits until interrupted)")
	redir       = flag.StringP("redir", "r", "", "also write received bytes to this file (appends by default)")
	configPath  = flag.StringP("config", "c", "", "TOML configuration file")
	verbose     = flag.BoolP("verbose", "v", false, "debug logging on stderr")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("pipetap", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(status.ExitInternal)
	}

	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level)

	if *pipePath == "" {
		fmt.Fprintln(os.Stderr, "no pipe path specified")
		flag.Usage()
		os.Exit(status.ExitInvalidPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := run.New(
		pipe.SystemProber{},
		pipe.SystemDialer{Timeout: cfg.Stream.ConnectTimeout()},
		os.Stdout,
		cfg,
		logger,
	)
	if err := runner.Run(ctx, run.Options{
		Path:         *pipePath,
		Wait:         *wait,
		WaitTimeout:  *waitTimeout,
		RedirectPath: *redir,
	}); err != nil {
		os.Exit(status.ExitCode(err))
	}
}
