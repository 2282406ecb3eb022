// Package config loads pipetap's TOML configuration, following a
// defaults-then-file-then-flags layering. Flags are applied by the caller.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Wait tunes the readiness retry loop. Intervals are milliseconds.
type Wait struct {
	InitialIntervalMS int `toml:"initial_interval_ms"`
	MaxIntervalMS     int `toml:"max_interval_ms"`
	TimeoutMS         int `toml:"timeout_ms"`
	BusyLimit         int `toml:"busy_limit"`
}

// Stream tunes the read side of a connection.
type Stream struct {
	ChunkSize        int `toml:"chunk_size"`
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
}

// Redirect controls the file sink.
type Redirect struct {
	// Truncate discards existing file contents; the default appends, which
	// matches how the redirect file has always behaved.
	Truncate bool `toml:"truncate"`
	// Lock refuses to share the redirect file with a concurrent run.
	Lock bool `toml:"lock"`
}

// Log controls stderr logging.
type Log struct {
	Level string `toml:"level"`
}

// Config is the full runtime configuration.
type Config struct {
	Wait     Wait     `toml:"wait"`
	Stream   Stream   `toml:"stream"`
	Redirect Redirect `toml:"redirect"`
	Log      Log      `toml:"log"`
}

const (
	defaultInitialIntervalMS = 100
	defaultMaxIntervalMS     = 2000
	defaultBusyLimit         = 30
	defaultChunkSize         = 32 * 1024
	defaultConnectTimeoutMS  = 5000
	defaultLogLevel          = "info"
)

// Default returns the repository defaults.
func Default() Config {
	return Config{
		Wait: Wait{
			InitialIntervalMS: defaultInitialIntervalMS,
			MaxIntervalMS:     defaultMaxIntervalMS,
			BusyLimit:         defaultBusyLimit,
		},
		Stream: Stream{
			ChunkSize:        defaultChunkSize,
			ConnectTimeoutMS: defaultConnectTimeoutMS,
		},
		Redirect: Redirect{
			Lock: true,
		},
		Log: Log{
			Level: defaultLogLevel,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults untouched; an explicit path that cannot be read is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", trimmed, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", trimmed, err)
	}
	return cfg, nil
}

// Validate rejects values the wait loop and reader cannot operate with.
func (c Config) Validate() error {
	if c.Wait.InitialIntervalMS <= 0 {
		return fmt.Errorf("wait.initial_interval_ms must be positive, got %d", c.Wait.InitialIntervalMS)
	}
	if c.Wait.MaxIntervalMS < c.Wait.InitialIntervalMS {
		return fmt.Errorf("wait.max_interval_ms %d is below wait.initial_interval_ms %d", c.Wait.MaxIntervalMS, c.Wait.InitialIntervalMS)
	}
	if c.Wait.TimeoutMS < 0 {
		return fmt.Errorf("wait.timeout_ms must not be negative, got %d", c.Wait.TimeoutMS)
	}
	if c.Wait.BusyLimit < 0 {
		return fmt.Errorf("wait.busy_limit must not be negative, got %d", c.Wait.BusyLimit)
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("stream.chunk_size must be positive, got %d", c.Stream.ChunkSize)
	}
	if c.Stream.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("stream.connect_timeout_ms must be positive, got %d", c.Stream.ConnectTimeoutMS)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

func (w Wait) InitialInterval() time.Duration {
	return time.Duration(w.InitialIntervalMS) * time.Millisecond
}

func (w Wait) MaxInterval() time.Duration {
	return time.Duration(w.MaxIntervalMS) * time.Millisecond
}

// Timeout returns the wait bound, zero meaning wait until cancelled.
func (w Wait) Timeout() time.Duration {
	return time.Duration(w.TimeoutMS) * time.Millisecond
}

func (s Stream) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMS) * time.Millisecond
}
