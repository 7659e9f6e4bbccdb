// Package logger configures slog output for the client and the worker. The
// client logs to stderr with optional ANSI colors; the worker logs to a
// rotating file inside its state directory so repeated respawns do not grow
// it without bound.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, in lumberjack's units.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes a logging destination.
type Config struct {
	Level      string `toml:"level" mapstructure:"level"`             // debug|info|warn|error
	Color      bool   `toml:"color" mapstructure:"color"`             // colorize stderr output
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"` // file rotation threshold
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Level parses the configured level, defaulting to info.
func (c Config) ParsedLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStderr returns a logger for interactive client commands.
func (c Config) NewStderr() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.ParsedLevel()}
	if c.Color {
		return slog.New(NewColorTextHandler(os.Stderr, opts, true))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// FileWriter returns a rotating writer for the worker log at path.
func (c Config) FileWriter(path string) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// NewFile returns a logger writing to the rotating worker log, plus the
// closer for the underlying file.
func (c Config) NewFile(path string) (*slog.Logger, io.Closer) {
	w := c.FileWriter(path)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.ParsedLevel()})
	return slog.New(h), w
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
