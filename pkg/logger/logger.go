package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config describes the process logger. It is loaded from the `logger`
// section of the gateway configuration file.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`
	// Format is json or text. Default: json.
	Format string `yaml:"format"`
	// Sentry enables error reporting when DSN is set.
	Sentry SentryConfig `yaml:"sentry"`
	// Output defaults to os.Stdout.
	Output io.Writer `yaml:"-"`
}

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	// MinLevel is the lowest level stored as a Sentry log: warn or error.
	// Errors always create Sentry events.
	MinLevel string `yaml:"min_level"`
}

// New builds a logger from cfg. Context extractors apply to every
// destination. A Sentry initialization failure is logged and the logger
// falls back to local output only.
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var local slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		local = slog.NewJSONHandler(out, opts)
	case "text":
		local = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}

	if cfg.Sentry.DSN == "" {
		return slog.New(NewContextHandler(local, extractors...)), nil
	}

	remote, err := newSentryHandler(cfg.Sentry)
	if err != nil {
		slog.New(local).Error("sentry disabled", slog.Any("error", err))
		return slog.New(NewContextHandler(local, extractors...)), nil
	}

	return slog.New(NewContextHandler(newMultiHandler(local, remote), extractors...)), nil
}

func newSentryHandler(cfg SentryConfig) (slog.Handler, error) {
	minLevel, err := ParseLevel(cfg.MinLevel)
	if err != nil {
		return nil, err
	}

	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		EnableLogs:  true,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSentryInit, err)
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if minLevel >= slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background()), nil
}

// ParseLevel parses a level name. An empty name means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// Shutdown returns a shutdown hook that flushes buffered Sentry events.
// It is a no-op when Sentry was never initialized.
func Shutdown() func(context.Context) error {
	return func(ctx context.Context) error {
		if sentry.CurrentHub().Client() == nil {
			return nil
		}
		timeout := 2 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if !sentry.Flush(timeout) {
			return ErrFlushTimeout
		}
		return nil
	}
}
