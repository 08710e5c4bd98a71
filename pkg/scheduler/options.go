package scheduler

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/logger"
)

// Option configures the cron scheduler.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	location *time.Location
}

func defaultOptions() *options {
	return &options{
		logger:   logger.NewNope(),
		location: time.UTC,
	}
}

// WithLogger sets the logger for scheduler lifecycle events and task panics.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLocation sets the time zone the cron runner computes activations in.
// Delays are relative, so this only shows up in log output.
// Default: UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}
