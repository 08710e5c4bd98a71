package cache

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/logger"
)

// DefaultTimeoutValue is the default timeout of a cache created without
// WithDefaultTimeout.
var DefaultTimeoutValue = duration.Must(30, time.Second)

type options struct {
	defaultTimeout duration.Duration
	logger         *slog.Logger
	onEvict        any
}

func defaultOptions() *options {
	return &options{
		defaultTimeout: DefaultTimeoutValue,
		logger:         logger.NewNope(),
	}
}

// Option configures a Cache.
type Option func(*options)

// WithDefaultTimeout sets the timeout used by lookups without a resolver.
// An invalid duration leaves the default in place.
func WithDefaultTimeout(d duration.Duration) Option {
	return func(o *options) {
		if d.IsValid() {
			o.defaultTimeout = d
		}
	}
}

// WithLogger sets the logger. Evictions and scheduling decisions are
// logged at debug level, timeout fallbacks at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEvictCallback registers fn to be called after an entry leaves the
// cache. Its key and value types must match the cache's.
//
// fn runs on the scheduler for expired and not-stored entries and on the
// invalidating goroutine for invalidated ones. It must not block.
func WithEvictCallback[K comparable, V any](fn func(key K, value V, reason Reason)) Option {
	return func(o *options) {
		if fn != nil {
			o.onEvict = fn
		}
	}
}
