package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/health"
	"github.com/dmitrymomot/gatecache/pkg/logger"
)

const (
	defaultAddress           = ":8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second

	LivenessPath  = "/health/live"
	ReadinessPath = "/health/ready"
	StatsPath     = "/health/caches"
)

type options struct {
	address         string
	logger          *slog.Logger
	shutdownTimeout time.Duration
	health          *health.Registry
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
}

func defaultOptions() *options {
	return &options{
		address:         defaultAddress,
		logger:          logger.NewNope(),
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// Option configures a Server.
type Option func(*options)

// WithAddress sets the listen address. Defaults to ":8080".
func WithAddress(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.address = addr
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown, hooks included.
// Defaults to 30 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithHealth mounts the liveness, readiness and cache statistics endpoints
// backed by reg.
func WithHealth(reg *health.Registry) Option {
	return func(o *options) {
		o.health = reg
	}
}

// WithStartupHook registers fn to run before the listener accepts
// requests. Hooks run in registration order; the first error aborts
// startup.
func WithStartupHook(fn func(context.Context) error) Option {
	return func(o *options) {
		if fn != nil {
			o.startupHooks = append(o.startupHooks, fn)
		}
	}
}

// WithShutdownHook registers fn to run after the HTTP server stopped.
// Hooks run in registration order.
//
// Example:
//
//	server.WithShutdownHook(sched.Shutdown())
func WithShutdownHook(fn func(context.Context) error) Option {
	return func(o *options) {
		if fn != nil {
			o.shutdownHooks = append(o.shutdownHooks, fn)
		}
	}
}
