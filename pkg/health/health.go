package health

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/logger"
)

const (
	defaultTimeout = 3 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusUnhealthy indicates one or more checks failed.
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// StatsFunc returns the current counters of a cache.
type StatsFunc func() cache.Stats

// Report is the readiness result.
type Report struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks,omitempty"`
}

// Check is the outcome of a single check.
type Check struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds a readiness run. Default: 3 seconds.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry collects readiness checks and cache statistics. Components
// register themselves while the process is wired.
type Registry struct {
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
	stats  map[string]StatsFunc
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		timeout: defaultTimeout,
		logger:  logger.NewNope(),
		checks:  make(map[string]CheckFunc),
		stats:   make(map[string]StatsFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a readiness check. A later registration under the same
// name replaces the earlier one.
func (r *Registry) Register(name string, check CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// RegisterCache exposes the counters of a cache under name.
func (r *Registry) RegisterCache(name string, stats StatsFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[name] = stats
}

// Check runs every registered check in parallel.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checks := maps.Clone(r.checks)
	r.mu.RUnlock()

	report := &Report{Status: StatusHealthy}
	if len(checks) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mu sync.Mutex
	report.Checks = make(map[string]Check, len(checks))

	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			start := time.Now()
			err := run(ctx, check)
			result := Check{Status: StatusHealthy, Elapsed: time.Since(start).String()}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Error = err.Error()
				r.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.Any("error", err),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = result
			if err != nil {
				report.Status = StatusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// run executes check, turning a panic or a check that ignores ctx into an
// error.
func run(ctx context.Context, check CheckFunc) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", ErrCheckPanicked, p)
			}
		}()
		done <- check(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrCheckTimeout
	}
}

// Stats returns the counters of every registered cache.
func (r *Registry) Stats() map[string]cache.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]cache.Stats, len(r.stats))
	for name, fn := range r.stats {
		out[name] = fn()
	}
	return out
}
