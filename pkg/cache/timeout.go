package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// TimeoutResolver decides how long a freshly computed value stays cached.
// The outcome may be settled later; the value is served to callers
// before it is known.
//
// Outcomes:
//   - finite duration: the entry is evicted after it elapses
//   - duration.Zero: the entry is not kept; the next lookup recomputes
//   - duration.Unlimited: the entry stays until invalidated
//
// A rejected promise, a nil promise, a panic or an invalid duration falls
// back to the cache's default timeout.
type TimeoutResolver[V any] func(ctx context.Context, value V) *promise.Promise[duration.Duration]

// FixedTimeout returns a resolver that always yields d.
func FixedTimeout[V any](d duration.Duration) TimeoutResolver[V] {
	return func(context.Context, V) *promise.Promise[duration.Duration] {
		return promise.Resolved(d)
	}
}

// TimeoutFunc adapts a synchronous function into a TimeoutResolver.
func TimeoutFunc[V any](fn func(ctx context.Context, value V) (duration.Duration, error)) TimeoutResolver[V] {
	return func(ctx context.Context, v V) *promise.Promise[duration.Duration] {
		d, err := fn(ctx, v)
		if err != nil {
			return promise.Rejected[duration.Duration](err)
		}
		return promise.Resolved(d)
	}
}

// resolveTimeout starts timeout resolution for a resolved entry and attaches
// the eviction policy once the outcome settles. It never blocks on an
// asynchronous resolver.
func (c *Cache[K, V]) resolveTimeout(ctx context.Context, key K, e *entry[V], resolver TimeoutResolver[V]) {
	if resolver == nil {
		c.applyTimeout(ctx, key, e, c.DefaultTimeout(), nil)
		return
	}

	// The resolver may outlive the request that triggered the computation.
	ctx = context.WithoutCancel(ctx)

	c.callResolver(ctx, resolver, e.value).OnSettle(func(d duration.Duration, err error) {
		c.applyTimeout(ctx, key, e, d, err)
	})
}

func (c *Cache[K, V]) callResolver(ctx context.Context, resolver TimeoutResolver[V], v V) (p *promise.Promise[duration.Duration]) {
	defer func() {
		if r := recover(); r != nil {
			p = promise.Rejected[duration.Duration](fmt.Errorf("%w: %v", ErrResolverPanic, r))
		}
	}()

	if p = resolver(ctx, v); p == nil {
		return promise.Rejected[duration.Duration](ErrNilTimeout)
	}
	return p
}

func (c *Cache[K, V]) applyTimeout(ctx context.Context, key K, e *entry[V], d duration.Duration, err error) {
	if err == nil && !d.IsValid() {
		err = fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
	}
	if err != nil {
		d = c.DefaultTimeout()
		c.logger.WarnContext(ctx, "cache timeout resolution failed, using default",
			slog.Any("key", key),
			slog.String("default", d.String()),
			slog.Any("error", err),
		)
	}

	switch {
	case d.IsUnlimited():
		c.logger.DebugContext(ctx, "cache entry kept without expiry", slog.Any("key", key))
	case d.IsZero():
		c.discard(ctx, key, e)
	default:
		c.scheduleEviction(ctx, key, e, d)
	}
}

// discard drops an entry whose value must not be kept. The entry stops
// being visible at once; its removal from the map runs on the scheduler.
func (c *Cache[K, V]) discard(ctx context.Context, key K, e *entry[V]) {
	if _, ok := e.retire(); !ok {
		return
	}
	c.stats.evictions.Add(1)

	remove := func() {
		c.entries.CompareAndDelete(key, e)
		c.notify(key, e.value, ReasonNotStored)
	}
	if err := c.scheduler.Submit(remove); err != nil {
		c.logger.DebugContext(ctx, "cache removal not submitted, removing inline",
			slog.Any("key", key),
			slog.Any("error", err),
		)
		remove()
	}
}

func (c *Cache[K, V]) scheduleEviction(ctx context.Context, key K, e *entry[V], d duration.Duration) {
	if !e.live() {
		return
	}

	gen := e.generation
	h, err := c.scheduler.Schedule(func() { c.expire(key, gen) }, d.Std())
	if err != nil {
		c.logger.WarnContext(ctx, "cache eviction not scheduled, entry kept without expiry",
			slog.Any("key", key),
			slog.String("timeout", d.String()),
			slog.Any("error", err),
		)
		return
	}

	if !e.attach(h) {
		h.Cancel()
		return
	}

	c.logger.DebugContext(ctx, "cache eviction scheduled",
		slog.Any("key", key),
		slog.Uint64("generation", gen),
		slog.String("timeout", d.String()),
	)
}
