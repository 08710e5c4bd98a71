package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/scheduler"
)

// ComputeFunc produces the value for a key. It runs on the goroutine of
// the caller that found the key absent.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache is a compute-once TTL cache. For every key at most one computation
// runs at a time; concurrent callers for the same key wait for its outcome.
// Expired entries are removed by tasks on the injected scheduler.
//
// Cache is safe for concurrent use. Lookups of unrelated keys never wait on
// each other.
type Cache[K comparable, V any] struct {
	entries    sync.Map // K -> *entry[V]
	scheduler  scheduler.Scheduler
	defaultTTL atomic.Pointer[duration.Duration]
	generation atomic.Uint64
	logger     *slog.Logger
	onEvict    func(K, V, Reason)
	stats      counters
}

// New creates a cache that schedules evictions on s.
//
// It panics if s is nil, or if an eviction callback registered with
// WithEvictCallback does not match the cache's key and value types.
func New[K comparable, V any](s scheduler.Scheduler, opts ...Option) *Cache[K, V] {
	if s == nil {
		panic("cache: nil scheduler")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &Cache[K, V]{
		scheduler: s,
		logger:    o.logger,
	}

	if o.onEvict != nil {
		fn, ok := o.onEvict.(func(K, V, Reason))
		if !ok {
			panic(fmt.Sprintf("cache: evict callback %T does not match Cache[%T, %T]", o.onEvict, *new(K), *new(V)))
		}
		c.onEvict = fn
	}

	d := o.defaultTimeout
	if !d.IsValid() {
		d = DefaultTimeoutValue
	}
	c.defaultTTL.Store(&d)

	return c
}

// Get returns the value for key, computing it with compute if absent.
// The entry lives for the cache's default timeout.
func (c *Cache[K, V]) Get(ctx context.Context, key K, compute ComputeFunc[V]) (V, error) {
	return c.GetWithTimeout(ctx, key, compute, nil)
}

// GetWithTimeout returns the value for key, computing it with compute if
// absent. When this call computes the value, resolver decides how long it
// is kept; a nil resolver uses the default timeout. A resolver passed by a
// caller that joins an in-flight computation is ignored.
//
// Callers waiting on another caller's computation return ctx.Err() when
// ctx is done; the computation itself is not affected.
func (c *Cache[K, V]) GetWithTimeout(ctx context.Context, key K, compute ComputeFunc[V], resolver TimeoutResolver[V]) (V, error) {
	var zero V
	if compute == nil {
		return zero, ErrNilCompute
	}

	for {
		if v, ok := c.entries.Load(key); ok {
			e := v.(*entry[V])
			if e.Stage() == StageEvicted {
				c.entries.CompareAndDelete(key, e)
				continue
			}

			val, err := c.await(ctx, e)
			// A live ctx means await saw done closed, so abandoned is settled.
			if err != nil && ctx.Err() == nil && e.abandoned {
				continue
			}
			return val, err
		}

		e := newEntry[V](c.generation.Add(1))
		if _, loaded := c.entries.LoadOrStore(key, e); loaded {
			continue
		}

		c.stats.misses.Add(1)
		return c.compute(ctx, key, e, compute, resolver)
	}
}

func (c *Cache[K, V]) await(ctx context.Context, e *entry[V]) (V, error) {
	var zero V

	select {
	case <-e.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if e.err != nil {
		return zero, e.err
	}
	c.stats.hits.Add(1)
	return e.value, nil
}

func (c *Cache[K, V]) compute(ctx context.Context, key K, e *entry[V], compute ComputeFunc[V], resolver TimeoutResolver[V]) (V, error) {
	v, err := call(ctx, compute)
	c.stats.computations.Add(1)

	if err != nil {
		c.stats.failures.Add(1)
		e.fail(err, ctx.Err() != nil)
		c.entries.CompareAndDelete(key, e)
		close(e.done)

		c.logger.DebugContext(ctx, "cache computation failed",
			slog.Any("key", key),
			slog.Uint64("generation", e.generation),
			slog.Any("error", err),
		)
		var zero V
		return zero, err
	}

	e.resolve(v)
	c.resolveTimeout(ctx, key, e, resolver)
	return v, nil
}

func call[V any](ctx context.Context, compute ComputeFunc[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrComputationPanic, r)
		}
	}()
	return compute(ctx)
}

// expire is the eviction task. It is a no-op when the key now holds an
// entry other than the one the task was scheduled for.
func (c *Cache[K, V]) expire(key K, generation uint64) {
	v, ok := c.entries.Load(key)
	if !ok {
		return
	}
	e := v.(*entry[V])
	if e.generation != generation {
		c.logger.Debug("cache eviction skipped, entry replaced",
			slog.Any("key", key),
			slog.Uint64("scheduled", generation),
			slog.Uint64("current", e.generation),
		)
		return
	}
	c.evict(key, e, ReasonExpired)
}

func (c *Cache[K, V]) evict(key K, e *entry[V], reason Reason) bool {
	h, ok := e.retire()
	if !ok {
		return false
	}
	if h != nil {
		h.Cancel()
	}
	c.entries.CompareAndDelete(key, e)
	c.stats.evictions.Add(1)
	c.notify(key, e.value, reason)
	return true
}

func (c *Cache[K, V]) notify(key K, value V, reason Reason) {
	if c.onEvict == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cache evict callback panicked",
				slog.Any("key", key),
				slog.String("reason", reason.String()),
				slog.Any("panic", r),
			)
		}
	}()
	c.onEvict(key, value, reason)
}

// Invalidate removes the resolved entry for key and cancels its pending
// eviction. It reports whether an entry was removed. A computation in
// flight is not interrupted; Invalidate returns false for it.
func (c *Cache[K, V]) Invalidate(key K) bool {
	v, ok := c.entries.Load(key)
	if !ok {
		return false
	}
	return c.evict(key, v.(*entry[V]), ReasonInvalidated)
}

// Clear invalidates every resolved entry and returns how many were removed.
func (c *Cache[K, V]) Clear() int {
	n := 0
	c.entries.Range(func(k, v any) bool {
		if c.evict(k.(K), v.(*entry[V]), ReasonInvalidated) {
			n++
		}
		return true
	})
	return n
}

// Peek returns the cached value for key without computing it.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	if v, ok := c.entries.Load(key); ok {
		if e := v.(*entry[V]); e.live() {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Len returns the number of resolved entries.
func (c *Cache[K, V]) Len() int {
	n := 0
	c.entries.Range(func(_, v any) bool {
		if v.(*entry[V]).live() {
			n++
		}
		return true
	})
	return n
}

// SetDefaultTimeout replaces the timeout used by lookups without a
// resolver. Such lookups read the default when their value resolves, so a
// computation in flight picks up the new timeout.
func (c *Cache[K, V]) SetDefaultTimeout(d duration.Duration) error {
	if !d.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
	}
	c.defaultTTL.Store(&d)
	c.logger.Debug("cache default timeout changed", slog.String("timeout", d.String()))
	return nil
}

// DefaultTimeout returns the timeout used by lookups without a resolver.
func (c *Cache[K, V]) DefaultTimeout() duration.Duration {
	return *c.defaultTTL.Load()
}
