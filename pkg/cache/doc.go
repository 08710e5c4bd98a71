// Package cache provides a compute-once cache whose entries expire after a
// timeout decided per value.
//
// A lookup supplies the function that produces the value. The first caller
// for an absent key runs it; every caller that arrives while it runs waits
// for the same outcome instead of computing again. Lookups for different
// keys never wait on each other: the key to entry mapping is a sync.Map and
// installation of a new entry is a single LoadOrStore.
//
// # Usage
//
//	s := scheduler.NewCron()
//	_ = s.Start()
//	defer s.Stop(ctx)
//
//	c := cache.New[string, *Key](s,
//	    cache.WithDefaultTimeout(duration.MustParse("30 seconds")),
//	    cache.WithLogger(log),
//	)
//
//	key, err := c.Get(ctx, kid, func(ctx context.Context) (*Key, error) {
//	    return fetchKey(ctx, kid)
//	})
//
// # Timeouts
//
// How long a value stays cached is decided after it is computed, by a
// [TimeoutResolver]. The resolver returns a promise, so the decision can
// depend on asynchronous work; callers receive the value without waiting
// for it. The outcome is one of:
//
//   - a finite duration: an eviction task is scheduled to run after it
//   - [duration.Zero]: the value is returned but not kept
//   - [duration.Unlimited]: the value is kept until invalidated and the
//     scheduler is never involved
//
// A nil resolver uses the cache's default timeout (30 seconds unless set
// with [WithDefaultTimeout] or [Cache.SetDefaultTimeout]). A resolver that
// fails, panics or yields an invalid duration falls back to the default
// timeout and the fallback is logged at warn level.
//
//	v, err := c.GetWithTimeout(ctx, key, compute,
//	    cache.TimeoutFunc(func(ctx context.Context, v *Key) (duration.Duration, error) {
//	        return duration.FromStd(time.Until(v.ExpiresAt))
//	    }),
//	)
//
// # Eviction
//
// Evictions run on the injected [scheduler.Scheduler]; the cache starts no
// goroutines of its own. Each entry carries a generation number and an
// eviction task only removes the entry it was scheduled for, so a timer
// that fires after its key was invalidated and repopulated leaves the new
// value alone. [Cache.Invalidate] cancels the pending task.
//
// If the scheduler rejects an eviction (for example during shutdown) the
// value stays cached without expiry.
//
// # Failures
//
// An error returned by the compute function is delivered to the computing
// caller and to every waiter, and the entry is removed so the next lookup
// retries. Panics are recovered and reported as [ErrComputationPanic].
// Waiters whose context ends stop waiting and get the context error; the
// computation keeps running for the others.
package cache
