package cache_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/promise"
	"github.com/dmitrymomot/gatecache/pkg/scheduler"
	"github.com/dmitrymomot/gatecache/pkg/scheduler/schedulertest"
)

func value[V any](v V) cache.ComputeFunc[V] {
	return func(context.Context) (V, error) { return v, nil }
}

func fixed(s string) cache.TimeoutResolver[string] {
	return cache.FixedTimeout[string](duration.MustParse(s))
}

// --- Get ---

func TestCache_Get(t *testing.T) {
	t.Parallel()

	t.Run("computes once and returns cached value", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](schedulertest.New())
		ctx := context.Background()
		var calls atomic.Int32
		compute := func(context.Context) (int, error) {
			calls.Add(1)
			return 42, nil
		}

		for range 3 {
			v, err := c.Get(ctx, "answer", compute)
			require.NoError(t, err)
			require.Equal(t, 42, v)
		}
		require.Equal(t, int32(1), calls.Load())

		stats := c.Stats()
		require.Equal(t, uint64(1), stats.Misses)
		require.Equal(t, uint64(2), stats.Hits)
		require.Equal(t, uint64(1), stats.Computations)
		require.Equal(t, 1, stats.Entries)
	})

	t.Run("rejects nil compute", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](schedulertest.New())
		_, err := c.Get(context.Background(), "k", nil)
		require.ErrorIs(t, err, cache.ErrNilCompute)
	})

	t.Run("computes each key once under contention", func(t *testing.T) {
		t.Parallel()

		const (
			keys    = 10
			workers = 20
			lookups = 10_000
		)

		c := cache.New[int, string](schedulertest.New())
		var calls atomic.Int32

		g, ctx := errgroup.WithContext(context.Background())
		for w := range workers {
			g.Go(func() error {
				rnd := rand.New(rand.NewPCG(uint64(w), 0))
				for range lookups / workers {
					key := rnd.IntN(keys)
					v, err := c.Get(ctx, key, func(context.Context) (string, error) {
						calls.Add(1)
						time.Sleep(time.Millisecond)
						return fmt.Sprintf("value-%d", key), nil
					})
					if err != nil {
						return err
					}
					if v != fmt.Sprintf("value-%d", key) {
						return fmt.Errorf("key %d: unexpected value %q", key, v)
					}
				}
				return nil
			})
		}

		require.NoError(t, g.Wait())
		require.Equal(t, int32(keys), calls.Load())
		require.Equal(t, uint64(lookups), c.Stats().Hits+c.Stats().Misses)
	})

	t.Run("slow key does not block other keys", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New())
		release := make(chan struct{})
		started := make(chan struct{})

		slowDone := make(chan error, 1)
		go func() {
			_, err := c.Get(context.Background(), "slow", func(context.Context) (string, error) {
				close(started)
				<-release
				return "slow", nil
			})
			slowDone <- err
		}()
		<-started

		v, err := c.Get(context.Background(), "fast", value("fast"))
		require.NoError(t, err)
		require.Equal(t, "fast", v)

		close(release)
		require.NoError(t, <-slowDone)
	})
}

// --- Timeouts ---

func TestCache_Timeout(t *testing.T) {
	t.Parallel()

	t.Run("default timeout schedules eviction after 30 seconds", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec)

		_, err := c.Get(context.Background(), "k", value("v"))
		require.NoError(t, err)

		scheduled := rec.Scheduled()
		require.Len(t, scheduled, 1)
		require.Equal(t, 30*time.Second, scheduled[0].Delay)
		require.Zero(t, rec.Submitted())
	})

	t.Run("resolver overrides default timeout", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec)

		_, err := c.GetWithTimeout(context.Background(), "k", value("v"), fixed("10 seconds"))
		require.NoError(t, err)

		scheduled := rec.Scheduled()
		require.Len(t, scheduled, 1)
		require.Equal(t, 10*time.Second, scheduled[0].Delay)
	})

	t.Run("configured default timeout", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec, cache.WithDefaultTimeout(duration.MustParse("2 minutes")))
		require.Equal(t, "2 minutes", c.DefaultTimeout().String())

		_, err := c.Get(context.Background(), "a", value("v"))
		require.NoError(t, err)

		require.NoError(t, c.SetDefaultTimeout(duration.MustParse("5 minutes")))
		_, err = c.Get(context.Background(), "b", value("v"))
		require.NoError(t, err)

		scheduled := rec.Scheduled()
		require.Len(t, scheduled, 2)
		require.Equal(t, 2*time.Minute, scheduled[0].Delay)
		require.Equal(t, 5*time.Minute, scheduled[1].Delay)
	})

	t.Run("zero timeout returns value without keeping it", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		var reasons []cache.Reason
		c := cache.New[string, string](rec, cache.WithEvictCallback(func(_ string, _ string, r cache.Reason) {
			reasons = append(reasons, r)
		}))
		ctx := context.Background()
		var calls atomic.Int32
		compute := func(context.Context) (string, error) {
			calls.Add(1)
			return "fresh", nil
		}

		v, err := c.GetWithTimeout(ctx, "k", compute, cache.FixedTimeout[string](duration.Zero))
		require.NoError(t, err)
		require.Equal(t, "fresh", v)

		require.Empty(t, rec.Scheduled())
		require.Equal(t, 1, rec.Submitted())
		require.Zero(t, c.Len())
		_, ok := c.Peek("k")
		require.False(t, ok)

		require.Equal(t, 1, rec.RunSubmitted())
		require.Equal(t, []cache.Reason{cache.ReasonNotStored}, reasons)

		_, err = c.GetWithTimeout(ctx, "k", compute, cache.FixedTimeout[string](duration.Zero))
		require.NoError(t, err)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("zero timeout recomputes before removal task runs", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, int](rec, cache.WithDefaultTimeout(duration.Zero))
		var calls atomic.Int32
		compute := func(context.Context) (int, error) {
			return int(calls.Add(1)), nil
		}

		v1, err := c.Get(context.Background(), "k", compute)
		require.NoError(t, err)
		v2, err := c.Get(context.Background(), "k", compute)
		require.NoError(t, err)

		require.Equal(t, 1, v1)
		require.Equal(t, 2, v2)
		require.Equal(t, 2, rec.Submitted())
		require.Equal(t, 2, rec.RunSubmitted())
		require.Zero(t, c.Len())
	})

	t.Run("unlimited timeout never touches the scheduler", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec)

		_, err := c.GetWithTimeout(context.Background(), "k", value("v"), cache.FixedTimeout[string](duration.Unlimited))
		require.NoError(t, err)

		require.Zero(t, rec.Interactions())
		v, ok := c.Peek("k")
		require.True(t, ok)
		require.Equal(t, "v", v)
	})

	t.Run("asynchronous resolver does not delay the value", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec)
		ttl := promise.New[duration.Duration]()

		v, err := c.GetWithTimeout(context.Background(), "k", value("v"),
			func(context.Context, string) *promise.Promise[duration.Duration] { return ttl })
		require.NoError(t, err)
		require.Equal(t, "v", v)
		require.Zero(t, rec.Interactions(), "nothing scheduled before the timeout is known")

		require.NoError(t, ttl.Resolve(duration.MustParse("10 seconds")))
		scheduled := rec.Scheduled()
		require.Len(t, scheduled, 1)
		require.Equal(t, 10*time.Second, scheduled[0].Delay)
	})

	t.Run("synchronous resolver function", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, int](rec)
		resolver := cache.TimeoutFunc(func(_ context.Context, v int) (duration.Duration, error) {
			return duration.New(int64(v), time.Minute)
		})

		_, err := c.GetWithTimeout(context.Background(), "k", value(3), resolver)
		require.NoError(t, err)
		require.Equal(t, 3*time.Minute, rec.Scheduled()[0].Delay)
	})

	t.Run("failing resolvers fall back to default timeout", func(t *testing.T) {
		t.Parallel()

		resolvers := map[string]cache.TimeoutResolver[string]{
			"rejected": func(context.Context, string) *promise.Promise[duration.Duration] {
				return promise.Rejected[duration.Duration](errors.New("no ttl"))
			},
			"nil promise": func(context.Context, string) *promise.Promise[duration.Duration] {
				return nil
			},
			"panic": func(context.Context, string) *promise.Promise[duration.Duration] {
				panic("resolver exploded")
			},
			"error func": cache.TimeoutFunc(func(context.Context, string) (duration.Duration, error) {
				return duration.Duration{}, errors.New("no ttl")
			}),
		}

		for name, resolver := range resolvers {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				rec := schedulertest.New()
				c := cache.New[string, string](rec)

				v, err := c.GetWithTimeout(context.Background(), "k", value("v"), resolver)
				require.NoError(t, err)
				require.Equal(t, "v", v)

				scheduled := rec.Scheduled()
				require.Len(t, scheduled, 1)
				require.Equal(t, 30*time.Second, scheduled[0].Delay)
			})
		}
	})
}

// --- Eviction ---

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	t.Run("fired timer removes entry", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		evicted := make(map[string]cache.Reason)
		c := cache.New[string, string](rec, cache.WithEvictCallback(func(k, _ string, r cache.Reason) {
			evicted[k] = r
		}))

		_, err := c.Get(context.Background(), "k", value("v"))
		require.NoError(t, err)
		require.Equal(t, 1, c.Len())

		require.Equal(t, 1, rec.FireAll())
		require.Zero(t, c.Len())
		require.Equal(t, cache.ReasonExpired, evicted["k"])
		require.Equal(t, uint64(1), c.Stats().Evictions)
	})

	t.Run("invalidate cancels timer and stale fire keeps new value", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, string](rec)
		ctx := context.Background()

		_, err := c.GetWithTimeout(ctx, "k", value("old"), fixed("10 seconds"))
		require.NoError(t, err)
		stale := rec.Scheduled()[0]

		require.True(t, c.Invalidate("k"))
		require.True(t, stale.Cancelled())
		require.False(t, c.Invalidate("k"), "already gone")

		v, err := c.GetWithTimeout(ctx, "k", value("new"), fixed("10 seconds"))
		require.NoError(t, err)
		require.Equal(t, "new", v)

		stale.Run()

		v, ok := c.Peek("k")
		require.True(t, ok, "stale timer must not remove the new entry")
		require.Equal(t, "new", v)

		fresh := rec.Scheduled()[1]
		require.False(t, fresh.Cancelled())
		require.True(t, fresh.Fire())
		_, ok = c.Peek("k")
		require.False(t, ok)
	})

	t.Run("invalidate ignores computation in flight", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New())
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan string, 1)

		go func() {
			v, _ := c.Get(context.Background(), "k", func(context.Context) (string, error) {
				close(started)
				<-release
				return "v", nil
			})
			done <- v
		}()
		<-started

		require.False(t, c.Invalidate("k"))
		close(release)
		require.Equal(t, "v", <-done)

		_, ok := c.Peek("k")
		require.True(t, ok)
	})

	t.Run("clear removes resolved entries", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[int, int](rec)
		for i := range 5 {
			_, err := c.Get(context.Background(), i, value(i))
			require.NoError(t, err)
		}

		require.Equal(t, 5, c.Clear())
		require.Zero(t, c.Len())
		for _, e := range rec.Scheduled() {
			require.True(t, e.Cancelled())
		}
	})

	t.Run("rejected scheduling keeps value without expiry", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		rec.Reject(scheduler.ErrRejected)
		c := cache.New[string, string](rec)

		v, err := c.Get(context.Background(), "k", value("v"))
		require.NoError(t, err)
		require.Equal(t, "v", v)
		require.Equal(t, 1, c.Len())
		require.Zero(t, rec.Interactions())
	})

	t.Run("rejected submit removes zero-timeout entry inline", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		rec.Reject(scheduler.ErrRejected)
		var reason cache.Reason
		c := cache.New[string, string](rec,
			cache.WithDefaultTimeout(duration.Zero),
			cache.WithEvictCallback(func(_, _ string, r cache.Reason) { reason = r }),
		)

		_, err := c.Get(context.Background(), "k", value("v"))
		require.NoError(t, err)
		require.Zero(t, c.Len())
		require.Equal(t, cache.ReasonNotStored, reason)
	})

	t.Run("panicking evict callback is contained", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New(),
			cache.WithEvictCallback(func(string, string, cache.Reason) { panic("callback") }),
		)
		_, err := c.Get(context.Background(), "k", value("v"))
		require.NoError(t, err)

		require.NotPanics(t, func() { require.True(t, c.Invalidate("k")) })
	})

	t.Run("mismatched evict callback panics", func(t *testing.T) {
		t.Parallel()

		require.Panics(t, func() {
			cache.New[string, int](schedulertest.New(),
				cache.WithEvictCallback(func(string, string, cache.Reason) {}),
			)
		})
	})
}

// --- Failures ---

func TestCache_Failure(t *testing.T) {
	t.Parallel()

	t.Run("error is not cached", func(t *testing.T) {
		t.Parallel()

		rec := schedulertest.New()
		c := cache.New[string, int](rec)
		boom := errors.New("boom")

		_, err := c.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
		require.Zero(t, c.Len())
		require.Zero(t, rec.Interactions())

		v, err := c.Get(context.Background(), "k", value(7))
		require.NoError(t, err)
		require.Equal(t, 7, v)
		require.Equal(t, uint64(1), c.Stats().Failures)
	})

	t.Run("error reaches every waiter", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](schedulertest.New())
		boom := errors.New("boom")
		release := make(chan struct{})
		var calls atomic.Int32
		compute := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 0, boom
		}

		const waiters = 8
		errs := make(chan error, waiters)
		var wg sync.WaitGroup
		for range waiters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.Get(context.Background(), "k", compute)
				errs <- err
			}()
		}

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.ErrorIs(t, err, boom)
		}
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("failing key does not affect other keys", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New())
		started := make(chan struct{})
		release := make(chan struct{})
		failed := make(chan error, 1)

		go func() {
			_, err := c.Get(context.Background(), "a", func(context.Context) (string, error) {
				close(started)
				<-release
				return "", errors.New("a failed")
			})
			failed <- err
		}()
		<-started

		v, err := c.Get(context.Background(), "b", value("b"))
		require.NoError(t, err)
		require.Equal(t, "b", v)

		close(release)
		require.Error(t, <-failed)

		v, ok := c.Peek("b")
		require.True(t, ok)
		require.Equal(t, "b", v)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](schedulertest.New())
		_, err := c.Get(context.Background(), "k", func(context.Context) (int, error) { panic("kaboom") })
		require.ErrorIs(t, err, cache.ErrComputationPanic)
		require.Contains(t, err.Error(), "kaboom")
		require.Zero(t, c.Len())

		v, err := c.Get(context.Background(), "k", value(1))
		require.NoError(t, err)
		require.Equal(t, 1, v)
	})
}

// --- Context ---

func TestCache_Context(t *testing.T) {
	t.Parallel()

	t.Run("waiter gives up without disturbing computation", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New())
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan string, 1)

		go func() {
			v, _ := c.Get(context.Background(), "k", func(context.Context) (string, error) {
				close(started)
				<-release
				return "v", nil
			})
			done <- v
		}()
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := c.Get(ctx, "k", value("other"))
		require.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		require.Equal(t, "v", <-done)
		v, ok := c.Peek("k")
		require.True(t, ok)
		require.Equal(t, "v", v)
	})

	t.Run("deadline error from compute reaches every waiter", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, int](schedulertest.New())
		release := make(chan struct{})
		var calls, arrived atomic.Int32
		compute := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 0, fmt.Errorf("upstream: %w", context.DeadlineExceeded)
		}

		const waiters = 8
		errs := make(chan error, waiters)
		var wg sync.WaitGroup
		for range waiters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				arrived.Add(1)
				_, err := c.Get(context.Background(), "k", compute)
				errs <- err
			}()
		}

		require.Eventually(t, func() bool { return calls.Load() == 1 && arrived.Load() == waiters }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
		close(errs)

		n := 0
		for err := range errs {
			require.ErrorIs(t, err, context.DeadlineExceeded)
			n++
		}
		require.Equal(t, waiters, n)
		require.Equal(t, int32(1), calls.Load())
		require.Equal(t, uint64(1), c.Stats().Computations)
	})

	t.Run("waiter retries when computing caller is cancelled", func(t *testing.T) {
		t.Parallel()

		c := cache.New[string, string](schedulertest.New())
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		first := make(chan error, 1)

		go func() {
			_, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
				close(started)
				<-ctx.Done()
				return "", ctx.Err()
			})
			first <- err
		}()
		<-started

		second := make(chan string, 1)
		go func() {
			v, _ := c.Get(context.Background(), "k", value("second"))
			second <- v
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		require.ErrorIs(t, <-first, context.Canceled)
		require.Equal(t, "second", <-second)
	})
}
