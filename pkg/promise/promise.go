package promise

import (
	"context"
	"fmt"
	"sync"
)

// Promise is the eventual outcome of an asynchronous operation: a value
// or an error, settled exactly once.
//
// Listeners registered with OnSettle run one at a time, in registration
// order. A listener registered while earlier listeners are still running
// is queued behind them instead of running concurrently.
type Promise[T any] struct {
	done  chan struct{}
	value T
	err   error

	mu       sync.Mutex
	queue    []func(T, error)
	settled  bool
	draining bool
}

// New returns an unsettled promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolved returns a promise already settled with v.
func Resolved[T any](v T) *Promise[T] {
	p := New[T]()
	_ = p.Resolve(v)
	return p
}

// Rejected returns a promise already settled with err.
func Rejected[T any](err error) *Promise[T] {
	p := New[T]()
	_ = p.Reject(err)
	return p
}

// Go runs fn on a new goroutine and returns a promise of its outcome.
// A panic in fn rejects the promise with ErrPanicked.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Promise[T] {
	p := New[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = p.Reject(fmt.Errorf("%w: %v", ErrPanicked, r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			_ = p.Reject(err)
			return
		}
		_ = p.Resolve(v)
	}()
	return p
}

// Resolve settles the promise with v.
// It returns ErrAlreadySettled if the promise was settled before.
func (p *Promise[T]) Resolve(v T) error {
	return p.settle(v, nil)
}

// Reject settles the promise with err.
// A nil err is replaced by ErrNilRejection so waiters never observe a
// rejected promise without a cause.
func (p *Promise[T]) Reject(err error) error {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) error {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return ErrAlreadySettled
	}
	p.value, p.err = v, err
	p.settled = true
	p.draining = true
	p.mu.Unlock()

	close(p.done)
	p.drain()
	return nil
}

// OnSettle registers fn to run once the promise is settled.
// If the promise is already settled and no listener is running, fn runs
// immediately on the calling goroutine.
// Listeners must not block on the promise they are attached to.
func (p *Promise[T]) OnSettle(fn func(v T, err error)) *Promise[T] {
	p.mu.Lock()
	p.queue = append(p.queue, fn)
	if !p.settled || p.draining {
		p.mu.Unlock()
		return p
	}
	p.draining = true
	p.mu.Unlock()

	p.drain()
	return p
}

// OnResult registers fn to run if the promise resolves successfully.
func (p *Promise[T]) OnResult(fn func(v T)) *Promise[T] {
	return p.OnSettle(func(v T, err error) {
		if err == nil {
			fn(v)
		}
	})
}

// OnError registers fn to run if the promise is rejected.
func (p *Promise[T]) OnError(fn func(err error)) *Promise[T] {
	return p.OnSettle(func(_ T, err error) {
		if err != nil {
			fn(err)
		}
	})
}

func (p *Promise[T]) drain() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			p.mu.Unlock()
			return
		}
		fn := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		fn(p.value, p.err)
	}
}

// Done returns a channel closed when the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// IsSettled reports whether the promise holds an outcome.
func (p *Promise[T]) IsSettled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Get blocks until the promise settles or ctx is done.
// It returns as soon as the outcome is known, possibly before listeners
// have run; use Await when listener side effects must be visible.
func (p *Promise[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Await blocks until the promise settles and every listener registered
// before the call has returned.
//
// Use it when a listener owns a resource the caller touches next, such as
// a response body a listener is still reading.
func Await[T any](ctx context.Context, p *Promise[T]) (T, error) {
	latch := make(chan struct{})
	p.OnSettle(func(T, error) { close(latch) })

	select {
	case <-latch:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a promise of fn applied to p's value.
// A rejection of p is passed through unchanged; fn runs as a listener.
func Then[T, U any](p *Promise[T], fn func(T) (U, error)) *Promise[U] {
	next := New[U]()
	p.OnSettle(func(v T, err error) {
		if err != nil {
			_ = next.Reject(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			_ = next.Reject(err)
			return
		}
		_ = next.Resolve(u)
	})
	return next
}
