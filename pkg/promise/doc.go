// Package promise provides a settle-once asynchronous result with ordered
// completion listeners.
//
// A [Promise] is settled exactly once with a value or an error. Code that
// produces the result calls [Promise.Resolve] or [Promise.Reject]; code that
// consumes it either blocks ([Promise.Get], [Await]) or registers listeners
// ([Promise.OnSettle], [Promise.OnResult], [Promise.OnError], [Then]).
//
//	p := promise.Go(ctx, func(ctx context.Context) (duration.Duration, error) {
//	    return lookupLifetime(ctx, key)
//	})
//	p.OnResult(func(d duration.Duration) { schedule(d) })
//
// # Listener ordering
//
// Listeners run sequentially in registration order, on the goroutine that
// settled the promise (or on the registering goroutine when the promise was
// already settled and idle). [Promise.Get] returns as soon as the value is
// known. [Await] additionally waits until all listeners registered before it
// have returned, which matters when a listener is still using a resource,
// for example a response body, that the blocked caller is about to read.
package promise
