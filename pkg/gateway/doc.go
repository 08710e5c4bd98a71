// Package gateway defines the request pipeline of the gateway: handlers
// that produce responses asynchronously and filters that wrap them.
//
// A [Handler] returns a promise of a [Response]. A [Filter] sits in front
// of a handler and can rewrite the request, answer on its own, or attach
// work to the response promise:
//
//	greet := gateway.FilterFunc(func(ctx context.Context, req *http.Request, next gateway.Handler) *promise.Promise[*gateway.Response] {
//	    req.Header.Set("X-Greeting", "hello")
//	    return promise.Then(next.Handle(ctx, req), func(r *gateway.Response) (*gateway.Response, error) {
//	        r.Header.Set("X-Greeting", "hello")
//	        return r, nil
//	    })
//	})
//
//	h := gateway.Chain(upstream, greet, auth)
//
// # Blocking Calls
//
// [BlockingCall] waits for the response and for every listener attached
// to its promise. Listeners run after the value is available, so a caller
// that only waited for the value could touch the response body while a
// listener is still consuming it.
//
// # HTTP
//
// [NewHTTPHandler] serves a Handler over net/http. It assigns a request id
// (X-Request-ID, generated with google/uuid when absent), makes it
// available to logger.RequestIDExtractor and maps handler errors to 500.
package gateway
