package gateway

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// BlockingCall runs h and waits for the response.
//
// It returns only after every listener attached to the response promise
// during handling has finished. A listener may still be working on the
// response, for example copying its body into a cache, after the value is
// available; returning earlier would let the caller read the body
// concurrently with it.
func BlockingCall(ctx context.Context, h Handler, req *http.Request) (*Response, error) {
	p := h.Handle(ctx, req)
	if p == nil {
		return nil, ErrNilPromise
	}

	resp, err := promise.Await(ctx, p)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}
	return resp, nil
}
