package gateway

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// Handler produces a response for a request. The response may be settled
// on another goroutine.
type Handler interface {
	Handle(ctx context.Context, req *http.Request) *promise.Promise[*Response]
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *http.Request) *promise.Promise[*Response]

func (f HandlerFunc) Handle(ctx context.Context, req *http.Request) *promise.Promise[*Response] {
	return f(ctx, req)
}

// Filter processes a request on its way to next and may alter the request,
// the response, or answer without calling next.
type Filter interface {
	Filter(ctx context.Context, req *http.Request, next Handler) *promise.Promise[*Response]
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(ctx context.Context, req *http.Request, next Handler) *promise.Promise[*Response]

func (f FilterFunc) Filter(ctx context.Context, req *http.Request, next Handler) *promise.Promise[*Response] {
	return f(ctx, req, next)
}

// Chain returns a handler that passes requests through filters and then to
// h. The first filter is the outermost.
func Chain(h Handler, filters ...Filter) Handler {
	for i := len(filters) - 1; i >= 0; i-- {
		h = &link{filter: filters[i], next: h}
	}
	return h
}

type link struct {
	filter Filter
	next   Handler
}

func (l *link) Handle(ctx context.Context, req *http.Request) *promise.Promise[*Response] {
	return l.filter.Filter(ctx, req, l.next)
}

// Static returns a handler that answers every request with a copy of the
// given status, header and body.
func Static(status int, header http.Header, body []byte) Handler {
	return HandlerFunc(func(context.Context, *http.Request) *promise.Promise[*Response] {
		r := NewResponse(status)
		for k, v := range header {
			r.Header[k] = append([]string(nil), v...)
		}
		if body != nil {
			r.SetBody(body)
		}
		return promise.Resolved(r)
	})
}

// Respond wraps an already known response in a settled promise.
func Respond(r *Response) *promise.Promise[*Response] {
	return promise.Resolved(r)
}
