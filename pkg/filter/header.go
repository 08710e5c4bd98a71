package filter

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// Header sets a header on the request going in and on the response
// coming out.
type Header struct {
	Name  string
	Value string
}

func (f Header) Filter(ctx context.Context, req *http.Request, next gateway.Handler) *promise.Promise[*gateway.Response] {
	req.Header.Set(f.Name, f.Value)

	return promise.Then(next.Handle(ctx, req), func(resp *gateway.Response) (*gateway.Response, error) {
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}
		resp.Header.Set(f.Name, f.Value)
		return resp, nil
	})
}
