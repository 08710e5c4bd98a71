package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// hopHeaders are meaningful for a single connection only.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type options struct {
	timeout   time.Duration
	headers   map[string]string
	logger    *slog.Logger
	transport http.RoundTripper
}

// Option configures a Handler.
type Option func(*options)

// WithTimeout bounds each upstream exchange, including reading the
// response headers. Default: 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeaders sets headers added to every upstream request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.transport = rt
		}
	}
}

// Handler forwards requests to an upstream server. Every exchange runs on
// its own goroutine; Handle returns at once with a pending promise.
type Handler struct {
	client *resty.Client
	logger *slog.Logger
}

// New returns a handler forwarding to baseURL, which must be an absolute
// http or https URL.
func New(baseURL string, opts ...Option) (*Handler, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	o := &options{timeout: 30 * time.Second, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(o)
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout)
	// Redirects are the client's business.
	c.GetClient().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if len(o.headers) > 0 {
		c.SetHeaders(o.headers)
	}
	if o.transport != nil {
		c.SetTransport(o.transport)
	}

	return &Handler{client: c, logger: o.logger}, nil
}

// Handle forwards req. Transport failures resolve to a 502 response with
// the failure as its cause; the promise is never rejected.
func (h *Handler) Handle(ctx context.Context, req *http.Request) *promise.Promise[*gateway.Response] {
	return promise.Go(ctx, func(ctx context.Context) (*gateway.Response, error) {
		return h.forward(ctx, req), nil
	})
}

func (h *Handler) forward(ctx context.Context, req *http.Request) *gateway.Response {
	r := h.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryString(req.URL.RawQuery)

	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	for _, k := range hopHeaders {
		r.Header.Del(k)
	}
	if req.Body != nil && req.Body != http.NoBody {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.URL.EscapedPath())
	if err != nil {
		h.logger.WarnContext(ctx, "upstream request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Any("error", err),
		)
		out := gateway.NewResponse(http.StatusBadGateway)
		out.Cause = errors.Join(ErrUpstream, err)
		return out
	}

	h.logger.DebugContext(ctx, "upstream responded",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("elapsed", time.Since(start)),
	)

	out := gateway.NewResponse(resp.StatusCode())
	for k, vs := range resp.Header() {
		out.Header[k] = append([]string(nil), vs...)
	}
	for _, k := range hopHeaders {
		out.Header.Del(k)
	}
	out.Body = resp.RawBody()
	return out
}

var _ gateway.Handler = (*Handler)(nil)
