package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatecache/pkg/logger"
)

// DefaultRequestIDHeaders are checked, in order, for an id assigned upstream.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID"}

type httpOptions struct {
	logger         *slog.Logger
	headers        []string
	generator      func() string
	responseHeader string
}

// HTTPOption configures the net/http adapter.
type HTTPOption func(*httpOptions)

// WithHTTPLogger sets the logger for failed requests.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(o *httpOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRequestIDHeaders sets the headers checked for an existing request id.
func WithRequestIDHeaders(headers ...string) HTTPOption {
	return func(o *httpOptions) {
		o.headers = headers
	}
}

// WithRequestIDGenerator sets the function generating request ids.
// Default: uuid.NewString.
func WithRequestIDGenerator(gen func() string) HTTPOption {
	return func(o *httpOptions) {
		if gen != nil {
			o.generator = gen
		}
	}
}

// NewHTTPHandler serves h over net/http.
//
// Each request gets an id, taken from the first non-empty request id
// header or generated, stored in the context for logger.RequestIDExtractor
// and echoed in the X-Request-ID response header. A handler error becomes
// an empty 500 response.
func NewHTTPHandler(h Handler, opts ...HTTPOption) http.Handler {
	o := &httpOptions{
		logger:         logger.NewNope(),
		headers:        DefaultRequestIDHeaders,
		generator:      uuid.NewString,
		responseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(o)
	}
	return &httpHandler{handler: h, opts: o}
}

type httpHandler struct {
	handler Handler
	opts    *httpOptions
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := h.requestID(r)
	ctx := logger.WithRequestID(r.Context(), id)
	r = r.WithContext(ctx)
	w.Header().Set(h.opts.responseHeader, id)

	resp, err := BlockingCall(ctx, h.handler, r)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			h.opts.logger.DebugContext(ctx, "request abandoned by client", slog.Any("error", err))
			return
		}
		resp = NewInternalServerError(err)
	}
	defer resp.Close()

	if resp.Cause != nil {
		h.opts.logger.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", resp.Status),
			slog.Any("error", resp.Cause),
		)
	}

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.Body == nil || r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.opts.logger.DebugContext(ctx, "response body copy interrupted", slog.Any("error", err))
	}
}

func (h *httpHandler) requestID(r *http.Request) string {
	for _, name := range h.opts.headers {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return h.opts.generator()
}
