package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/promise"
)

// CacheStatusHeader reports whether a response came from the cache.
const CacheStatusHeader = "X-Cache"

// DefaultMaxBodySize is the largest body the cache filter stores.
const DefaultMaxBodySize = 1 << 20

// Snapshot is a buffered upstream response.
type Snapshot struct {
	Status   int
	Header   http.Header
	Body     []byte
	Stored   time.Time
	tooLarge bool
	// vary holds the request header values named by the response's Vary
	// header, as sent by the request that produced the snapshot.
	vary map[string]string
}

// matches reports whether req selects the same representation as the
// request the snapshot was stored for.
func (s *Snapshot) matches(req *http.Request) bool {
	for name, v := range s.vary {
		if name == "*" {
			return false
		}
		if strings.Join(req.Header.Values(name), ", ") != v {
			return false
		}
	}
	return true
}

// Response returns a fresh response carrying a copy of the snapshot.
func (s *Snapshot) Response() *gateway.Response {
	r := gateway.NewResponse(s.Status)
	r.Header = s.Header.Clone()
	r.SetBody(s.Body)
	return r
}

// cacheableStatus lists statuses cacheable by default (RFC 9110, 15.1).
var cacheableStatus = map[int]bool{
	http.StatusOK:                   true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusMultipleChoices:      true,
	http.StatusMovedPermanently:     true,
	http.StatusNotFound:             true,
	http.StatusMethodNotAllowed:     true,
	http.StatusGone:                 true,
	http.StatusPermanentRedirect:    true,
	http.StatusNotImplemented:       true,
}

// CacheOption configures a Cache filter.
type CacheOption func(*Cache)

// WithMaxBodySize sets the largest body that is stored. Larger responses
// are passed through and not cached.
func WithMaxBodySize(n int64) CacheOption {
	return func(f *Cache) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(f *Cache) {
		if l != nil {
			f.logger = l
		}
	}
}

// Cache memoizes GET and HEAD responses keyed by method, host, URI and
// the authenticated subject set by the Token filter. Concurrent requests
// for the same resource share one upstream call. A stored response is
// served only to requests matching the header values named by its Vary
// header; other requests go upstream uncached. The lifetime of a stored
// response follows its Cache-Control header:
//
//   - no-store, no-cache, private or Vary: *: not stored
//   - immutable: kept until invalidated
//   - s-maxage or max-age=N: kept N seconds (0 means not stored)
//   - otherwise: the store's default timeout
//
// Responses with a status that is not cacheable by default, and bodies
// over the size limit, are never stored.
type Cache struct {
	store   *cache.Cache[string, *Snapshot]
	maxBody int64
	logger  *slog.Logger
}

// NewCache returns a cache filter backed by store.
func NewCache(store *cache.Cache[string, *Snapshot], opts ...CacheOption) *Cache {
	f := &Cache{
		store:   store,
		maxBody: DefaultMaxBodySize,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Cache) Filter(ctx context.Context, req *http.Request, next gateway.Handler) *promise.Promise[*gateway.Response] {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return next.Handle(ctx, req)
	}
	if parseCacheControl(req.Header).has("no-store") {
		return next.Handle(ctx, req)
	}

	key := CacheKey(req)
	return promise.Go(ctx, func(ctx context.Context) (*gateway.Response, error) {
		miss := false
		snap, err := f.store.GetWithTimeout(ctx, key, func(ctx context.Context) (*Snapshot, error) {
			miss = true
			return f.fetch(ctx, req, next)
		}, f.lifetime)
		if err != nil {
			return nil, err
		}

		if !miss && !snap.matches(req) {
			resp, err := gateway.BlockingCall(ctx, next, req)
			if err != nil {
				return nil, err
			}
			resp.Header.Set(CacheStatusHeader, "BYPASS")
			return resp, nil
		}

		resp := snap.Response()
		if miss {
			resp.Header.Set(CacheStatusHeader, "MISS")
		} else {
			resp.Header.Set(CacheStatusHeader, "HIT")
			resp.Header.Set("Age", fmt.Sprint(int64(time.Since(snap.Stored).Seconds())))
		}
		return resp, nil
	})
}

// CacheKey identifies the cached representation of req. Responses to
// different authenticated subjects never share a key.
func CacheKey(req *http.Request) string {
	key := req.Method + " " + req.Host + req.URL.RequestURI()
	if subject := req.Header.Get(SubjectHeader); subject != "" {
		key += " subject=" + subject
	}
	return key
}

func (f *Cache) fetch(ctx context.Context, req *http.Request, next gateway.Handler) (*Snapshot, error) {
	resp, err := gateway.BlockingCall(ctx, next, req)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	snap := &Snapshot{
		Status: resp.Status,
		Header: resp.Header.Clone(),
		Stored: time.Now(),
	}
	if snap.Header == nil {
		snap.Header = make(http.Header)
	}
	for _, name := range parseVary(snap.Header) {
		if snap.vary == nil {
			snap.vary = make(map[string]string)
		}
		snap.vary[name] = strings.Join(req.Header.Values(name), ", ")
	}
	if resp.Body != nil {
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("read upstream body: %w", err)
		}
		if int64(len(body)) > f.maxBody {
			// The truncated body is not served; read the rest for this caller.
			rest, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read upstream body: %w", err)
			}
			body = append(body, rest...)
			snap.tooLarge = true
		}
		snap.Body = body
	}
	if resp.Cause != nil {
		f.logger.WarnContext(ctx, "upstream error response", slog.Int("status", resp.Status), slog.Any("error", resp.Cause))
	}
	return snap, nil
}

// lifetime is the timeout resolver for snapshots.
func (f *Cache) lifetime(_ context.Context, s *Snapshot) *promise.Promise[duration.Duration] {
	return promise.Resolved(f.ttl(s))
}

func (f *Cache) ttl(s *Snapshot) duration.Duration {
	if s.tooLarge || !cacheableStatus[s.Status] {
		return duration.Zero
	}
	if _, ok := s.vary["*"]; ok {
		return duration.Zero
	}

	cc := parseCacheControl(s.Header)
	switch {
	case cc.has("no-store"), cc.has("no-cache"), cc.has("private"):
		return duration.Zero
	case cc.has("immutable"):
		return duration.Unlimited
	}

	for _, name := range []string{"s-maxage", "max-age"} {
		if n, ok := cc.seconds(name); ok {
			d, err := duration.New(n, time.Second)
			if err != nil {
				// Too large to represent.
				return duration.Unlimited
			}
			return d
		}
	}
	return f.store.DefaultTimeout()
}
