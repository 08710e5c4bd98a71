package filter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/promise"
	"github.com/dmitrymomot/gatecache/pkg/token"
)

// SubjectHeader carries the authenticated subject to the upstream.
const SubjectHeader = "X-Auth-Subject"

// TokenOption configures a Token filter.
type TokenOption func(*Token)

// WithRealm sets the realm announced in WWW-Authenticate.
func WithRealm(realm string) TokenOption {
	return func(f *Token) {
		f.realm = realm
	}
}

// WithScope requires every token to grant scope.
func WithScope(scope string) TokenOption {
	return func(f *Token) {
		f.scope = scope
	}
}

// WithMaxLifetime caps how long a validation result is reused, so that
// revoked tokens stop working within this period. Default: 5 minutes.
func WithMaxLifetime(d time.Duration) TokenOption {
	return func(f *Token) {
		if d > 0 {
			f.maxLifetime = d
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l *slog.Logger) TokenOption {
	return func(f *Token) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTokenClock overrides the time source.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(f *Token) {
		if now != nil {
			f.now = now
		}
	}
}

// Token authenticates requests with a bearer token. Validation results are
// memoized until the token expires, capped by the maximum lifetime.
//
// Requests without a valid token get 401, tokens lacking the required
// scope get 403. On success the subject is passed upstream in
// X-Auth-Subject and the Authorization header is removed.
type Token struct {
	validator   token.Validator
	store       *cache.Cache[string, token.Info]
	realm       string
	scope       string
	maxLifetime time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewToken returns a token filter validating with v and memoizing in store.
func NewToken(v token.Validator, store *cache.Cache[string, token.Info], opts ...TokenOption) *Token {
	f := &Token{
		validator:   v,
		store:       store,
		realm:       "gateway",
		maxLifetime: 5 * time.Minute,
		logger:      logger.NewNope(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Token) Filter(ctx context.Context, req *http.Request, next gateway.Handler) *promise.Promise[*gateway.Response] {
	raw, ok := bearer(req)
	if !ok {
		return gateway.Respond(f.unauthorized())
	}

	return promise.Go(ctx, func(ctx context.Context) (*gateway.Response, error) {
		info, err := f.store.GetWithTimeout(ctx, raw, func(ctx context.Context) (token.Info, error) {
			return f.validator.Validate(ctx, raw)
		}, f.lifetime)

		switch {
		case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrEmptyToken):
			f.logger.DebugContext(ctx, "token rejected", slog.Any("error", err))
			return f.unauthorized(), nil
		case err != nil:
			return gateway.NewInternalServerError(err), nil
		}

		if info.Expired(f.now()) {
			f.store.Invalidate(raw)
			return f.unauthorized(), nil
		}
		if f.scope != "" && !info.HasScope(f.scope) {
			return gateway.NewResponse(http.StatusForbidden), nil
		}

		req.Header.Del("Authorization")
		req.Header.Set(SubjectHeader, info.Subject)
		return gateway.BlockingCall(ctx, next, req)
	})
}

// lifetime resolves the cache timeout of a validation result from the
// token expiry. It runs off the request path.
func (f *Token) lifetime(ctx context.Context, info token.Info) *promise.Promise[duration.Duration] {
	return promise.Go(ctx, func(context.Context) (duration.Duration, error) {
		ttl := f.maxLifetime
		if !info.ExpiresAt.IsZero() {
			ttl = min(ttl, info.ExpiresAt.Sub(f.now()).Truncate(time.Second))
		}
		if ttl <= 0 {
			return duration.Zero, nil
		}
		return duration.FromStd(ttl)
	})
}

func (f *Token) unauthorized() *gateway.Response {
	r := gateway.NewResponse(http.StatusUnauthorized)
	r.Header.Set("WWW-Authenticate", `Bearer realm="`+f.realm+`"`)
	return r
}

func bearer(req *http.Request) (string, bool) {
	scheme, raw, ok := strings.Cut(req.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
