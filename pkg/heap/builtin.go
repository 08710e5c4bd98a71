package heap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/filter"
	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/health"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/scheduler"
	"github.com/dmitrymomot/gatecache/pkg/token"
	"github.com/dmitrymomot/gatecache/pkg/upstream"
)

// Built-in object types.
const (
	TypeHeaderFilter  = "HeaderFilter"
	TypeCacheFilter   = "CacheFilter"
	TypeTokenFilter   = "TokenFilter"
	TypeClientHandler = "ClientHandler"
	TypeStaticHandler = "StaticHandler"
)

// Deps are the shared services built-in objects draw on.
type Deps struct {
	// Scheduler evicts expired entries of every cache the heap creates.
	Scheduler scheduler.Scheduler
	// Logger defaults to a no-op logger.
	Logger *slog.Logger
	// Validator is required by TokenFilter objects only.
	Validator token.Validator
	// CacheOptions apply to every cache before per-object settings.
	CacheOptions []cache.Option
	// Health, when set, exposes the statistics of every cache by object name.
	Health *health.Registry
}

// DefaultRegistry returns a registry holding the built-in types.
func DefaultRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger.NewNope()
	}

	r := NewRegistry()
	r.RegisterFilter(TypeHeaderFilter, headerFilter)
	r.RegisterFilter(TypeCacheFilter, deps.cacheFilter)
	r.RegisterFilter(TypeTokenFilter, deps.tokenFilter)
	r.RegisterHandler(TypeClientHandler, deps.clientHandler)
	r.RegisterHandler(TypeStaticHandler, staticHandler)
	return r
}

func headerFilter(obj Object) (gateway.Filter, error) {
	var cfg struct {
		Name  string `yaml:"name"`
		Value string `yaml:"value"`
	}
	if err := obj.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := obj.Required("name", cfg.Name); err != nil {
		return nil, err
	}
	return filter.Header{Name: cfg.Name, Value: cfg.Value}, nil
}

func (d Deps) cacheFilter(obj Object) (gateway.Filter, error) {
	var cfg struct {
		DefaultTimeout *duration.Duration `yaml:"defaultTimeout"`
		MaxBodySize    int64              `yaml:"maxBodySize"`
	}
	if err := obj.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize < 0 {
		return nil, fmt.Errorf("%w: %s: maxBodySize must not be negative", ErrInvalidConfig, obj)
	}

	store, err := newStore[*filter.Snapshot](d, obj, cfg.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	opts := []filter.CacheOption{filter.WithCacheLogger(d.objectLogger(obj))}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, filter.WithMaxBodySize(cfg.MaxBodySize))
	}
	return filter.NewCache(store, opts...), nil
}

func (d Deps) tokenFilter(obj Object) (gateway.Filter, error) {
	if d.Validator == nil {
		return nil, fmt.Errorf("%w: %s: token validator", ErrMissingDep, obj)
	}

	var cfg struct {
		Realm       string             `yaml:"realm"`
		Scope       string             `yaml:"scope"`
		MaxLifetime *duration.Duration `yaml:"maxLifetime"`
	}
	if err := obj.Decode(&cfg); err != nil {
		return nil, err
	}

	opts := []filter.TokenOption{
		filter.WithScope(cfg.Scope),
		filter.WithTokenLogger(d.objectLogger(obj)),
	}
	if cfg.Realm != "" {
		opts = append(opts, filter.WithRealm(cfg.Realm))
	}
	if cfg.MaxLifetime != nil {
		if cfg.MaxLifetime.IsZero() || cfg.MaxLifetime.IsUnlimited() {
			return nil, fmt.Errorf("%w: %s: maxLifetime must be finite and positive", ErrInvalidConfig, obj)
		}
		opts = append(opts, filter.WithMaxLifetime(cfg.MaxLifetime.Std()))
	}

	store, err := newStore[token.Info](d, obj, nil)
	if err != nil {
		return nil, err
	}
	return filter.NewToken(d.Validator, store, opts...), nil
}

func (d Deps) clientHandler(obj Object) (gateway.Handler, error) {
	var cfg struct {
		BaseURL string             `yaml:"baseURL"`
		Timeout *duration.Duration `yaml:"timeout"`
		Headers map[string]string  `yaml:"headers"`
	}
	if err := obj.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := obj.Required("baseURL", cfg.BaseURL); err != nil {
		return nil, err
	}

	opts := []upstream.Option{
		upstream.WithLogger(d.objectLogger(obj)),
		upstream.WithHeaders(cfg.Headers),
	}
	if cfg.Timeout != nil && !cfg.Timeout.IsZero() && !cfg.Timeout.IsUnlimited() {
		opts = append(opts, upstream.WithTimeout(cfg.Timeout.Std()))
	}

	h, err := upstream.New(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, obj, err)
	}
	return h, nil
}

func staticHandler(obj Object) (gateway.Handler, error) {
	var cfg struct {
		Status  int               `yaml:"status"`
		Headers map[string]string `yaml:"headers"`
		Body    string            `yaml:"body"`
	}
	if err := obj.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Status == 0 {
		cfg.Status = http.StatusOK
	}
	if cfg.Status < 100 || cfg.Status > 599 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrInvalidConfig, obj, cfg.Status)
	}

	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return gateway.Static(cfg.Status, header, []byte(cfg.Body)), nil
}

// newStore creates the cache behind a caching object and registers its
// statistics under the object's name.
func newStore[V any](d Deps, obj Object, timeout *duration.Duration) (*cache.Cache[string, V], error) {
	if d.Scheduler == nil {
		return nil, fmt.Errorf("%w: %s: scheduler", ErrMissingDep, obj)
	}

	opts := append([]cache.Option{}, d.CacheOptions...)
	opts = append(opts, cache.WithLogger(d.objectLogger(obj)))
	if timeout != nil {
		opts = append(opts, cache.WithDefaultTimeout(*timeout))
	}

	store := cache.New[string, V](d.Scheduler, opts...)
	if d.Health != nil {
		d.Health.RegisterCache(obj.key(), store.Stats)
	}
	return store, nil
}

func (d Deps) objectLogger(obj Object) *slog.Logger {
	return d.Logger.With(slog.String("object", obj.key()))
}

func (o Object) key() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Type
}
