package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/logger"
)

// Config is the `redis` section of the gateway configuration.
// Zero fields take the defaults listed on each field.
type Config struct {
	// URL uses the redis:// or rediss:// (TLS) scheme. Required.
	URL string `yaml:"url"`
	// PoolSize is the maximum number of connections. Default: 10.
	PoolSize int `yaml:"pool_size"`
	// MinIdleConns is the number of idle connections kept open. Default: 2.
	MinIdleConns int `yaml:"min_idle_conns"`
	// DialTimeout bounds connection setup. Default: 5 seconds.
	DialTimeout duration.Duration `yaml:"dial_timeout"`
	// ReadTimeout bounds a single read. Default: 1 second.
	ReadTimeout duration.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds a single write. Default: 1 second.
	WriteTimeout duration.Duration `yaml:"write_timeout"`
	// RetryAttempts is the number of pings tried before Open gives up. Default: 3.
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryInterval is the first backoff step; it doubles after each
	// failed attempt. Default: 500 milliseconds.
	RetryInterval duration.Duration `yaml:"retry_interval"`
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	c.DialTimeout = orDefault(c.DialTimeout, 5*time.Second)
	c.ReadTimeout = orDefault(c.ReadTimeout, time.Second)
	c.WriteTimeout = orDefault(c.WriteTimeout, time.Second)
	c.RetryInterval = orDefault(c.RetryInterval, 500*time.Millisecond)
	return c
}

func orDefault(d duration.Duration, def time.Duration) duration.Duration {
	if d.IsZero() || d.IsUnlimited() {
		v, _ := duration.FromStd(def)
		return v
	}
	return d
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for connection attempts.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open connects to Redis and pings it, retrying with exponential backoff
// until it answers or the attempts are used up.
func Open(ctx context.Context, cfg Config, opts ...Option) (redis.UniversalClient, error) {
	redisOpts, err := parse(cfg)
	if err != nil {
		return nil, err
	}

	o := &options{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.withDefaults()
	backoff := cfg.RetryInterval.Std()

	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		client := redis.NewClient(redisOpts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			o.logger.DebugContext(ctx, "redis connected", slog.String("addr", redisOpts.Addr))
			return client, nil
		}
		_ = client.Close()

		o.logger.WarnContext(ctx, "redis ping failed",
			slog.Int("attempt", attempt),
			slog.String("addr", redisOpts.Addr),
			slog.Any("error", lastErr),
		)
		if attempt == cfg.RetryAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
		backoff *= 2
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

func parse(cfg Config) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	if !strings.HasPrefix(cfg.URL, "redis://") && !strings.HasPrefix(cfg.URL, "rediss://") {
		return nil, fmt.Errorf("%w: unsupported scheme", ErrInvalidURL)
	}

	ro, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}

	cfg = cfg.withDefaults()
	ro.PoolSize = cfg.PoolSize
	ro.MinIdleConns = cfg.MinIdleConns
	ro.DialTimeout = cfg.DialTimeout.Std()
	ro.ReadTimeout = cfg.ReadTimeout.Std()
	ro.WriteTimeout = cfg.WriteTimeout.Std()
	return ro, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Healthcheck returns a readiness check that pings the client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown returns a shutdown hook that closes the client.
func Shutdown(client redis.UniversalClient) func(context.Context) error {
	return func(context.Context) error {
		if err := client.Close(); err != nil {
			return errors.Join(ErrCloseFailed, err)
		}
		return nil
	}
}
