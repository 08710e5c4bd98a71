// Command gateway runs the caching HTTP gateway described by a YAML file.
//
//	gateway -config /etc/gatecache/gateway.yaml
//
// Flags may also be set from the environment with the GATECACHE_ prefix,
// for example GATECACHE_CONFIG.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v3"

	"github.com/dmitrymomot/gatecache/internal/config"
	"github.com/dmitrymomot/gatecache/internal/server"
	"github.com/dmitrymomot/gatecache/pkg/cache"
	"github.com/dmitrymomot/gatecache/pkg/gateway"
	"github.com/dmitrymomot/gatecache/pkg/health"
	"github.com/dmitrymomot/gatecache/pkg/heap"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/redis"
	"github.com/dmitrymomot/gatecache/pkg/scheduler"
	"github.com/dmitrymomot/gatecache/pkg/token"
)

func main() {
	fs := flag.NewFlagSet("gateway", flag.ExitOnError)
	path := fs.String("config", "gateway.yaml", "path to the configuration file")
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("GATECACHE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(context.Background(), *path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger, logger.RequestIDExtractor())
	if err != nil {
		return err
	}
	log = log.With(slog.String("app", "gatecache"))

	sched := scheduler.NewCron(scheduler.WithLogger(log))
	checks := health.NewRegistry(health.WithLogger(log))

	deps := heap.Deps{
		Scheduler: sched,
		Logger:    log,
		Health:    checks,
	}
	if cfg.Cache.DefaultTimeout != nil {
		deps.CacheOptions = append(deps.CacheOptions, cache.WithDefaultTimeout(*cfg.Cache.DefaultTimeout))
	}

	opts := []server.Option{
		server.WithAddress(cfg.Server.Address),
		server.WithLogger(log),
		server.WithHealth(checks),
		server.WithStartupHook(sched.StartFunc()),
		server.WithShutdownHook(sched.Shutdown()),
	}
	if d := cfg.Server.ShutdownTimeout; !d.IsZero() && !d.IsUnlimited() {
		opts = append(opts, server.WithShutdownTimeout(d.Std()))
	}

	var closeRedis func(context.Context) error
	if cfg.Redis != nil {
		client, err := redis.Open(ctx, *cfg.Redis, redis.WithLogger(log))
		if err != nil {
			return err
		}
		checks.Register("redis", redis.Healthcheck(client))
		deps.Validator = token.NewRedisStore(client, token.WithStoreLogger(log))
		closeRedis = redis.Shutdown(client)
		opts = append(opts, server.WithShutdownHook(closeRedis))
	}
	opts = append(opts, server.WithShutdownHook(logger.Shutdown()))

	gw, err := heap.DefaultRegistry(deps).Build(&cfg.Gateway)
	if err != nil {
		log.Error("failed to build gateway", slog.Any("error", err))
		if closeRedis != nil {
			_ = closeRedis(ctx)
		}
		return err
	}

	srv := server.New(gateway.NewHTTPHandler(gw, gateway.WithHTTPLogger(log)), opts...)
	return srv.Run(ctx)
}
