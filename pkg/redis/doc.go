// Package redis opens the gateway's Redis connection.
//
// It wraps [github.com/redis/go-redis/v9] with a YAML-loadable [Config],
// a startup ping with exponential backoff, a readiness check and a
// shutdown hook:
//
//	client, err := redis.Open(ctx, cfg.Redis, redis.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	health.Register("redis", redis.Healthcheck(client))
//	srv.OnShutdown(redis.Shutdown(client))
//
// Both redis:// and rediss:// (TLS) URLs are accepted. Timeouts use the
// gateway's duration syntax ("500 milliseconds", "2s").
package redis
