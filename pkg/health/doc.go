// Package health serves liveness, readiness and cache statistics.
//
// Components register with a [Registry] while the gateway is wired:
//
//	reg := health.NewRegistry(health.WithLogger(log))
//	reg.Register("redis", redis.Healthcheck(client))
//	reg.RegisterCache("responses", responses.Stats)
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", reg.ReadinessHandler())
//	r.Get("/health/caches", reg.StatsHandler())
//
// Readiness checks run in parallel under a shared timeout. Probes get
// plain text by default; JSON is returned for Accept: application/json or
// ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "redis": {"status": "unhealthy", "error": "connection refused", "elapsed": "1.2ms"}
//	  }
//	}
package health
