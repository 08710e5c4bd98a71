// Package logger builds the gateway's slog logger.
//
// A logger is described by a [Config], usually loaded from YAML:
//
//	logger:
//	  level: debug
//	  format: text
//	  sentry:
//	    dsn: https://key@sentry.example.com/1
//	    environment: staging
//	    min_level: warn
//
// [New] returns a logger writing JSON (or text) records to stdout. When a
// Sentry DSN is configured, records are also sent to Sentry: errors create
// issues, and warnings and errors are stored as Sentry logs. If Sentry
// cannot be initialized the failure is logged and only local output is used.
//
// # Context Extractors
//
// A [ContextExtractor] adds an attribute taken from the record's context.
// The gateway stores a request id with [WithRequestID] for every inbound
// request; [RequestIDExtractor] adds it to each record:
//
//	log, err := logger.New(cfg.Logger, logger.RequestIDExtractor())
//
//	ctx = logger.WithRequestID(ctx, "0b6e...")
//	log.InfoContext(ctx, "upstream call") // ... "request_id":"0b6e..."
//
// [NewContextHandler] applies extractors to any slog.Handler.
//
// # Defaults
//
// Library packages accept a *slog.Logger option and default to [NewNope],
// which discards everything.
package logger
