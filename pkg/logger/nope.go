package logger

import "log/slog"

// NewNope returns a logger that drops every record. Components use it
// until a logger is configured.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
