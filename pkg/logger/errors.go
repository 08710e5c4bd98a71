package logger

import "errors"

var (
	ErrInvalidLevel  = errors.New("logger: invalid level")
	ErrInvalidFormat = errors.New("logger: invalid format")
	ErrSentryInit    = errors.New("logger: sentry initialization failed")
	ErrFlushTimeout  = errors.New("logger: sentry flush timed out")
)
