package upstream

import "errors"

var (
	ErrInvalidBaseURL = errors.New("upstream: invalid base URL")
	ErrUpstream       = errors.New("upstream: request failed")
)
