package token

import "errors"

var (
	// ErrInvalidToken means the token is unknown, expired or malformed.
	ErrInvalidToken = errors.New("token: invalid token")

	// ErrEmptyToken is returned for an empty token string.
	ErrEmptyToken = errors.New("token: empty token")

	// ErrLookupFailed wraps a storage failure; the token may still be valid.
	ErrLookupFailed = errors.New("token: lookup failed")
)
