package token

import (
	"context"
	"slices"
	"time"
)

// Info describes a valid access token.
type Info struct {
	Subject   string    `json:"sub"`
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

// HasScope reports whether the token grants scope.
func (i Info) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Expired reports whether the token is expired at now.
// A token without expiry never expires.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Validator resolves an opaque bearer token.
// Unknown or expired tokens yield ErrInvalidToken.
type Validator interface {
	Validate(ctx context.Context, token string) (Info, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, token string) (Info, error)

func (f ValidatorFunc) Validate(ctx context.Context, token string) (Info, error) {
	return f(ctx, token)
}
