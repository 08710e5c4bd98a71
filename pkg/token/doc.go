// Package token validates opaque bearer tokens.
//
// [RedisStore] keeps one Redis hash per token and collapses concurrent
// lookups of the same token with singleflight. The gateway's token filter
// memoizes validation results in a cache whose entries expire together
// with the token.
package token
