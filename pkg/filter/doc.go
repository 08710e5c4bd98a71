// Package filter holds the gateway's built-in filters.
//
//   - [Header] sets a header on the request and on the response.
//   - [Cache] memoizes GET and HEAD responses for as long as their
//     Cache-Control header allows.
//   - [Token] authenticates bearer tokens and memoizes validation results
//     until the token expires.
//
// Cache and Token keep their state in a cache.Cache, so concurrent
// requests for the same resource or token trigger a single upstream call
// or lookup.
package filter
