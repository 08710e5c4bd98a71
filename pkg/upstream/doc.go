// Package upstream is the gateway handler that forwards requests to a
// backend with go-resty.
//
//	h, err := upstream.New("https://api.internal",
//	    upstream.WithTimeout(10*time.Second),
//	    upstream.WithLogger(log),
//	)
//
// The response body is streamed, not buffered. Redirects are returned to
// the client as they are and hop-by-hop headers are dropped in both
// directions.
package upstream
