package gateway

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
)

// Response is the outcome of handling a request. Body may be nil.
// Cause records the error behind an error response; it is logged, never
// sent to the client.
type Response struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
	Cause  error
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// NewInternalServerError returns an empty 500 response carrying cause.
func NewInternalServerError(cause error) *Response {
	r := NewResponse(http.StatusInternalServerError)
	r.Cause = cause
	return r
}

// NewNotFound returns an empty 404 response.
func NewNotFound() *Response {
	return NewResponse(http.StatusNotFound)
}

// SetBody replaces the body with b and updates Content-Length.
func (r *Response) SetBody(b []byte) *Response {
	r.closeBody()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set("Content-Length", strconv.Itoa(len(b)))
	return r
}

// Close releases the body.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

func (r *Response) closeBody() {
	if r.Body != nil {
		_ = r.Body.Close()
	}
}
