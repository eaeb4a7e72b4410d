// Package models provides the core data structures for handling inbound requests and outbound responses.
package models

import (
	"net/url"
	"strings"
)

// Request represents an incoming client request, independent of the hosting runtime (HTTP server or Lambda).
// Header keys are lower-cased.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers map[string]string
}

// Header returns the value of the named header, ignoring case.
func (r Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Response defines the structure for an HTTP response containing a body, headers, and a status code.
type Response struct {
	Body       string
	Headers    map[string]string
	StatusCode int
}

// Text returns a plain-text response with the given status code.
func Text(statusCode int, body string) Response {
	return Response{
		Body:       body,
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}
