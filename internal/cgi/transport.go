package cgi

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout applies to ordinary get/set requests
	DefaultTimeout = 5 * time.Second

	// ImportTimeout applies to keys.csv uploads
	ImportTimeout = 180 * time.Second

	// UpgradeTimeout applies to firmware uploads
	UpgradeTimeout = 120 * time.Second
)

// File is a multipart attachment.
type File struct {
	Field    string // Form field name, usually "file"
	Filename string
	Content  []byte
}

// Request is one call to a CGI endpoint.
type Request struct {
	Method  string        // http.MethodGet or http.MethodPost
	Path    string        // Endpoint path, e.g. "cgi-bin/ntp_cgi"
	Params  url.Values    // Query parameters, always including "action" where applicable
	Files   []File        // Multipart attachments (POST only)
	Timeout time.Duration // Zero means DefaultTimeout
}

// Reply is the raw device answer.
type Reply struct {
	StatusCode int
	Body       []byte
}

// Transport performs requests against a single device. Implementations own
// retries, TLS and authentication.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Reply, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Reply, error)

// Do calls f(ctx, req).
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Reply, error) {
	return f(ctx, req)
}

func getRequest(path string, params url.Values) *Request {
	return &Request{Method: http.MethodGet, Path: path, Params: params}
}

func postRequest(path string, params url.Values) *Request {
	return &Request{Method: http.MethodPost, Path: path, Params: params}
}
