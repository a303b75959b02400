package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/cgi"
	"github.com/beward-tools/bewardctl/internal/logging"
)

const (
	// DefaultUsername is the factory HTTP Basic Auth username of Beward panels
	DefaultUsername = "admin"

	// DefaultPassword is the factory HTTP Basic Auth password of Beward panels
	DefaultPassword = "admin"

	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 4

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// Client performs CGI requests against one panel. It implements
// cgi.Transport and is safe for concurrent use once configured.
type Client struct {
	// BaseURL is the panel root, e.g. "http://10.0.0.2:80"
	BaseURL string

	// Host is the panel address used in logs and errors
	Host string

	// Username for HTTP Basic Auth (default: "admin")
	Username string

	// Password for HTTP Basic Auth (default: "admin")
	Password string

	// HTTPClient is the underlying HTTP client. Timeouts are applied per
	// request through the context, so its own Timeout is left at zero.
	HTTPClient *http.Client

	// Timeout applies to requests that do not set their own
	Timeout time.Duration

	// MaxRetries is the maximum number of retries for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after every retry
	UseExponentialBackoff bool
}

// NewClient creates a client for the panel at host. useHTTPS selects the
// https scheme; panels use self-signed certificates, see SetInsecureTLS.
func NewClient(host string, port int, useHTTPS bool) *Client {
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	c := NewClientWithURL(fmt.Sprintf("%s://%s:%d", scheme, host, port))
	c.Host = host
	return c
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		Host:                  host,
		Username:              DefaultUsername,
		Password:              DefaultPassword,
		HTTPClient:            &http.Client{},
		Timeout:               cgi.DefaultTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the default request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Timeout = timeout
}

// SetAuth sets HTTP Basic Auth credentials
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// SetInsecureTLS disables certificate verification
func (c *Client) SetInsecureTLS(insecure bool) {
	tr, ok := c.HTTPClient.Transport.(*http.Transport)
	if !ok || tr == nil {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = insecure //nolint:gosec // panels ship self-signed certificates
	c.HTTPClient.Transport = tr
}

// Do sends req, retrying network failures and 5xx replies with backoff.
// Any reply that arrives is returned as is; callers decide what a status
// means. Only transport failures are returned as errors.
func (c *Client) Do(ctx context.Context, req *cgi.Request) (*cgi.Reply, error) {
	var (
		reply   *cgi.Reply
		lastErr error
	)
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, cgi.ClassifyNetworkError(err, c.Host)
			}
			if c.UseExponentialBackoff {
				delay = min(delay*2, c.MaxRetryDelay)
			}
			logging.Debug("retrying request",
				zap.String("host", c.Host),
				zap.String("path", req.Path),
				zap.Int("attempt", attempt+1),
			)
		}

		reply, lastErr = c.attempt(ctx, req)
		if lastErr != nil {
			if ctx.Err() != nil || !cgi.IsRetryable(lastErr) {
				return nil, lastErr
			}
			continue
		}
		if reply.StatusCode < http.StatusInternalServerError {
			return reply, nil
		}
	}

	if reply != nil && lastErr == nil {
		return reply, nil
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, req *cgi.Request) (*cgi.Reply, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	logging.LogRequest(c.Host, httpReq.Method, req.Path, req.Params)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, cgi.ClassifyNetworkError(err, c.Host)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cgi.ClassifyNetworkError(err, c.Host)
	}
	logging.LogResponse(c.Host, req.Path, resp.StatusCode, len(body))
	logging.LogRawBytes("response body", body)

	return &cgi.Reply{StatusCode: resp.StatusCode, Body: body}, nil
}

// newRequest builds the HTTP request. Parameters always travel in the
// query string; a POST with files carries them as a multipart body.
func (c *Client) newRequest(ctx context.Context, req *cgi.Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if len(req.Files) > 0 {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, f := range req.Files {
			fw, err := mw.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, err
			}
			if _, err := fw.Write(f.Content); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		body = &buf
		contentType = mw.FormDataContentType()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &cgi.DeviceError{Type: cgi.ErrTypeNetwork, Message: "failed to create request", Err: err, Host: c.Host}
	}
	httpReq.SetBasicAuth(c.Username, c.Password)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// CheckCredentials reports whether the panel accepts the configured
// credentials. Only a 401 reply counts as rejection.
func (c *Client) CheckCredentials(ctx context.Context) (bool, error) {
	reply, err := c.Do(ctx, &cgi.Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		return false, err
	}
	return reply.StatusCode != http.StatusUnauthorized, nil
}

// Ping checks that the panel answers and accepts the credentials
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.CheckCredentials(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return cgi.NewAuthError("authentication failed (check credentials)")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
