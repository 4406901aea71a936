package oauth

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClient defines the interface for making HTTP requests.
// This abstraction allows for testing and custom implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTimeout bounds every token and user info request made with the
// default HTTP client.
const DefaultTimeout = 30 * time.Second

// defaultHTTPClient is a production HTTP client with sensible defaults.
type defaultHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP client tuned for talking to token and user
// info endpoints. A nil tlsConfig selects TLS 1.2 as the minimum version.
func NewHTTPClient(timeout time.Duration, tlsConfig *tls.Config) HTTPClient {
	return newDefaultHTTPClient(timeout, tlsConfig, nil)
}

// newDefaultHTTPClient builds the client. wrap, when non-nil, decorates the
// base transport (see NewRetryTransport).
func newDefaultHTTPClient(timeout time.Duration, tlsConfig *tls.Config, wrap func(http.RoundTripper) http.RoundTripper) HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	customTLS := tlsConfig
	if customTLS == nil {
		customTLS = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	} else {
		// Clone to avoid modifying the original
		customTLS = tlsConfig.Clone()
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       customTLS,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	if wrap != nil {
		transport = wrap(transport)
	}

	return &defaultHTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Do executes the HTTP request.
func (c *defaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// stdClient adapts an HTTPClient to *http.Client for libraries that take one
// (golang.org/x/oauth2 reads it from the context).
func stdClient(c HTTPClient) *http.Client {
	if dc, ok := c.(*defaultHTTPClient); ok {
		return dc.client
	}
	if hc, ok := c.(*http.Client); ok {
		return hc
	}
	return &http.Client{Transport: doerTransport{c}}
}

type doerTransport struct {
	c HTTPClient
}

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.c.Do(req)
}

// RetryPolicy configures NewRetryTransport.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first (default 3).
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt; it doubles per attempt (default 100ms).
	InitialBackoff time.Duration
}

// NewRetryTransport wraps base with retries for transient failures:
// transport errors, 429 Too Many Requests and 5xx responses. Only requests
// whose body can be replayed (GetBody set, or no body) are retried.
//
// The engine never installs it on its own; hosts opt in through
// NewRetryingHTTPClient.
func NewRetryTransport(base http.RoundTripper, policy RetryPolicy) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = 100 * time.Millisecond
	}
	return &retryTransport{base: base, policy: policy}
}

// NewRetryingHTTPClient is NewHTTPClient with a retrying transport.
func NewRetryingHTTPClient(timeout time.Duration, tlsConfig *tls.Config, policy RetryPolicy) HTTPClient {
	return newDefaultHTTPClient(timeout, tlsConfig, func(rt http.RoundTripper) http.RoundTripper {
		return NewRetryTransport(rt, policy)
	})
}

// retryTransport wraps an http.RoundTripper with retry logic for transient failures.
type retryTransport struct {
	base   http.RoundTripper
	policy RetryPolicy
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	backoff := t.policy.InitialBackoff

	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)

		// Success or last attempt - hand the outcome to the caller
		if (err == nil && !shouldRetry(resp)) || attempt >= t.policy.MaxAttempts {
			return resp, err
		}

		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
	}
}

// shouldRetry determines if an HTTP response indicates a transient failure.
func shouldRetry(resp *http.Response) bool {
	if resp == nil {
		return true
	}

	// Retry on server errors (5xx) and rate limiting (429)
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}
