// Package httpx provides a one-shot HTTP client with per-phase timing,
// used for target diagnostics and readiness probing.
package httpx

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"
)

// Client performs single timed requests. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a client with the given options.
func NewClient(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithTimeout sets the per-request timeout. The default is 10 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a default header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient substitutes the underlying *http.Client, for custom
// transports.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Get performs a single timed GET against a fully resolved URL.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil)
}

// Do performs a single timed request. Per-call headers override the
// client's defaults. The response body is fully read before returning.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequest(method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	timing := Timing{Start: time.Now()}

	// Each phase ends where the next begins; lastPhaseEnd carries the
	// boundary so first-byte time excludes connection setup. Targets
	// are usually IP literals, so the DNS phase may never fire.
	var dnsStart, connectStart, tlsStart time.Time
	lastPhaseEnd := timing.Start

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			end := time.Now()
			timing.DNSLookup = end.Sub(dnsStart)
			lastPhaseEnd = end
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			if err == nil {
				end := time.Now()
				timing.Connect = end.Sub(connectStart)
				lastPhaseEnd = end
			}
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				end := time.Now()
				timing.TLSHandshake = end.Sub(tlsStart)
				lastPhaseEnd = end
			}
		},
		GotFirstResponseByte: func() {
			timing.FirstByte = time.Since(lastPhaseEnd)
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(ctx, trace))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	transferStart := time.Now()
	body, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	timing.Transfer = time.Since(transferStart)
	timing.Total = time.Since(timing.Start)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
		Timing:     timing,
	}, nil
}

// BuildURL joins a base URL with a path segment and query parameters.
func BuildURL(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	if path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
