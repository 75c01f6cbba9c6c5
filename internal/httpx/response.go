package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Timing holds the per-phase breakdown of a single request.
type Timing struct {
	// Start is when the request was issued.
	Start time.Time `json:"start"`
	// DNSLookup is the name resolution time. Zero for IP literal targets.
	DNSLookup time.Duration `json:"dnsLookup"`
	// Connect is the TCP connection time.
	Connect time.Duration `json:"connect"`
	// TLSHandshake is the TLS negotiation time. Zero for plain HTTP.
	TLSHandshake time.Duration `json:"tlsHandshake"`
	// FirstByte is the time from the end of connection setup until the
	// first response byte arrived.
	FirstByte time.Duration `json:"firstByte"`
	// Transfer is the time spent reading the response body.
	Transfer time.Duration `json:"transfer"`
	// Total is the full wall-clock time including the body read.
	Total time.Duration `json:"total"`
}

// Response is a fully read HTTP response with its timing breakdown.
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Timing     Timing
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Header returns a response header value, or "" when absent.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError reports whether the status code is in the 5xx range.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
