package loadgen

import (
	"time"
)

// Plan describes the single request every user repeats during a pass.
//
// The driver builds one Plan per matrix cell: the target endpoint with its
// type selector already encoded in the URL query.
type Plan struct {
	// Name labels the plan in logs (usually the endpoint path)
	Name string `json:"name" yaml:"name"`

	// Method is the HTTP method (GET for benchmark passes)
	Method string `json:"method" yaml:"method"`

	// URL is the fully resolved target, query string included
	URL string `json:"url" yaml:"url"`

	// Headers are sent with every request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Check maps JSONPath expressions to expected values, evaluated
	// against each response body. A response that fails its check counts
	// as a failed request even with a 2xx status.
	Check map[string]string `json:"check,omitempty" yaml:"check,omitempty"`
}

// RequestResult contains the outcome of a single request.
type RequestResult struct {
	UserID        int           `json:"userId"`
	Iteration     int64         `json:"iteration"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       time.Time     `json:"endTime"`
	Duration      time.Duration `json:"duration"`
	StatusCode    int           `json:"statusCode"`
	BytesReceived int64         `json:"bytesReceived"`
	CheckFailed   bool          `json:"checkFailed,omitempty"`
	Error         error         `json:"error,omitempty"`
}

// Success reports whether the request counts as successful: transport
// completed, status below 400, and the body check (if any) passed.
func (r *RequestResult) Success() bool {
	return r.Error == nil && r.StatusCode < 400 && !r.CheckFailed
}
