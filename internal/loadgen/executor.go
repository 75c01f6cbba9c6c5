// Package loadgen provides the embedded load generation engine that drives
// traffic against a service under test.
package loadgen

import (
	"context"
	"math/rand"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// Type identifies the load generation strategy for one pass.
type Type string

const (
	// TypeBenchmark runs a fixed number of users, each issuing a fixed
	// number of requests. This is the sweep's strategy: total work is
	// users * requestsPerUser, independent of how long it takes.
	TypeBenchmark Type = "benchmark"

	// TypeTimed runs a fixed number of users for a fixed duration.
	TypeTimed Type = "timed"
)

// Executor drives the user goroutines of one load pass. Implementations
// decide when users stop: after a fixed amount of work (benchmark) or
// after a fixed window of time (timed).
type Executor interface {
	// Type names the strategy.
	Type() Type

	// Init validates and stores the configuration. Called once, before Run.
	Init(ctx context.Context, config *Config) error

	// Run drives the pass to completion. Implementations watch ctx and
	// wind down early when it is cancelled.
	Run(ctx context.Context, scheduler *Scheduler, metrics *metrics.Engine) error

	// GetProgress reports completion as a fraction in [0, 1].
	GetProgress() float64

	// GetActiveUsers reports how many users are currently running.
	GetActiveUsers() int

	// GetStats returns a point-in-time view of the pass.
	GetStats() *Stats

	// Stop ends the pass before natural completion, waiting up to the
	// configured graceful-stop window.
	Stop(ctx context.Context) error
}

// Config parameterizes an executor. Users applies to both strategies;
// RequestsPerUser drives only benchmark passes and Duration only timed
// ones.
type Config struct {
	Type            Type          `json:"type" yaml:"type"`
	Users           int           `json:"users" yaml:"users"`
	RequestsPerUser int64         `json:"requestsPerUser,omitempty" yaml:"requestsPerUser,omitempty"`
	Duration        time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	GracefulStop    time.Duration `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`
	Pacing          *PacingConfig `json:"pacing,omitempty" yaml:"pacing,omitempty"`
}

// PacingConfig inserts think time between a user's consecutive
// requests: none, a fixed delay, or one drawn uniformly from
// [Min, Max].
type PacingConfig struct {
	Type     PacingType    `json:"type" yaml:"type"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
	Min      time.Duration `json:"min,omitempty" yaml:"min,omitempty"`
	Max      time.Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

// PacingType identifies the type of pacing.
type PacingType string

const (
	PacingNone     PacingType = "none"
	PacingConstant PacingType = "constant"
	PacingRandom   PacingType = "random"
)

// applyPacing waits between requests according to the pacing config,
// bailing out early on context cancellation.
func applyPacing(ctx context.Context, pacing *PacingConfig) {
	if pacing == nil || pacing.Type == PacingNone {
		return
	}

	var wait time.Duration
	switch pacing.Type {
	case PacingConstant:
		wait = pacing.Duration
	case PacingRandom:
		diff := pacing.Max - pacing.Min
		if diff > 0 {
			wait = pacing.Min + time.Duration(rand.Int63n(int64(diff)))
		} else {
			wait = pacing.Min
		}
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}

// Stats is a live view of an executor's progress.
type Stats struct {
	StartTime   time.Time     `json:"startTime"`
	CurrentTime time.Time     `json:"currentTime"`
	Elapsed     time.Duration `json:"elapsed"`

	ActiveUsers int `json:"activeUsers"`
	TargetUsers int `json:"targetUsers"`

	// Requests completed so far, across all users.
	Requests int64 `json:"requests"`

	// TotalRequests is the planned request count, set only for
	// benchmark passes. TotalDuration is the planned pass length, set
	// only for timed ones.
	TotalRequests int64         `json:"totalRequests"`
	TotalDuration time.Duration `json:"totalDuration"`
}

// Validate checks that the configuration names a known executor type
// and carries the fields that type needs.
func (c *Config) Validate() error {
	if c.Type == "" {
		return &ValidationError{Field: "type", Message: "executor type is required"}
	}

	switch c.Type {
	case TypeBenchmark, TypeTimed:
		if c.Users <= 0 {
			return &ValidationError{Field: "users", Message: "users must be > 0"}
		}
	default:
		return &ValidationError{Field: "type", Message: "unknown executor type: " + string(c.Type)}
	}

	if c.Type == TypeBenchmark && c.RequestsPerUser <= 0 {
		return &ValidationError{Field: "requestsPerUser", Message: "requestsPerUser must be > 0"}
	}
	if c.Type == TypeTimed && c.Duration <= 0 {
		return &ValidationError{Field: "duration", Message: "duration must be > 0"}
	}
	return nil
}

// ValidationError reports a config field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}
