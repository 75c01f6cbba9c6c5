// Package config provides configuration parsing and validation for the
// benchmark sweep driver.
package config

import (
	"time"
)

// SweepConfig is the root configuration for a benchmark sweep.
//
// Example YAML:
//
//	name: "motor read sweep"
//	target:
//	  endpoint: motor
//	  typeSelector: "2"
//	matrix:
//	  start: 50
//	  end: 1000
//	  step: 50
//	  repetitions: 3
//	service:
//	  command: ["./bin/service", "-port", "33600"]
//	  workers: 4
type SweepConfig struct {
	// Name of the sweep (for reporting)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Target describes the endpoint under test
	Target TargetConfig `json:"target" yaml:"target"`

	// Matrix defines the concurrency levels and repetition count
	Matrix MatrixConfig `json:"matrix,omitempty" yaml:"matrix,omitempty"`

	// Load tunes the work each pass performs
	Load LoadConfig `json:"load,omitempty" yaml:"load,omitempty"`

	// Service describes how the service under test is started and stopped
	Service ServiceConfig `json:"service,omitempty" yaml:"service,omitempty"`

	// Readiness controls the probe that gates every iteration
	Readiness ReadinessConfig `json:"readiness,omitempty" yaml:"readiness,omitempty"`

	// Warmup controls the cache-priming call before the load pass
	Warmup WarmupConfig `json:"warmup,omitempty" yaml:"warmup,omitempty"`

	// Delays are the waits between iteration steps
	Delays DelayConfig `json:"delays,omitempty" yaml:"delays,omitempty"`

	// Log controls where per-run reports and outcomes are written
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// TargetConfig identifies the endpoint under test.
type TargetConfig struct {
	// BaseURL is the scheme, host and port of the service under test
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// Endpoint is the path segment appended to the base URL
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// TypeSelector is sent as the "type" query parameter on every
	// load request. Selector "2" addresses the cached variant, which
	// is why it triggers the warm-up call.
	TypeSelector string `json:"typeSelector,omitempty" yaml:"typeSelector,omitempty"`

	// Headers are sent with every load request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// MatrixConfig defines the sweep matrix: which concurrency levels to
// drive and how many times each is repeated.
type MatrixConfig struct {
	// Levels lists explicit concurrency levels; when set it wins over
	// the start/end/step range
	Levels []int `json:"levels,omitempty" yaml:"levels,omitempty"`

	// Start is the first concurrency level of the range
	Start int `json:"start,omitempty" yaml:"start,omitempty"`

	// End is the last concurrency level of the range (inclusive)
	End int `json:"end,omitempty" yaml:"end,omitempty"`

	// Step is the increment between range levels
	Step int `json:"step,omitempty" yaml:"step,omitempty"`

	// Repetitions is how many times each level is run
	Repetitions int `json:"repetitions,omitempty" yaml:"repetitions,omitempty"`
}

// ConcurrencyLevels expands the matrix into the ordered list of
// concurrency levels to sweep. Explicit levels win over the range.
func (m *MatrixConfig) ConcurrencyLevels() []int {
	if len(m.Levels) > 0 {
		levels := make([]int, len(m.Levels))
		copy(levels, m.Levels)
		return levels
	}

	if m.Step <= 0 {
		return nil
	}

	var levels []int
	for c := m.Start; c <= m.End; c += m.Step {
		levels = append(levels, c)
	}
	return levels
}

// Load profiles and their per-user request counts.
const (
	// ProfileBench is the full benchmark profile.
	ProfileBench = "bench"

	// ProfileSmoke is a short profile for checking a sweep end to end.
	ProfileSmoke = "smoke"

	// BenchRequestsPerUser is each user's request count under bench.
	BenchRequestsPerUser = 20

	// SmokeRequestsPerUser is each user's request count under smoke.
	SmokeRequestsPerUser = 2
)

// LoadConfig tunes the work each pass performs and the HTTP client that
// performs it.
type LoadConfig struct {
	// RequestsPerUser is the number of requests each simulated user
	// sends. When set it wins over the profile.
	RequestsPerUser int64 `json:"requestsPerUser,omitempty" yaml:"requestsPerUser,omitempty"`

	// Profile selects a preset request count: "bench" or "smoke"
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`

	// Duration switches a pass to run for a fixed window instead of a
	// fixed request count
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Pacing inserts delay between a user's consecutive requests
	Pacing *PacingConfig `json:"pacing,omitempty" yaml:"pacing,omitempty"`

	// Timeout bounds each request end to end
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// KeepAlive controls connection reuse across a user's requests.
	// Unset means reuse.
	KeepAlive *bool `json:"keepAlive,omitempty" yaml:"keepAlive,omitempty"`

	// MaxIdleConnsPerHost caps idle connections to the target; zero
	// means size it from the concurrency level
	MaxIdleConnsPerHost int `json:"maxIdleConnsPerHost,omitempty" yaml:"maxIdleConnsPerHost,omitempty"`
}

// PacingConfig controls time between a user's consecutive requests.
type PacingConfig struct {
	// Type of pacing: "none", "constant", "random"
	Type string `json:"type" yaml:"type"`

	// Duration for constant pacing
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Min duration for random pacing
	Min Duration `json:"min,omitempty" yaml:"min,omitempty"`

	// Max duration for random pacing
	Max Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

// Service output modes.
const (
	// LogOutputDiscard drops the service's stdout and stderr.
	LogOutputDiscard = "discard"

	// LogOutputCapture routes the service's output into the driver log.
	LogOutputCapture = "capture"
)

// ServiceConfig describes how to run the service under test.
type ServiceConfig struct {
	// Command is the argv used to start the service. Empty means the
	// service is managed externally: the driver neither starts nor
	// stops anything, it only probes readiness.
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`

	// Workers is forwarded to the service via DROVER_WORKERS and is
	// embedded in per-run log file names
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Env lists extra KEY=VALUE entries for the service environment
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`

	// GracefulTimeout is how long teardown waits after SIGTERM before
	// killing the process group
	GracefulTimeout Duration `json:"gracefulTimeout,omitempty" yaml:"gracefulTimeout,omitempty"`

	// LogOutput is "discard" or "capture"
	LogOutput string `json:"logOutput,omitempty" yaml:"logOutput,omitempty"`
}

// ReadinessConfig controls the probe that gates every iteration.
type ReadinessConfig struct {
	// Path is the probe endpoint, relative to the base URL
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Timeout bounds the total wait for readiness
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxAttempts caps the number of probe requests
	MaxAttempts int `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`

	// Expect maps JSONPath expressions to required values, evaluated
	// against the probe response body
	Expect map[string]string `json:"expect,omitempty" yaml:"expect,omitempty"`
}

// WarmupConfig controls the warm-up call sent before a load pass.
type WarmupConfig struct {
	// Enabled forces the warm-up on or off. Unset means automatic:
	// the warm-up runs exactly when the type selector is "2".
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// TypeValue is the "type" query value for the warm-up call
	TypeValue string `json:"typeValue,omitempty" yaml:"typeValue,omitempty"`

	// Retries is how many times a failed warm-up call is retried
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty"`
}

// DelayConfig sets the waits between iteration steps.
type DelayConfig struct {
	// Settle is the pause after a load pass, before teardown
	Settle Duration `json:"settle,omitempty" yaml:"settle,omitempty"`

	// Cooldown is the pause after teardown, before the next iteration
	Cooldown Duration `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
}

// LogConfig controls where results are written.
type LogConfig struct {
	// Dir is the directory for per-run report files, created if missing
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// OutcomeFile is the structured per-iteration outcome log,
	// relative to Dir
	OutcomeFile string `json:"outcomeFile,omitempty" yaml:"outcomeFile,omitempty"`
}

// WarmupEnabled reports whether the warm-up call should run for this
// sweep. An explicit warmup.enabled wins; otherwise the warm-up runs
// exactly when the type selector is "2", the variant that serves from a
// cache that must be populated before it is measured.
func (c *SweepConfig) WarmupEnabled() bool {
	if c.Warmup.Enabled != nil {
		return *c.Warmup.Enabled
	}
	return c.Target.TypeSelector == "2"
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML.
// Both Go duration strings ("30s", "1h30m") and bare integers (seconds)
// are accepted.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes if present
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
