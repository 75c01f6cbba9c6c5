package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sevengram/drover/pkg/jsonschema"
)

// Load reads a sweep configuration from a file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// The document is checked against the embedded schema before decoding,
// and defaults are applied to the result.
func Load(path string) (*SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := CheckSchema(data); err != nil {
		return nil, err
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// CheckSchema validates a raw config document against the embedded JSON
// Schema. YAML input is accepted; the document is normalized to JSON
// first. The schema catches structural mistakes like unknown keys and
// wrong types with their location in the document, which field-level
// validation cannot do once the data has been folded into Go types.
func CheckSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize config for schema check: %w", err)
	}

	if valid, verrs := jsonschema.ValidateWithErrors(string(normalized), sweepSchema); !valid {
		return fmt.Errorf("config does not match schema: %w", verrs)
	}
	return nil
}

// Parse decodes configuration data.
//
// The format is determined by the file extension in path, or defaults to
// YAML if the path is empty or has an unknown extension.
func Parse(data []byte, path string) (*SweepConfig, error) {
	var config SweepConfig

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		// Try YAML by default
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &config, nil
}

// ParseDurationString parses a duration string with support for common
// formats.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	// Try standard Go duration parsing first
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// ApplyDefaults fills in defaults for everything the document left
// unset. It never overrides an explicit value, so applying it twice is
// harmless.
func ApplyDefaults(c *SweepConfig) {
	if c.Target.BaseURL == "" {
		c.Target.BaseURL = "http://127.0.0.1:33600"
	}

	if len(c.Matrix.Levels) == 0 {
		if c.Matrix.Start == 0 {
			c.Matrix.Start = 50
		}
		if c.Matrix.End == 0 {
			c.Matrix.End = 1000
		}
		if c.Matrix.Step == 0 {
			c.Matrix.Step = 50
		}
	}
	if c.Matrix.Repetitions == 0 {
		c.Matrix.Repetitions = 3
	}

	// Resolve the profile unless an explicit count or a timed window
	// was given.
	if c.Load.RequestsPerUser == 0 && c.Load.Duration == 0 {
		switch c.Load.Profile {
		case ProfileSmoke:
			c.Load.RequestsPerUser = SmokeRequestsPerUser
		default:
			c.Load.RequestsPerUser = BenchRequestsPerUser
		}
	}
	if c.Load.Timeout == 0 {
		c.Load.Timeout = Duration(30 * time.Second)
	}

	if c.Service.Workers == 0 {
		c.Service.Workers = 4
	}
	if c.Service.GracefulTimeout == 0 {
		c.Service.GracefulTimeout = Duration(5 * time.Second)
	}
	if c.Service.LogOutput == "" {
		c.Service.LogOutput = LogOutputDiscard
	}

	if c.Readiness.Path == "" {
		c.Readiness.Path = "/health"
	}
	if c.Readiness.Timeout == 0 {
		c.Readiness.Timeout = Duration(10 * time.Second)
	}
	if c.Readiness.MaxAttempts == 0 {
		c.Readiness.MaxAttempts = 8
	}

	if c.Warmup.TypeValue == "" {
		c.Warmup.TypeValue = "0"
	}
	if c.Warmup.Retries == 0 {
		c.Warmup.Retries = 3
	}

	if c.Delays.Settle == 0 {
		c.Delays.Settle = Duration(2 * time.Second)
	}
	if c.Delays.Cooldown == 0 {
		c.Delays.Cooldown = Duration(3 * time.Second)
	}

	if c.Log.Dir == "" {
		c.Log.Dir = "./log"
	}
	if c.Log.OutcomeFile == "" {
		c.Log.OutcomeFile = "outcomes.jsonl"
	}
}
