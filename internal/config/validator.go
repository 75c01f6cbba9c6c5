package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates a sweep configuration. It expects defaults to have
// been applied already, which Load does.
//
// Returns nil if valid, or a ValidationErrors collecting every problem
// found.
func (c *SweepConfig) Validate() error {
	errs := &ValidationErrors{}

	validateTarget(&c.Target, errs)
	validateMatrix(&c.Matrix, errs)
	validateLoad(&c.Load, errs)
	validateService(&c.Service, errs)
	validateReadiness(&c.Readiness, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateTarget validates the endpoint under test.
func validateTarget(t *TargetConfig, errs *ValidationErrors) {
	if t.Endpoint == "" {
		errs.Add("target.endpoint", "endpoint is required")
	}

	if t.BaseURL != "" {
		if _, err := url.Parse(t.BaseURL); err != nil {
			errs.Add("target.baseUrl", fmt.Sprintf("invalid URL: %v", err))
		}
	}
}

// validateMatrix validates the sweep matrix.
func validateMatrix(m *MatrixConfig, errs *ValidationErrors) {
	if len(m.Levels) > 0 {
		prev := 0
		for i, level := range m.Levels {
			if level <= 0 {
				errs.Add(fmt.Sprintf("matrix.levels[%d]", i), "concurrency level must be greater than 0")
			} else if level <= prev {
				errs.Add(fmt.Sprintf("matrix.levels[%d]", i), "levels must be strictly ascending")
			}
			prev = level
		}
	} else {
		if m.Start <= 0 {
			errs.Add("matrix.start", "start must be greater than 0")
		}
		if m.Step <= 0 {
			errs.Add("matrix.step", "step must be greater than 0")
		}
		if m.Start > m.End {
			errs.Add("matrix.end", "end cannot be less than start")
		}
	}

	if m.Repetitions < 1 {
		errs.Add("matrix.repetitions", "repetitions must be at least 1")
	}
}

// validateLoad validates per-pass load settings.
func validateLoad(l *LoadConfig, errs *ValidationErrors) {
	switch l.Profile {
	case "", ProfileBench, ProfileSmoke:
	default:
		errs.Add("load.profile", fmt.Sprintf("unknown profile: %s (valid: bench, smoke)", l.Profile))
	}

	if l.RequestsPerUser < 0 {
		errs.Add("load.requestsPerUser", "cannot be negative")
	}
	if l.RequestsPerUser == 0 && l.Duration.GetDuration(0) <= 0 {
		errs.Add("load", "either requestsPerUser or duration must be set")
	}

	if l.Pacing != nil {
		validatePacing("load.pacing", l.Pacing, errs)
	}
}

// validatePacing validates pacing configuration.
func validatePacing(prefix string, p *PacingConfig, errs *ValidationErrors) {
	switch p.Type {
	case "", "none", "constant", "random":
	default:
		errs.Add(prefix+".type", fmt.Sprintf("invalid pacing type: %s", p.Type))
	}

	switch p.Type {
	case "constant":
		if p.Duration.GetDuration(0) <= 0 {
			errs.Add(prefix+".duration", "duration is required for constant pacing")
		}

	case "random":
		minDur := p.Min.GetDuration(0)
		maxDur := p.Max.GetDuration(0)
		if minDur <= 0 {
			errs.Add(prefix+".min", "min is required for random pacing")
		}
		if maxDur <= 0 {
			errs.Add(prefix+".max", "max is required for random pacing")
		}
		if minDur > 0 && maxDur > 0 && minDur > maxDur {
			errs.Add(prefix, "min must be less than or equal to max")
		}
	}
}

// validateService validates the service-under-test settings.
func validateService(s *ServiceConfig, errs *ValidationErrors) {
	if s.Workers < 1 {
		errs.Add("service.workers", "workers must be at least 1")
	}

	if len(s.Command) > 0 && s.GracefulTimeout.GetDuration(0) <= 0 {
		errs.Add("service.gracefulTimeout", "gracefulTimeout must be greater than 0")
	}

	switch s.LogOutput {
	case "", LogOutputDiscard, LogOutputCapture:
	default:
		errs.Add("service.logOutput", fmt.Sprintf("invalid logOutput: %s (valid: discard, capture)", s.LogOutput))
	}
}

// validateReadiness validates the readiness probe settings.
func validateReadiness(r *ReadinessConfig, errs *ValidationErrors) {
	if r.Path != "" && !strings.HasPrefix(r.Path, "/") {
		errs.Add("readiness.path", "path must start with /")
	}
	if r.Timeout.GetDuration(0) <= 0 {
		errs.Add("readiness.timeout", "timeout must be greater than 0")
	}
	if r.MaxAttempts < 1 {
		errs.Add("readiness.maxAttempts", "maxAttempts must be at least 1")
	}
}
