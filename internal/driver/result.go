package driver

import (
	"time"

	"github.com/sevengram/drover/internal/loadgen"
)

// StepKind names one stage of an iteration.
type StepKind string

const (
	// StepStart spawns the service under test.
	StepStart StepKind = "start"
	// StepReady waits for the readiness probe to pass.
	StepReady StepKind = "ready"
	// StepWarmup issues the warm-up request.
	StepWarmup StepKind = "warmup"
	// StepLoad runs the load pass and appends its report.
	StepLoad StepKind = "load"
	// StepSettle pauses between the load pass and teardown.
	StepSettle StepKind = "settle"
	// StepTeardown stops the service under test.
	StepTeardown StepKind = "teardown"
)

// Outcome classifies a finished iteration.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult records one stage of an iteration.
type StepResult struct {
	Step     StepKind      `json:"step"`
	OK       bool          `json:"ok"`
	Detail   string        `json:"detail,omitempty"`
	Err      string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// IterationResult records one matrix cell: a single service lifecycle
// plus load pass at one concurrency level.
type IterationResult struct {
	RunID        string          `json:"runId"`
	SweepID      string          `json:"sweepId,omitempty"`
	Endpoint     string          `json:"endpoint"`
	TypeSelector string          `json:"typeSelector"`
	Concurrency  int             `json:"concurrency"`
	Repetition   int             `json:"repetition"`
	Steps        []StepResult    `json:"steps"`
	Load         *loadgen.Result `json:"load,omitempty"`
	LogFile      string          `json:"logFile,omitempty"`
	Outcome      Outcome         `json:"outcome"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
}

// record appends a step and downgrades the outcome when it failed.
func (r *IterationResult) record(step StepResult) {
	r.Steps = append(r.Steps, step)
	if !step.OK {
		r.Outcome = OutcomeFailed
	}
}

// passing reports whether the iteration may continue to its next
// load-bearing step.
func (r *IterationResult) passing() bool {
	return r.Outcome == OutcomePassed
}

// Step returns the recorded result for a step kind, or nil when the
// step never ran.
func (r *IterationResult) Step(kind StepKind) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Step == kind {
			return &r.Steps[i]
		}
	}
	return nil
}

// SweepResult aggregates a full matrix run.
type SweepResult struct {
	Name       string            `json:"name,omitempty"`
	RunID      string            `json:"runId"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Duration   time.Duration     `json:"duration"`
	Iterations []IterationResult `json:"iterations"`
	TotalRuns  int               `json:"totalRuns"`
	Passed     int               `json:"passed"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped,omitempty"`
}
