// Package driver orchestrates benchmark sweeps: the concurrency matrix
// loop, the per-iteration service lifecycle, load passes, and outcome
// reporting.
package driver

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sevengram/drover/internal/config"
	"github.com/sevengram/drover/internal/httpx"
	"github.com/sevengram/drover/internal/loadgen"
	"github.com/sevengram/drover/internal/service"
)

// Driver runs a sweep: for every concurrency level and repetition it
// brings up the service under test, waits for readiness, optionally
// warms the target, runs a load pass, appends the report, and tears
// the service down again.
type Driver struct {
	cfg     *config.SweepConfig
	levels  []int
	service *service.Runner
	probe   *httpx.Client

	onPass      func(*IterationResult, *loadgen.Runner)
	onIteration func(*IterationResult, int, int)
}

// Option configures a Driver.
type Option func(*Driver)

// WithPassObserver registers a callback invoked when a load pass is
// about to run, with the live runner for progress polling.
func WithPassObserver(fn func(*IterationResult, *loadgen.Runner)) Option {
	return func(d *Driver) {
		d.onPass = fn
	}
}

// WithIterationObserver registers a callback invoked after each
// iteration with its position in the sweep.
func WithIterationObserver(fn func(iter *IterationResult, completed, total int)) Option {
	return func(d *Driver) {
		d.onIteration = fn
	}
}

// New validates the configuration and builds a Driver. When no service
// command is configured the target is treated as externally managed:
// no start or teardown steps, but the readiness probe still runs.
func New(cfg *config.SweepConfig, options ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	levels := cfg.Matrix.ConcurrencyLevels()
	if len(levels) == 0 {
		return nil, fmt.Errorf("concurrency matrix is empty")
	}

	d := &Driver{
		cfg:    cfg,
		levels: levels,
		probe:  httpx.NewClient(httpx.WithTimeout(2 * time.Second)),
	}
	if len(cfg.Service.Command) > 0 {
		d.service = service.NewRunner(cfg.Service)
	}

	for _, option := range options {
		option(d)
	}
	return d, nil
}

// Levels returns the concurrency levels the sweep will visit.
func (d *Driver) Levels() []int {
	levels := make([]int, len(d.levels))
	copy(levels, d.levels)
	return levels
}

// TotalRuns returns the number of matrix cells the sweep will visit.
func (d *Driver) TotalRuns() int {
	return len(d.levels) * d.cfg.Matrix.Repetitions
}

// Run executes the sweep. Iteration failures never abort the remaining
// matrix; they are reflected in the returned error once the sweep is
// done. Context cancellation stops the sweep promptly, tearing down a
// live service first.
func (d *Driver) Run(ctx context.Context) (*SweepResult, error) {
	sweep := &SweepResult{
		Name:      d.cfg.Name,
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}

	if err := ensureLogDir(d.cfg.Log.Dir); err != nil {
		return nil, err
	}

	total := d.TotalRuns()
	log.WithFields(log.Fields{
		"endpoint":    d.cfg.Target.Endpoint,
		"selector":    d.cfg.Target.TypeSelector,
		"levels":      len(d.levels),
		"repetitions": d.cfg.Matrix.Repetitions,
		"totalRuns":   total,
		"runId":       sweep.RunID,
	}).Info("Starting sweep")

	cooldown := d.cfg.Delays.Cooldown.GetDuration(0)

sweepLoop:
	for _, level := range d.levels {
		for rep := 1; rep <= d.cfg.Matrix.Repetitions; rep++ {
			if ctx.Err() != nil {
				break sweepLoop
			}

			iter := d.runIteration(ctx, sweep.RunID, level, rep)
			sweep.Iterations = append(sweep.Iterations, iter)
			d.recordOutcome(&iter)
			if d.onIteration != nil {
				d.onIteration(&iter, len(sweep.Iterations), total)
			}

			if cooldown > 0 && len(sweep.Iterations) < total {
				pause(ctx, cooldown)
			}
		}
	}

	sweep.EndTime = time.Now()
	sweep.Duration = sweep.EndTime.Sub(sweep.StartTime)
	sweep.TotalRuns = len(sweep.Iterations)
	for _, iter := range sweep.Iterations {
		switch iter.Outcome {
		case OutcomePassed:
			sweep.Passed++
		case OutcomeFailed:
			sweep.Failed++
		case OutcomeSkipped:
			sweep.Skipped++
		}
	}

	log.WithFields(log.Fields{
		"runId":    sweep.RunID,
		"total":    sweep.TotalRuns,
		"passed":   sweep.Passed,
		"failed":   sweep.Failed,
		"duration": sweep.Duration.Round(time.Second),
	}).Info("Sweep finished")

	if err := ctx.Err(); err != nil {
		return sweep, err
	}
	if sweep.Failed > 0 {
		return sweep, fmt.Errorf("%d of %d iterations failed", sweep.Failed, sweep.TotalRuns)
	}
	return sweep, nil
}

// runIteration drives one matrix cell through its steps. A failed step
// marks the iteration failed and skips the remaining load-bearing
// steps; teardown still runs whenever a process was started.
func (d *Driver) runIteration(ctx context.Context, sweepID string, concurrency, repetition int) IterationResult {
	iter := IterationResult{
		RunID:        uuid.New().String(),
		SweepID:      sweepID,
		Endpoint:     d.cfg.Target.Endpoint,
		TypeSelector: d.cfg.Target.TypeSelector,
		Concurrency:  concurrency,
		Repetition:   repetition,
		StartTime:    time.Now(),
		Outcome:      OutcomePassed,
	}

	if ctx.Err() != nil {
		iter.Outcome = OutcomeSkipped
		iter.EndTime = time.Now()
		return iter
	}

	log.WithFields(log.Fields{
		"endpoint":    iter.Endpoint,
		"concurrency": concurrency,
		"repetition":  repetition,
	}).Info("Starting iteration")

	var proc *service.Process
	if d.service != nil {
		iter.record(step(StepStart, func() (string, error) {
			p, err := d.service.Start(ctx)
			if err != nil {
				return "", err
			}
			proc = p
			return fmt.Sprintf("pid %d", p.Pid()), nil
		}))
	}

	if iter.passing() {
		iter.record(step(StepReady, func() (string, error) {
			readyURL, err := httpx.BuildURL(d.cfg.Target.BaseURL, d.cfg.Readiness.Path, nil)
			if err != nil {
				return "", err
			}
			result, err := service.WaitReady(ctx, d.probe, readyURL, d.cfg.Readiness)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("ready after %d attempts in %s",
				result.Attempts, result.Elapsed.Round(time.Millisecond)), nil
		}))
	}

	if iter.passing() && d.cfg.WarmupEnabled() {
		iter.record(step(StepWarmup, func() (string, error) {
			result, err := service.Warmup(ctx, d.cfg.Target, d.cfg.Warmup)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d in %s", result.StatusCode, result.Duration.Round(time.Millisecond)), nil
		}))
	}

	if iter.passing() {
		iter.record(d.loadStep(ctx, &iter))
	}

	if settle := d.cfg.Delays.Settle.GetDuration(0); settle > 0 && iter.passing() {
		iter.record(step(StepSettle, func() (string, error) {
			if err := pause(ctx, settle); err != nil {
				return "", err
			}
			return settle.String(), nil
		}))
	}

	if proc != nil {
		iter.record(step(StepTeardown, func() (string, error) {
			status := proc.Abort(ctx)
			if status.State == service.StateFailed {
				return status.String(), fmt.Errorf("service did not stop cleanly: %s", status)
			}
			return status.String(), nil
		}))
	}

	iter.EndTime = time.Now()
	return iter
}

// loadStep builds the pass configuration, runs it, and appends the
// report block to the per-run log file.
func (d *Driver) loadStep(ctx context.Context, iter *IterationResult) (result StepResult) {
	start := time.Now()
	result = StepResult{Step: StepLoad, OK: true}
	defer func() {
		result.Duration = time.Since(start)
	}()

	targetURL, err := httpx.BuildURL(d.cfg.Target.BaseURL, d.cfg.Target.Endpoint,
		url.Values{"type": {d.cfg.Target.TypeSelector}})
	if err != nil {
		return failStep(&result, err)
	}

	runner, err := loadgen.NewRunner(d.loadConfig(iter.Concurrency, targetURL))
	if err != nil {
		return failStep(&result, err)
	}

	if d.onPass != nil {
		d.onPass(iter, runner)
	}

	loadResult, runErr := runner.Run(ctx)
	iter.Load = loadResult
	if runErr != nil {
		failStep(&result, runErr)
	}

	if loadResult != nil {
		result.Detail = fmt.Sprintf("%d requests, %.2f%% available, %.1f rps",
			loadResult.TotalRequests, loadResult.Availability*100, loadResult.RPS)

		logPath := d.logPath(iter.Concurrency)
		iter.LogFile = logPath
		if err := d.appendReport(logPath, loadResult); err != nil {
			failStep(&result, err)
		}
	}

	return result
}

// loadConfig bridges the sweep configuration into one pass config at
// the given user count.
func (d *Driver) loadConfig(users int, targetURL string) loadgen.RunConfig {
	loadCfg := d.cfg.Load

	execCfg := loadgen.Config{
		Type:            loadgen.TypeBenchmark,
		Users:           users,
		RequestsPerUser: loadCfg.RequestsPerUser,
		GracefulStop:    5 * time.Second,
	}
	if loadCfg.RequestsPerUser == 0 && loadCfg.Duration.GetDuration(0) > 0 {
		execCfg.Type = loadgen.TypeTimed
		execCfg.Duration = loadCfg.Duration.GetDuration(0)
		execCfg.RequestsPerUser = 0
	}
	if pacing := loadCfg.Pacing; pacing != nil {
		execCfg.Pacing = &loadgen.PacingConfig{
			Type:     loadgen.PacingType(pacing.Type),
			Duration: pacing.Duration.GetDuration(0),
			Min:      pacing.Min.GetDuration(0),
			Max:      pacing.Max.GetDuration(0),
		}
	}

	clientCfg := loadgen.DefaultClientConfig()
	clientCfg.Timeout = loadCfg.Timeout.GetDuration(30 * time.Second)
	if users > clientCfg.MaxIdleConnsPerHost {
		clientCfg.MaxIdleConnsPerHost = users
	}
	if loadCfg.MaxIdleConnsPerHost > 0 {
		clientCfg.MaxIdleConnsPerHost = loadCfg.MaxIdleConnsPerHost
	}
	if loadCfg.KeepAlive != nil && !*loadCfg.KeepAlive {
		clientCfg.DisableKeepAlives = true
	}

	return loadgen.RunConfig{
		Plan: &loadgen.Plan{
			Name:    d.cfg.Target.Endpoint,
			Method:  "GET",
			URL:     targetURL,
			Headers: d.cfg.Target.Headers,
		},
		Executor: execCfg,
		Client:   clientCfg,
	}
}

// logPath names the per-run report file for a concurrency level. The
// fourth slot is requests per user for benchmark passes and the pass
// length in seconds for timed passes.
func (d *Driver) logPath(concurrency int) string {
	requests := int(d.cfg.Load.RequestsPerUser)
	if requests == 0 {
		requests = int(d.cfg.Load.Duration.GetDuration(0).Seconds())
	}
	return LogFile(d.cfg.Log.Dir, d.cfg.Target.Endpoint, d.cfg.Service.Workers, concurrency, requests)
}

// step times fn and folds its outcome into a StepResult.
func step(kind StepKind, fn func() (string, error)) StepResult {
	start := time.Now()
	detail, err := fn()
	result := StepResult{Step: kind, OK: err == nil, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		result.Err = err.Error()
		log.WithFields(log.Fields{"step": kind, "error": err}).Error("Step failed")
	}
	return result
}

// failStep marks a step failed, keeping the first error.
func failStep(result *StepResult, err error) StepResult {
	result.OK = false
	if result.Err == "" {
		result.Err = err.Error()
	}
	log.WithFields(log.Fields{"step": result.Step, "error": err}).Error("Step failed")
	return *result
}

// pause sleeps for d or until the context is done.
func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
