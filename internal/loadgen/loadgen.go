package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// RunConfig configures one load pass.
type RunConfig struct {
	// Plan is the request every user repeats
	Plan *Plan

	// Executor selects the strategy and its parameters
	Executor Config

	// Client configures the shared HTTP transport; zero value means
	// DefaultClientConfig sized to the user count
	Client ClientConfig
}

// Result contains the outcome of one completed load pass.
type Result struct {
	// Plan identification
	Name string `json:"name"`
	URL  string `json:"url"`

	// Load shape
	Users           int   `json:"users"`
	RequestsPerUser int64 `json:"requestsPerUser,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Elapsed   time.Duration `json:"elapsed"`

	// Counts
	TotalRequests int64 `json:"totalRequests"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	BytesReceived int64 `json:"bytesReceived"`

	// Rates
	Availability float64 `json:"availability"` // fraction of successful requests, 0..1
	RPS          float64 `json:"rps"`          // totalRequests / elapsed
	RunningRPS   float64 `json:"runningRps"`   // averaged over running-phase buckets
	Concurrency  float64 `json:"concurrency"`  // effective concurrency (Little's law)

	// Latency
	Latency metrics.LatencyStats `json:"latency"`

	// Time series for reports
	TimeSeries []*metrics.TimeBucket `json:"timeSeries,omitempty"`

	// Executor statistics at completion
	Stats *Stats `json:"stats,omitempty"`
}

// Runner executes a single load pass: one plan, one executor, one metrics
// engine.
//
// A Runner is single-use. The driver creates a fresh Runner per matrix
// cell and can poll GetSnapshot/GetProgress from another goroutine while
// Run blocks.
type Runner struct {
	config   RunConfig
	executor Executor

	metricsEngine *metrics.Engine
	scheduler     *Scheduler

	mu        sync.RWMutex
	startTime time.Time
	running   bool
}

// NewRunner validates the configuration and builds the runner.
func NewRunner(cfg RunConfig) (*Runner, error) {
	if cfg.Plan == nil {
		return nil, fmt.Errorf("plan is required")
	}
	if cfg.Plan.URL == "" {
		return nil, fmt.Errorf("plan URL is required")
	}
	if cfg.Plan.Method == "" {
		cfg.Plan.Method = "GET"
	}
	if err := cfg.Executor.Validate(); err != nil {
		return nil, err
	}

	if cfg.Client == (ClientConfig{}) {
		cfg.Client = DefaultClientConfig()
		// Keep one warm connection available per user.
		if cfg.Executor.Users > cfg.Client.MaxIdleConnsPerHost {
			cfg.Client.MaxIdleConnsPerHost = cfg.Executor.Users
		}
	}

	exec, err := NewExecutor(cfg.Executor.Type)
	if err != nil {
		return nil, err
	}

	return &Runner{
		config:   cfg,
		executor: exec,
	}, nil
}

// Run executes the pass and blocks until it completes. The context stops
// the pass early; a partial Result is still returned alongside the error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner is already running")
	}
	r.running = true
	r.startTime = time.Now()
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if err := r.executor.Init(ctx, &r.config.Executor); err != nil {
		return nil, fmt.Errorf("failed to initialize executor: %w", err)
	}

	engine := metrics.NewEngine()
	defer engine.Stop()
	engine.SetPhase(metrics.PhaseInit)

	scheduler := NewScheduler(r.config.Plan, engine, r.config.Client)
	defer scheduler.Shutdown(5 * time.Second)

	// Publish only after Init so pollers never see a half-built runner.
	r.mu.Lock()
	r.metricsEngine = engine
	r.scheduler = scheduler
	r.mu.Unlock()

	runErr := r.executor.Run(ctx, scheduler, engine)

	// Stop the emitter before snapshotting so the final bucket is in.
	engine.Stop()
	result := r.buildResult(engine)

	if runErr != nil {
		return result, fmt.Errorf("load pass interrupted: %w", runErr)
	}
	return result, nil
}

func (r *Runner) buildResult(engine *metrics.Engine) *Result {
	r.mu.RLock()
	startTime := r.startTime
	r.mu.RUnlock()

	snapshot := engine.GetSnapshot()
	stats := r.executor.GetStats()

	endTime := time.Now()
	elapsed := endTime.Sub(startTime)

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(snapshot.TotalRequests) / elapsed.Seconds()
	}

	availability := 0.0
	if snapshot.TotalRequests > 0 {
		availability = float64(snapshot.SuccessRequests) / float64(snapshot.TotalRequests)
	}

	// Effective concurrency: average number of requests in flight,
	// which is rate times mean latency.
	concurrency := rps * snapshot.Latency.Mean.Seconds()

	return &Result{
		Name:            r.config.Plan.Name,
		URL:             r.config.Plan.URL,
		Users:           r.config.Executor.Users,
		RequestsPerUser: r.config.Executor.RequestsPerUser,
		StartTime:       startTime,
		EndTime:         endTime,
		Elapsed:         elapsed,
		TotalRequests:   snapshot.TotalRequests,
		Succeeded:       snapshot.SuccessRequests,
		Failed:          snapshot.FailedRequests,
		BytesReceived:   snapshot.TotalBytes,
		Availability:    availability,
		RPS:             rps,
		RunningRPS:      snapshot.RunningRPS,
		Concurrency:     concurrency,
		Latency:         snapshot.Latency,
		TimeSeries:      engine.GetTimeSeries(),
		Stats:           stats,
	}
}

// IsRunning reports whether the pass is still in flight.
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// GetSnapshot returns live metrics, or nil before Run has started.
func (r *Runner) GetSnapshot() *metrics.Snapshot {
	r.mu.RLock()
	engine := r.metricsEngine
	r.mu.RUnlock()

	if engine == nil {
		return nil
	}
	return engine.GetSnapshot()
}

// GetProgress returns the executor's progress (0.0 to 1.0).
func (r *Runner) GetProgress() float64 {
	if !r.started() {
		return 0.0
	}
	return r.executor.GetProgress()
}

// GetStats returns the executor's live statistics, or nil before Run has
// started.
func (r *Runner) GetStats() *Stats {
	if !r.started() {
		return nil
	}
	return r.executor.GetStats()
}

// Stop ends the pass early, waiting for users to wind down. A no-op when
// no pass is in flight.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.RLock()
	active := r.running && r.metricsEngine != nil
	r.mu.RUnlock()

	if !active {
		return nil
	}
	return r.executor.Stop(ctx)
}

func (r *Runner) started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metricsEngine != nil
}
