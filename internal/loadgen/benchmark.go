package loadgen

import (
	"context"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// Benchmark runs a fixed number of users, each issuing a fixed number
// of requests, then completes.
//
// This is the closed-loop benchmark model: total work is known up front
// (users times requestsPerUser) and the pass issues exactly that many
// requests as fast as the target allows, optionally paced. Elapsed time
// is the measurement, not an input.
type Benchmark struct {
	pool
}

// NewBenchmark creates a benchmark executor.
func NewBenchmark() *Benchmark {
	return &Benchmark{}
}

// Type returns the executor type.
func (e *Benchmark) Type() Type {
	return TypeBenchmark
}

// Init validates and stores the configuration.
func (e *Benchmark) Init(ctx context.Context, config *Config) error {
	return e.adopt(config, TypeBenchmark)
}

// Run starts the pass and blocks until every user has finished its
// quota or the parent context is cancelled.
func (e *Benchmark) Run(ctx context.Context, scheduler *Scheduler, engine *metrics.Engine) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.open(engine, cancel)
	e.launch(runCtx, scheduler, e.loop)
	e.finish(engine)

	// A Stop-initiated cancel is normal completion; only the parent
	// context's cancellation is an error.
	return ctx.Err()
}

// loop walks one user through its share of the quota. Pacing applies
// between requests, never after the last one.
func (e *Benchmark) loop(ctx context.Context, user *User) {
	for left := e.config.RequestsPerUser; left > 0; left-- {
		if halted(ctx, user) {
			return
		}
		if err := user.RunIteration(ctx); err != nil {
			return
		}
		e.completed.Add(1)

		if left > 1 {
			applyPacing(ctx, e.config.Pacing)
		}
	}
}

// quota is the planned request total for the whole pass.
func (e *Benchmark) quota() int64 {
	return int64(e.config.Users) * e.config.RequestsPerUser
}

// GetProgress reports completed requests as a fraction of the quota.
func (e *Benchmark) GetProgress() float64 {
	total := e.quota()
	if total == 0 {
		return 0
	}
	return min(float64(e.completed.Load())/float64(total), 1)
}

// GetStats returns executor statistics.
func (e *Benchmark) GetStats() *Stats {
	s := e.baseStats()
	s.TotalRequests = e.quota()
	return s
}

var _ Executor = (*Benchmark)(nil)
