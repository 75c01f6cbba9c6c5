package loadgen

import (
	"context"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// Timed runs a fixed number of users for a fixed wall-clock window.
//
// Users iterate as fast as the target allows, optionally paced, until
// the window closes. Suited to exploratory runs and soak passes where
// elapsed time is the input and throughput is the reading.
type Timed struct {
	pool
}

// NewTimed creates a timed executor.
func NewTimed() *Timed {
	return &Timed{}
}

// Type returns the executor type.
func (e *Timed) Type() Type {
	return TypeTimed
}

// Init validates and stores the configuration.
func (e *Timed) Init(ctx context.Context, config *Config) error {
	return e.adopt(config, TypeTimed)
}

// Run starts the pass and blocks until the window elapses or the parent
// context is cancelled.
func (e *Timed) Run(ctx context.Context, scheduler *Scheduler, engine *metrics.Engine) error {
	runCtx, cancel := context.WithTimeout(ctx, e.config.Duration)
	defer cancel()

	e.open(engine, cancel)
	e.launch(runCtx, scheduler, e.loop)
	e.finish(engine)

	// The window elapsing is natural completion; only the parent
	// context's cancellation is an error.
	return ctx.Err()
}

// loop iterates one user until the window closes.
func (e *Timed) loop(ctx context.Context, user *User) {
	for !halted(ctx, user) {
		if err := user.RunIteration(ctx); err != nil {
			return
		}
		e.completed.Add(1)
		applyPacing(ctx, e.config.Pacing)
	}
}

// GetProgress reports elapsed wall time as a fraction of the window.
func (e *Timed) GetProgress() float64 {
	e.mu.RLock()
	start := e.startTime
	e.mu.RUnlock()

	switch {
	case e.running.Load():
		return min(float64(time.Since(start))/float64(e.config.Duration), 1)
	case start.IsZero():
		return 0
	default:
		return 1
	}
}

// GetStats returns executor statistics.
func (e *Timed) GetStats() *Stats {
	s := e.baseStats()
	s.TotalDuration = e.config.Duration
	return s
}

var _ Executor = (*Timed)(nil)
