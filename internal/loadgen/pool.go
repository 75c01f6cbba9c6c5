package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevengram/drover/internal/loadgen/metrics"
)

// pool carries the machinery both executors share: user bookkeeping,
// lifecycle flags, and the graceful stop dance. An executor embeds it
// and supplies only its own iteration loop.
type pool struct {
	config  *Config
	metrics *metrics.Engine

	startTime   time.Time
	activeUsers atomic.Int32
	completed   atomic.Int64
	running     atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Guards startTime, metrics, and cancel across Run and Stop.
	mu sync.RWMutex
}

// adopt checks that the config is meant for this executor and keeps it.
func (p *pool) adopt(config *Config, want Type) error {
	if config.Type != want {
		return fmt.Errorf("config is for %q, executor runs %q", config.Type, want)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	p.config = config
	return nil
}

// open records the start of a pass and flips the engine into the
// running phase.
func (p *pool) open(engine *metrics.Engine, cancel context.CancelFunc) {
	p.mu.Lock()
	p.metrics = engine
	p.startTime = time.Now()
	p.cancel = cancel
	p.mu.Unlock()

	p.running.Store(true)
	engine.SetPhase(metrics.PhaseRunning)
}

// finish marks the pass complete.
func (p *pool) finish(engine *metrics.Engine) {
	engine.SetPhase(metrics.PhaseDone)
	p.running.Store(false)
}

// launch spawns one goroutine per configured user, runs loop in each,
// and blocks until the whole pool has wound down.
func (p *pool) launch(ctx context.Context, scheduler *Scheduler, loop func(context.Context, *User)) {
	for i := 0; i < p.config.Users; i++ {
		user := scheduler.SpawnUser()
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer user.MarkStopped()

			p.metrics.SetActiveUsers(int(p.activeUsers.Add(1)))
			defer func() {
				p.metrics.SetActiveUsers(int(p.activeUsers.Add(-1)))
			}()

			loop(ctx, user)
		}()
	}
	p.wg.Wait()
}

// halted reports whether the pass context is done or the user has been
// told to stand down.
func halted(ctx context.Context, user *User) bool {
	return ctx.Err() != nil || user.GetState() >= UserStopping
}

// GetActiveUsers returns how many users are currently live.
func (p *pool) GetActiveUsers() int {
	return int(p.activeUsers.Load())
}

// baseStats fills the Stats fields common to both executors.
func (p *pool) baseStats() *Stats {
	p.mu.RLock()
	start := p.startTime
	p.mu.RUnlock()

	s := &Stats{
		StartTime:   start,
		CurrentTime: time.Now(),
		ActiveUsers: int(p.activeUsers.Load()),
		TargetUsers: p.config.Users,
		Requests:    p.completed.Load(),
	}
	if !start.IsZero() {
		s.Elapsed = time.Since(start)
	}
	return s
}

// Stop cancels outstanding work and waits for the users to wind down
// within the configured grace period.
func (p *pool) Stop(ctx context.Context) error {
	p.mu.RLock()
	engine, cancel := p.metrics, p.cancel
	p.mu.RUnlock()

	if engine != nil {
		engine.SetPhase(metrics.PhaseDraining)
	}
	if cancel != nil {
		cancel()
	}

	idle := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(idle)
	}()

	grace := 30 * time.Second
	if p.config != nil && p.config.GracefulStop > 0 {
		grace = p.config.GracefulStop
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(grace):
		return fmt.Errorf("users still draining after %v", grace)
	}
}
