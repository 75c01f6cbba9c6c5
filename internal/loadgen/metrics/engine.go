package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine aggregates the measurements of one load pass: an HDR latency
// histogram, lock-free counters, a ring of per-interval buckets, and
// the phase timeline. Sweeps build a fresh engine for every pass so
// runs never bleed into each other.
//
// All methods are safe for concurrent use by the user goroutines.
type Engine struct {
	hist    latencyHist
	counts  tally
	users   atomic.Int32
	phases  phaseTrack
	buckets *BucketStore

	startTime time.Time
	config    EngineConfig

	emitCtx    context.Context
	emitCancel context.CancelFunc
	emitWg     sync.WaitGroup
	stopOnce   sync.Once
}

// latencyHist wraps the HDR histogram with the lock RecordValue needs.
type latencyHist struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

func (l *latencyHist) observe(micros int64) {
	l.mu.Lock()
	l.h.RecordValue(micros)
	l.mu.Unlock()
}

func (l *latencyHist) percentiles() LatencyPercentiles {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LatencyPercentiles{
		Min: usDur(l.h.Min()),
		Max: usDur(l.h.Max()),
		P50: usDur(l.h.ValueAtQuantile(50)),
		P90: usDur(l.h.ValueAtQuantile(90)),
		P95: usDur(l.h.ValueAtQuantile(95)),
		P99: usDur(l.h.ValueAtQuantile(99)),
	}
}

func (l *latencyHist) stats() LatencyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LatencyStats{
		Min:    usDur(l.h.Min()),
		Max:    usDur(l.h.Max()),
		Mean:   usDur(int64(l.h.Mean())),
		StdDev: usDur(int64(l.h.StdDev())),
		P50:    usDur(l.h.ValueAtQuantile(50)),
		P90:    usDur(l.h.ValueAtQuantile(90)),
		P95:    usDur(l.h.ValueAtQuantile(95)),
		P99:    usDur(l.h.ValueAtQuantile(99)),
		Count:  l.h.TotalCount(),
	}
}

// usDur converts histogram microseconds to a Duration.
func usDur(micros int64) time.Duration {
	return time.Duration(micros) * time.Microsecond
}

// tally is the set of atomic pass counters.
type tally struct {
	requests  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64
}

func (t *tally) observe(success bool, bytes int64) {
	t.requests.Add(1)
	t.bytes.Add(bytes)
	if success {
		t.succeeded.Add(1)
	} else {
		t.failed.Add(1)
	}
}

// phaseTrack keeps the current phase and the transition history.
type phaseTrack struct {
	mu      sync.RWMutex
	current Phase
	history []PhaseChange
}

func (p *phaseTrack) set(phase Phase, requests int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == phase {
		return
	}
	p.current = phase
	p.history = append(p.history, PhaseChange{
		Phase:     phase,
		Timestamp: time.Now(),
		Requests:  requests,
	})
}

func (p *phaseTrack) get() Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *phaseTrack) timeline() []PhaseChange {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PhaseChange, len(p.history))
	copy(out, p.history)
	return out
}

// NewEngine creates a metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a metrics engine and starts its bucket
// emitter.
func NewEngineWithConfig(config EngineConfig) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		buckets:    NewBucketStore(config.MaxBuckets),
		startTime:  time.Now(),
		config:     config,
		emitCtx:    ctx,
		emitCancel: cancel,
	}
	e.hist.h = hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs)
	e.phases.current = PhaseInit

	e.emitWg.Add(1)
	go e.emitLoop()

	return e
}

// RecordLatency records one finished request: its latency, whether it
// counted as a success, and the bytes received. Latencies outside the
// histogram range are clamped, not dropped.
func (e *Engine) RecordLatency(duration time.Duration, success bool, bytes int64) {
	e.hist.observe(clamp(duration.Microseconds(), e.config.HistogramMin, e.config.HistogramMax))
	e.counts.observe(success, bytes)
	e.buckets.RecordRequest(success, bytes)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetPhase marks a phase transition. Executors call this as a pass
// moves from setup through running to done; the phase is stamped onto
// every emitted bucket.
func (e *Engine) SetPhase(phase Phase) {
	e.phases.set(phase, e.counts.requests.Load())
}

// GetPhase returns the current pass phase.
func (e *Engine) GetPhase() Phase {
	return e.phases.get()
}

// SetActiveUsers updates the active user count.
func (e *Engine) SetActiveUsers(count int) {
	e.users.Store(int32(count))
}

// GetActiveUsers returns the active user count.
func (e *Engine) GetActiveUsers() int {
	return int(e.users.Load())
}

// GetLatencyPercentiles returns the pass-wide percentiles so far.
func (e *Engine) GetLatencyPercentiles() LatencyPercentiles {
	return e.hist.percentiles()
}

func (e *Engine) emitLoop() {
	defer e.emitWg.Done()

	ticker := time.NewTicker(e.config.BucketInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.emitCtx.Done():
			return
		case <-ticker.C:
			e.flushBucket()
		}
	}
}

func (e *Engine) flushBucket() {
	e.buckets.CreateBucket(
		e.counts.requests.Load(),
		e.counts.succeeded.Load(),
		e.counts.failed.Load(),
		e.counts.bytes.Load(),
		e.hist.percentiles(),
		e.GetActiveUsers(),
		e.GetPhase(),
	)
}

// GetSnapshot returns a point-in-time view of every metric.
func (e *Engine) GetSnapshot() *Snapshot {
	total := e.counts.requests.Load()
	failed := e.counts.failed.Load()
	elapsed := time.Since(e.startTime)

	snap := &Snapshot{
		TotalRequests:   total,
		SuccessRequests: e.counts.succeeded.Load(),
		FailedRequests:  failed,
		TotalBytes:      e.counts.bytes.Load(),
		Latency:         e.hist.stats(),
		ActiveUsers:     e.GetActiveUsers(),
		CurrentPhase:    e.GetPhase(),
		Elapsed:         elapsed,
		StartTime:       e.startTime,
		Timestamp:       time.Now(),
	}

	if sec := elapsed.Seconds(); sec > 0 {
		snap.RPS = float64(total) / sec
	}
	// Running-phase buckets give a cleaner rate than the overall
	// average once the pass has been going long enough to have any.
	if rps, n := e.buckets.CalculateRunningRPS(); n > 0 {
		snap.RunningRPS = rps
		snap.RPS = rps
	}
	if total > 0 {
		snap.ErrorRate = float64(failed) / float64(total)
	}
	return snap
}

// GetTimeSeries returns the emitted buckets in chronological order.
func (e *Engine) GetTimeSeries() []*TimeBucket {
	return e.buckets.GetBuckets()
}

// GetPhaseHistory returns the phase transitions so far.
func (e *Engine) GetPhaseHistory() []PhaseChange {
	return e.phases.timeline()
}

// Stop halts the emitter and flushes one last bucket so the tail of
// the pass is kept. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.emitCancel()
		e.emitWg.Wait()
		e.flushBucket()
	})
}
